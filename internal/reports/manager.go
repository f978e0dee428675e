// Package reports owns the report lifecycle: rate limited submission and
// at-most-once resolution, with notifications chained after the write.
package reports

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/iamwavecut/quickreport/internal/cooldown"
	"github.com/iamwavecut/quickreport/internal/db"
	qrerrors "github.com/iamwavecut/quickreport/internal/errors"
	"github.com/iamwavecut/quickreport/internal/notify"
	"github.com/iamwavecut/quickreport/internal/observability"
	"github.com/iamwavecut/quickreport/internal/reward"
)

const (
	DefaultCooldown        = 60 * time.Second
	DefaultStorageTimeout  = 5 * time.Second
	DefaultWorkers         = 8
	DefaultRejectionReason = "No reason provided"
)

// Store is the part of the persistence gateway the manager writes through.
type Store interface {
	InsertReport(ctx context.Context, report *db.Report) (int64, error)
	UpdateStatusIfPending(ctx context.Context, id int64, status db.Status, operatorID, operatorName, rejectionReason string) (int64, error)
	GetReport(ctx context.Context, id int64) (*db.Report, error)
}

// Limiter gates submissions. A granted reservation is settled with Record
// after a durable insert or with Release when the insert does not happen.
type Limiter interface {
	TryReserve(submitterID string, now time.Time, window time.Duration) cooldown.Decision
	Release(submitterID string)
	Record(submitterID string, now time.Time)
}

type Options struct {
	// Cooldown is the minimum time between two submissions of one
	// submitter. Zero or negative means DefaultCooldown.
	Cooldown               time.Duration
	StorageTimeout         time.Duration
	Workers                int
	DefaultRejectionReason string
	Clock                  func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Cooldown <= 0 {
		o.Cooldown = DefaultCooldown
	}
	if o.StorageTimeout <= 0 {
		o.StorageTimeout = DefaultStorageTimeout
	}
	if o.Workers < 1 {
		o.Workers = DefaultWorkers
	}
	if strings.TrimSpace(o.DefaultRejectionReason) == "" {
		o.DefaultRejectionReason = DefaultRejectionReason
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	return o
}

type (
	SubmitRequest struct {
		ReporterID   string
		ReporterName string
		ReportedID   string
		ReportedName string
		Reason       string
		Details      string
		// Now defaults to the manager clock.
		Now time.Time
	}

	ResolveRequest struct {
		ReportID        int64
		OperatorID      string
		OperatorName    string
		Decision        db.Status
		RewardCode      string
		RejectionReason string
	}
)

type Manager struct {
	store      Store
	limiter    Limiter
	dispatcher notify.Dispatcher
	reward     reward.Hook
	opts       Options
	pool       *pool
	tracer     trace.Tracer
	l          *log.Entry
}

// NewManager wires the collaborators together. dispatcher and rewardHook may
// be nil, in which case the matching side effect is skipped.
func NewManager(store Store, limiter Limiter, dispatcher notify.Dispatcher, rewardHook reward.Hook, opts Options) *Manager {
	opts = opts.withDefaults()
	return &Manager{
		store:      store,
		limiter:    limiter,
		dispatcher: dispatcher,
		reward:     rewardHook,
		opts:       opts,
		pool:       newPool(opts.Workers),
		tracer:     observability.Tracer(),
		l:          log.WithField("context", "reports"),
	}
}

func (m *Manager) Start(_ context.Context) error {
	m.pool.reopen()
	m.l.WithField("workers", m.opts.Workers).WithField("cooldown", m.opts.Cooldown).Info("report manager started")
	return nil
}

// Stop refuses new work and waits for in-flight submissions and resolutions.
func (m *Manager) Stop(ctx context.Context) error {
	return errors.WithMessage(m.pool.stop(ctx), "wait for report tasks")
}

func (m *Manager) Submit(ctx context.Context, req SubmitRequest) (int64, error) {
	return m.SubmitAsync(ctx, req).Wait(ctx)
}

// SubmitAsync validates the request and checks the cooldown on the caller's
// goroutine; the insert and everything after it run on the pool.
func (m *Manager) SubmitAsync(ctx context.Context, req SubmitRequest) *Future[int64] {
	ctx, span := m.tracer.Start(ctx, "reports.Submit", trace.WithAttributes(
		attribute.String("reporter_id", req.ReporterID),
		attribute.String("reported_id", req.ReportedID),
	))

	now := req.Now
	if now.IsZero() {
		now = m.opts.Clock()
	}
	now = time.UnixMilli(now.UnixMilli())

	if err := validateSubmit(req); err != nil {
		return failedFuture[int64](m.finishSubmit(span, 0, err))
	}

	if decision := m.limiter.TryReserve(req.ReporterID, now, m.opts.Cooldown); !decision.Allowed {
		return failedFuture[int64](m.finishSubmit(span, 0, &qrerrors.CooldownError{Remaining: decision.Remaining}))
	}

	report := &db.Report{
		ID:           db.UnsetID,
		ReporterID:   req.ReporterID,
		ReporterName: req.ReporterName,
		ReportedID:   req.ReportedID,
		ReportedName: req.ReportedName,
		Reason:       req.Reason,
		Details:      req.Details,
		CreatedAt:    now,
		Status:       db.StatusPending,
	}

	finish := func(id int64, err error) error {
		if err != nil {
			m.limiter.Release(report.ReporterID)
		}
		return m.finishSubmit(span, id, err)
	}
	f, err := run(ctx, m.pool, func(ctx context.Context) (int64, error) {
		return m.insert(ctx, report)
	}, finish)
	if err != nil {
		return failedFuture[int64](finish(0, err))
	}
	return f
}

func (m *Manager) insert(ctx context.Context, report *db.Report) (int64, error) {
	storeCtx, cancel := context.WithTimeout(ctx, m.opts.StorageTimeout)
	defer cancel()

	observe := observability.StartStorage("insert")
	id, err := m.store.InsertReport(storeCtx, report)
	observe()
	if err != nil {
		return 0, &qrerrors.StorageError{Op: "insert report", Err: err}
	}
	report.ID = id

	m.limiter.Record(report.ReporterID, report.CreatedAt)

	if m.dispatcher != nil {
		m.dispatcher.OnReportCreated(ctx, notify.ReportCreated{
			ID:           id,
			ReporterID:   report.ReporterID,
			ReportedName: report.ReportedName,
		})
	}
	return id, nil
}

func (m *Manager) finishSubmit(span trace.Span, id int64, err error) error {
	defer span.End()

	outcome := submitOutcome(err)
	observability.RecordSubmission(outcome)
	span.SetAttributes(attribute.String("outcome", outcome))

	entry := m.l.WithField("outcome", outcome)
	switch {
	case err == nil:
		span.SetAttributes(attribute.Int64("report_id", id))
		entry.WithField("report_id", id).Info("report created")
	case errors.Is(err, qrerrors.ErrStorageFailed):
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		entry.WithError(err).Error("report not stored")
	default:
		entry.WithError(err).Debug("report refused")
	}
	return err
}

func validateSubmit(req SubmitRequest) error {
	if strings.TrimSpace(req.ReporterID) == "" || strings.TrimSpace(req.ReportedID) == "" {
		return errors.WithMessage(qrerrors.ErrInvalidInput, "reporter and reported ids are required")
	}
	if req.ReporterID == req.ReportedID {
		return qrerrors.ErrSelfReport
	}
	if strings.TrimSpace(req.Reason) == "" {
		return errors.WithMessage(qrerrors.ErrInvalidInput, "reason is required")
	}
	return nil
}

func submitOutcome(err error) string {
	switch {
	case err == nil:
		return "created"
	case errors.Is(err, qrerrors.ErrSelfReport):
		return "self_report"
	case errors.Is(err, qrerrors.ErrInvalidInput):
		return "invalid"
	case errors.Is(err, qrerrors.ErrCooldownActive):
		return "cooldown"
	case errors.Is(err, qrerrors.ErrStorageFailed):
		return "storage_failed"
	default:
		return "aborted"
	}
}

func (m *Manager) Resolve(ctx context.Context, req ResolveRequest) error {
	_, err := m.ResolveAsync(ctx, req).Wait(ctx)
	return err
}

// ResolveAsync resolves a pending report. The future yields the report as
// persisted by this resolution.
func (m *Manager) ResolveAsync(ctx context.Context, req ResolveRequest) *Future[*db.Report] {
	ctx, span := m.tracer.Start(ctx, "reports.Resolve", trace.WithAttributes(
		attribute.Int64("report_id", req.ReportID),
		attribute.String("operator_id", req.OperatorID),
		attribute.String("decision", string(req.Decision)),
	))

	if !req.Decision.IsTerminal() {
		err := errors.WithMessagef(qrerrors.ErrInvalidInput, "decision %q", req.Decision)
		return failedFuture[*db.Report](m.finishResolve(span, req, err))
	}

	f, err := run(ctx, m.pool, func(ctx context.Context) (*db.Report, error) {
		return m.resolve(ctx, req)
	}, func(_ *db.Report, err error) error {
		return m.finishResolve(span, req, err)
	})
	if err != nil {
		return failedFuture[*db.Report](m.finishResolve(span, req, err))
	}
	return f
}

func (m *Manager) resolve(ctx context.Context, req ResolveRequest) (*db.Report, error) {
	report, err := m.load(ctx, req.ReportID)
	if err != nil {
		return nil, err
	}
	if !report.IsPending() {
		return nil, &qrerrors.AlreadyResolvedError{ID: report.ID, Status: string(report.Status)}
	}

	rejectionReason := ""
	if req.Decision == db.StatusRejected {
		rejectionReason = strings.TrimSpace(req.RejectionReason)
		if rejectionReason == "" {
			rejectionReason = m.opts.DefaultRejectionReason
		}
	}

	storeCtx, cancel := context.WithTimeout(ctx, m.opts.StorageTimeout)
	observe := observability.StartStorage("update")
	rows, err := m.store.UpdateStatusIfPending(storeCtx, report.ID, req.Decision, req.OperatorID, req.OperatorName, rejectionReason)
	observe()
	cancel()
	if err != nil {
		return nil, &qrerrors.StorageError{Op: "update report status", Err: err}
	}
	if rows == 0 {
		// lost the race: report whoever won
		lost := &qrerrors.AlreadyResolvedError{ID: report.ID}
		if winner, err := m.load(ctx, report.ID); err == nil {
			lost.Status = string(winner.Status)
		}
		return nil, lost
	}

	report.Status = req.Decision
	report.OperatorID = req.OperatorID
	report.OperatorName = req.OperatorName
	report.RejectionReason = rejectionReason

	if m.dispatcher != nil {
		m.dispatcher.OnReportResolved(ctx, notify.ReportResolved{
			ID:              report.ID,
			Decision:        report.Status,
			ReporterID:      report.ReporterID,
			ReporterName:    report.ReporterName,
			ReportedID:      report.ReportedID,
			ReportedName:    report.ReportedName,
			OperatorID:      report.OperatorID,
			OperatorName:    report.OperatorName,
			RejectionReason: report.RejectionReason,
		})
	}

	if report.Status == db.StatusAccepted && req.RewardCode != "" && m.reward != nil {
		if err := m.reward.Execute(ctx, req.RewardCode, report.ReporterName); err != nil {
			m.l.WithError(err).
				WithField("report_id", report.ID).
				WithField("reward", req.RewardCode).
				Warn("reward failed")
		}
	}
	return report, nil
}

func (m *Manager) finishResolve(span trace.Span, req ResolveRequest, err error) error {
	defer span.End()

	outcome := resolveOutcome(req.Decision, err)
	observability.RecordResolution(outcome)
	span.SetAttributes(attribute.String("outcome", outcome))

	entry := m.l.WithField("report_id", req.ReportID).WithField("outcome", outcome)
	switch {
	case err == nil:
		entry.WithField("operator", req.OperatorName).Info("report resolved")
	case errors.Is(err, qrerrors.ErrStorageFailed):
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		entry.WithError(err).Error("report not resolved")
	default:
		entry.WithError(err).Debug("report not resolved")
	}
	return err
}

func resolveOutcome(decision db.Status, err error) string {
	switch {
	case err == nil:
		return strings.ToLower(string(decision))
	case errors.Is(err, qrerrors.ErrInvalidInput):
		return "invalid"
	case errors.Is(err, qrerrors.ErrNotFound):
		return "not_found"
	case errors.Is(err, qrerrors.ErrAlreadyResolved):
		return "already_resolved"
	case errors.Is(err, qrerrors.ErrStorageFailed):
		return "storage_failed"
	default:
		return "aborted"
	}
}

// Get loads a report by id for operator lookups.
func (m *Manager) Get(ctx context.Context, id int64) (*db.Report, error) {
	return m.load(ctx, id)
}

func (m *Manager) load(ctx context.Context, id int64) (*db.Report, error) {
	storeCtx, cancel := context.WithTimeout(ctx, m.opts.StorageTimeout)
	defer cancel()

	observe := observability.StartStorage("get")
	report, err := m.store.GetReport(storeCtx, id)
	observe()
	if err != nil {
		return nil, &qrerrors.StorageError{Op: "get report", Err: err}
	}
	if report == nil {
		return nil, errors.WithMessagef(qrerrors.ErrNotFound, "report %d", id)
	}
	return report, nil
}
