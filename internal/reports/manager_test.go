package reports

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/iamwavecut/quickreport/internal/cooldown"
	"github.com/iamwavecut/quickreport/internal/db"
	qrerrors "github.com/iamwavecut/quickreport/internal/errors"
	"github.com/iamwavecut/quickreport/internal/notify"
)

type memStore struct {
	mu        sync.Mutex
	reports   map[int64]*db.Report
	nextID    int64
	insertErr error
	panicMsg  string
	updates   int
	// beforeUpdate runs under the lock and may change the stored report,
	// which is how a concurrent winner is simulated.
	beforeUpdate func(report *db.Report)
	block        chan struct{}
}

func newMemStore() *memStore {
	return &memStore{reports: map[int64]*db.Report{}}
}

func (s *memStore) InsertReport(ctx context.Context, report *db.Report) (int64, error) {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.panicMsg != "" {
		panic(s.panicMsg)
	}
	if s.insertErr != nil {
		return 0, s.insertErr
	}
	s.nextID++
	stored := *report
	stored.ID = s.nextID
	s.reports[stored.ID] = &stored
	return stored.ID, nil
}

func (s *memStore) UpdateStatusIfPending(_ context.Context, id int64, status db.Status, operatorID, operatorName, rejectionReason string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	report, ok := s.reports[id]
	if !ok {
		return 0, nil
	}
	if s.beforeUpdate != nil {
		s.beforeUpdate(report)
	}
	if report.Status != db.StatusPending {
		return 0, nil
	}
	s.updates++
	report.Status = status
	report.OperatorID = operatorID
	report.OperatorName = operatorName
	report.RejectionReason = rejectionReason
	return 1, nil
}

func (s *memStore) GetReport(_ context.Context, id int64) (*db.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	report, ok := s.reports[id]
	if !ok {
		return nil, nil
	}
	copied := *report
	return &copied, nil
}

func (s *memStore) seed(report db.Report) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	report.ID = s.nextID
	s.reports[report.ID] = &report
	return report.ID
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reports)
}

func (s *memStore) updateCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updates
}

type dispatcherStub struct {
	mu       sync.Mutex
	created  []notify.ReportCreated
	resolved []notify.ReportResolved
}

func (d *dispatcherStub) OnReportCreated(_ context.Context, e notify.ReportCreated) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.created = append(d.created, e)
}

func (d *dispatcherStub) OnReportResolved(_ context.Context, e notify.ReportResolved) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resolved = append(d.resolved, e)
}

func (d *dispatcherStub) counts() (int, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.created), len(d.resolved)
}

type rewardCall struct {
	code string
	name string
}

type rewardStub struct {
	mu    sync.Mutex
	calls []rewardCall
	err   error
}

func (r *rewardStub) Execute(_ context.Context, code string, submitterName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, rewardCall{code: code, name: submitterName})
	return r.err
}

type fixture struct {
	store      *memStore
	limiter    *cooldown.Limiter
	dispatcher *dispatcherStub
	reward     *rewardStub
	manager    *Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:      newMemStore(),
		limiter:    cooldown.NewLimiter(),
		dispatcher: &dispatcherStub{},
		reward:     &rewardStub{},
	}
	f.manager = NewManager(f.store, f.limiter, f.dispatcher, f.reward, Options{
		Cooldown:       DefaultCooldown,
		StorageTimeout: time.Second,
		Workers:        4,
	})
	if err := f.manager.Start(context.Background()); err != nil {
		t.Fatalf("start manager: %v", err)
	}
	t.Cleanup(func() { _ = f.manager.Stop(context.Background()) })
	return f
}

func submitAt(reporter string, now time.Time) SubmitRequest {
	return SubmitRequest{
		ReporterID:   reporter,
		ReporterName: "Name-" + reporter,
		ReportedID:   "B",
		ReportedName: "Bob",
		Reason:       "cheating",
		Now:          now,
	}
}

func TestSubmitThenCooldown(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)

	id, err := f.manager.Submit(ctx, submitAt("A", time.Unix(1000, 0)))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if id != 1 {
		t.Fatalf("expected id 1, got %d", id)
	}

	_, err = f.manager.Submit(ctx, submitAt("A", time.Unix(1001, 0)))
	var cooldownErr *qrerrors.CooldownError
	if !errors.As(err, &cooldownErr) {
		t.Fatalf("expected cooldown error, got %v", err)
	}
	if !errors.Is(err, qrerrors.ErrCooldownActive) {
		t.Fatalf("cooldown error must match ErrCooldownActive")
	}
	if got := cooldownErr.RemainingSeconds(); got != 59 {
		t.Fatalf("expected 59 seconds remaining, got %d", got)
	}
	if f.store.count() != 1 {
		t.Fatalf("refused submission must not be stored, have %d reports", f.store.count())
	}

	created, _ := f.dispatcher.counts()
	if created != 1 {
		t.Fatalf("expected one created notification, got %d", created)
	}
	if e := f.dispatcher.created[0]; e.ID != 1 || e.ReportedName != "Bob" || e.ReporterID != "A" {
		t.Fatalf("unexpected created event: %#v", e)
	}
}

func TestSubmitCooldownBoundaryIsInclusive(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)

	if _, err := f.manager.Submit(ctx, submitAt("A", time.Unix(1000, 0))); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if _, err := f.manager.Submit(ctx, submitAt("A", time.Unix(1060, 0))); err != nil {
		t.Fatalf("submit exactly one cooldown later: %v", err)
	}
	if f.store.count() != 2 {
		t.Fatalf("expected 2 reports, got %d", f.store.count())
	}
}

func TestSubmitCooldownIsPerSubmitter(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)

	if _, err := f.manager.Submit(ctx, submitAt("A", time.Unix(1000, 0))); err != nil {
		t.Fatalf("submit A: %v", err)
	}
	if _, err := f.manager.Submit(ctx, submitAt("C", time.Unix(1001, 0))); err != nil {
		t.Fatalf("submit C: %v", err)
	}
}

func TestSubmitRejectsInvalidRequests(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(r *SubmitRequest)
		want   error
	}{
		{name: "self report", mutate: func(r *SubmitRequest) { r.ReportedID = r.ReporterID }, want: qrerrors.ErrSelfReport},
		{name: "empty reason", mutate: func(r *SubmitRequest) { r.Reason = "  " }, want: qrerrors.ErrInvalidInput},
		{name: "empty reporter", mutate: func(r *SubmitRequest) { r.ReporterID = "" }, want: qrerrors.ErrInvalidInput},
		{name: "empty reported", mutate: func(r *SubmitRequest) { r.ReportedID = "" }, want: qrerrors.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t)
			req := submitAt("A", time.Unix(1000, 0))
			tt.mutate(&req)

			_, err := f.manager.Submit(context.Background(), req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if f.store.count() != 0 || f.limiter.Len() != 0 {
				t.Fatalf("invalid submission must not touch store or cooldown")
			}
		})
	}
}

func TestStorageFailureDoesNotConsumeCooldown(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	f.store.insertErr = errors.New("disk full")

	_, err := f.manager.Submit(ctx, submitAt("A", time.Unix(1000, 0)))
	if !errors.Is(err, qrerrors.ErrStorageFailed) {
		t.Fatalf("expected storage failure, got %v", err)
	}
	if _, ok := f.limiter.Last("A"); ok {
		t.Fatalf("failed submission must not record a cooldown")
	}
	if created, _ := f.dispatcher.counts(); created != 0 {
		t.Fatalf("failed submission must not notify")
	}

	f.store.mu.Lock()
	f.store.insertErr = nil
	f.store.mu.Unlock()

	id, err := f.manager.Submit(ctx, submitAt("A", time.Unix(1001, 0)))
	if err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
	if id != 1 {
		t.Fatalf("expected id 1, got %d", id)
	}
}

func TestSubmitTruncatesTimestampToMilliseconds(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)

	id, err := f.manager.Submit(ctx, submitAt("A", time.Unix(1000, 123_456_789)))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	got, err := f.manager.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if want := time.UnixMilli(1_000_123); !got.CreatedAt.Equal(want) {
		t.Fatalf("unexpected created_at: got %v want %v", got.CreatedAt, want)
	}
	if last, _ := f.limiter.Last("A"); !last.Equal(got.CreatedAt) {
		t.Fatalf("cooldown must record the stored timestamp, got %v", last)
	}
}

func TestSubmitUsesClockWhenNowIsZero(t *testing.T) {
	t.Parallel()

	fixed := time.Unix(5000, 0)
	store := newMemStore()
	manager := NewManager(store, cooldown.NewLimiter(), nil, nil, Options{
		Clock: func() time.Time { return fixed },
	})

	req := submitAt("A", time.Time{})
	id, err := manager.Submit(context.Background(), req)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	got, _ := store.GetReport(context.Background(), id)
	if !got.CreatedAt.Equal(fixed) {
		t.Fatalf("expected clock time, got %v", got.CreatedAt)
	}
}

func TestResolveAcceptThenReject(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)

	id, err := f.manager.Submit(ctx, submitAt("A", time.Unix(1000, 0)))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	err = f.manager.Resolve(ctx, ResolveRequest{
		ReportID:     id,
		OperatorID:   "op",
		OperatorName: "Olga",
		Decision:     db.StatusAccepted,
		RewardCode:   "r1",
	})
	if err != nil {
		t.Fatalf("accept: %v", err)
	}

	err = f.manager.Resolve(ctx, ResolveRequest{
		ReportID:     id,
		OperatorID:   "op2",
		OperatorName: "Oleg",
		Decision:     db.StatusRejected,
	})
	var resolvedErr *qrerrors.AlreadyResolvedError
	if !errors.As(err, &resolvedErr) {
		t.Fatalf("expected already resolved, got %v", err)
	}
	if resolvedErr.Status != string(db.StatusAccepted) {
		t.Fatalf("expected winner status ACCEPTED, got %q", resolvedErr.Status)
	}
	if f.store.updateCount() != 1 {
		t.Fatalf("terminal report must not be written again, got %d writes", f.store.updateCount())
	}

	stored, _ := f.store.GetReport(ctx, id)
	if stored.Status != db.StatusAccepted || stored.OperatorName != "Olga" || stored.RejectionReason != "" {
		t.Fatalf("unexpected stored report: %#v", stored)
	}

	if len(f.reward.calls) != 1 || f.reward.calls[0] != (rewardCall{code: "r1", name: "Name-A"}) {
		t.Fatalf("unexpected reward calls: %v", f.reward.calls)
	}

	_, resolved := f.dispatcher.counts()
	if resolved != 1 {
		t.Fatalf("expected a single resolved notification, got %d", resolved)
	}
	e := f.dispatcher.resolved[0]
	if e.ID != id || e.Decision != db.StatusAccepted || e.ReporterID != "A" || e.ReportedID != "B" || e.OperatorID != "op" {
		t.Fatalf("unexpected resolved event: %#v", e)
	}
}

func TestResolveUnknownReport(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	err := f.manager.Resolve(context.Background(), ResolveRequest{
		ReportID: 404,
		Decision: db.StatusAccepted,
	})
	if !errors.Is(err, qrerrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if errors.Is(err, qrerrors.ErrAlreadyResolved) {
		t.Fatalf("not found must be distinct from already resolved")
	}
	if created, resolved := f.dispatcher.counts(); created != 0 || resolved != 0 {
		t.Fatalf("unknown report must not notify")
	}
}

func TestResolveTerminalReportDoesNotWrite(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	id := f.store.seed(db.Report{
		ReporterID: "A",
		ReportedID: "B",
		Reason:     "spam",
		Status:     db.StatusRejected,
	})

	err := f.manager.Resolve(context.Background(), ResolveRequest{
		ReportID: id,
		Decision: db.StatusAccepted,
	})
	var resolvedErr *qrerrors.AlreadyResolvedError
	if !errors.As(err, &resolvedErr) || resolvedErr.Status != string(db.StatusRejected) {
		t.Fatalf("expected already resolved as REJECTED, got %v", err)
	}
	if f.store.updateCount() != 0 {
		t.Fatalf("expected no write, got %d", f.store.updateCount())
	}
	if len(f.reward.calls) != 0 {
		t.Fatalf("reward must not run")
	}
}

func TestResolveLostRaceReportsWinner(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	id := f.store.seed(db.Report{ReporterID: "A", ReportedID: "B", Reason: "spam", Status: db.StatusPending})
	f.store.beforeUpdate = func(report *db.Report) {
		report.Status = db.StatusRejected
		report.OperatorID = "other"
	}

	err := f.manager.Resolve(context.Background(), ResolveRequest{
		ReportID:   id,
		OperatorID: "op",
		Decision:   db.StatusAccepted,
		RewardCode: "r1",
	})
	var resolvedErr *qrerrors.AlreadyResolvedError
	if !errors.As(err, &resolvedErr) {
		t.Fatalf("expected already resolved, got %v", err)
	}
	if resolvedErr.Status != string(db.StatusRejected) {
		t.Fatalf("expected winner status REJECTED, got %q", resolvedErr.Status)
	}
	if _, resolved := f.dispatcher.counts(); resolved != 0 {
		t.Fatalf("loser must not notify")
	}
	if len(f.reward.calls) != 0 {
		t.Fatalf("loser must not reward")
	}
}

func TestResolveRejectionReasonDefault(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	id := f.store.seed(db.Report{ReporterID: "A", ReportedID: "B", Reason: "spam", Status: db.StatusPending})

	report, err := f.manager.ResolveAsync(ctx, ResolveRequest{
		ReportID:   id,
		OperatorID: "op",
		Decision:   db.StatusRejected,
		RewardCode: "r1",
	}).Wait(ctx)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if report.Status != db.StatusRejected || report.RejectionReason != DefaultRejectionReason {
		t.Fatalf("unexpected resolved report: %#v", report)
	}
	stored, _ := f.store.GetReport(ctx, id)
	if stored.RejectionReason != DefaultRejectionReason {
		t.Fatalf("default reason must be persisted, got %q", stored.RejectionReason)
	}
	if len(f.reward.calls) != 0 {
		t.Fatalf("rejected report must not reward")
	}
	if e := f.dispatcher.resolved[0]; e.RejectionReason != DefaultRejectionReason {
		t.Fatalf("unexpected event reason %q", e.RejectionReason)
	}
}

func TestResolveRewardFailureKeepsResolution(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	f.reward.err = errors.New("console offline")
	id := f.store.seed(db.Report{ReporterID: "A", ReporterName: "Alice", ReportedID: "B", Reason: "spam", Status: db.StatusPending})

	err := f.manager.Resolve(ctx, ResolveRequest{ReportID: id, Decision: db.StatusAccepted, RewardCode: "r1"})
	if err != nil {
		t.Fatalf("reward failure must not fail the resolution: %v", err)
	}
	stored, _ := f.store.GetReport(ctx, id)
	if stored.Status != db.StatusAccepted {
		t.Fatalf("resolution must not be rolled back, got %s", stored.Status)
	}
}

func TestResolveRejectsNonTerminalDecision(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	id := f.store.seed(db.Report{ReporterID: "A", ReportedID: "B", Reason: "spam", Status: db.StatusPending})

	for _, decision := range []db.Status{db.StatusPending, "", "MAYBE"} {
		err := f.manager.Resolve(context.Background(), ResolveRequest{ReportID: id, Decision: decision})
		if !errors.Is(err, qrerrors.ErrInvalidInput) {
			t.Fatalf("decision %q: expected invalid input, got %v", decision, err)
		}
	}
	if f.store.updateCount() != 0 {
		t.Fatalf("invalid decisions must not write")
	}
}

func TestSubmitAsyncCompletesAfterStorage(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	f.store.block = make(chan struct{})

	future := f.manager.SubmitAsync(ctx, submitAt("A", time.Unix(1000, 0)))
	select {
	case <-future.Done():
		t.Fatalf("future completed before storage answered")
	case <-time.After(20 * time.Millisecond):
	}

	waitCtx, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := future.Wait(waitCtx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled wait, got %v", err)
	}

	close(f.store.block)
	id, err := future.Wait(ctx)
	if err != nil || id != 1 {
		t.Fatalf("unexpected result: id=%d err=%v", id, err)
	}
}

func TestStorageTimeoutIsStorageFailure(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	store.block = make(chan struct{})
	limiter := cooldown.NewLimiter()
	manager := NewManager(store, limiter, nil, nil, Options{StorageTimeout: 10 * time.Millisecond})

	_, err := manager.Submit(context.Background(), submitAt("A", time.Unix(1000, 0)))
	if !errors.Is(err, qrerrors.ErrStorageFailed) {
		t.Fatalf("expected storage failure, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("cause should be kept, got %v", err)
	}
	if limiter.Len() != 0 {
		t.Fatalf("timed out submission must not consume the cooldown")
	}
}

func TestStopWaitsAndRefusesNewWork(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	f.store.block = make(chan struct{})

	inFlight := f.manager.SubmitAsync(ctx, submitAt("A", time.Unix(1000, 0)))

	stopped := make(chan error, 1)
	go func() { stopped <- f.manager.Stop(ctx) }()

	select {
	case <-stopped:
		t.Fatalf("stop returned while a task was in flight")
	case <-time.After(20 * time.Millisecond):
	}

	close(f.store.block)
	if err := <-stopped; err != nil {
		t.Fatalf("stop: %v", err)
	}
	if _, err := inFlight.Wait(ctx); err != nil {
		t.Fatalf("in-flight submission: %v", err)
	}

	_, err := f.manager.Submit(ctx, submitAt("C", time.Unix(1000, 0)))
	if !errors.Is(err, errPoolStopped) {
		t.Fatalf("expected stopped manager to refuse work, got %v", err)
	}

	if err := f.manager.Start(ctx); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if _, err := f.manager.Submit(ctx, submitAt("C", time.Unix(1000, 0))); err != nil {
		t.Fatalf("submit after restart: %v", err)
	}
}

func TestSameSubmitterInFlightIsRateLimited(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	f.store.block = make(chan struct{})

	first := f.manager.SubmitAsync(ctx, submitAt("A", time.Unix(1000, 0)))
	second := f.manager.SubmitAsync(ctx, submitAt("A", time.Unix(1001, 0)))

	select {
	case <-second.Done():
	case <-time.After(time.Second):
		t.Fatalf("second submission must be refused without waiting for storage")
	}
	if _, err := second.Wait(ctx); !errors.Is(err, qrerrors.ErrCooldownActive) {
		t.Fatalf("expected cooldown for the concurrent submission, got %v", err)
	}

	close(f.store.block)
	if id, err := first.Wait(ctx); err != nil || id != 1 {
		t.Fatalf("first submission: id=%d err=%v", id, err)
	}
	if f.store.count() != 1 {
		t.Fatalf("expected a single stored report, got %d", f.store.count())
	}
}

func TestFailedInFlightSubmissionFreesSubmitter(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	f.store.block = make(chan struct{})
	f.store.insertErr = errors.New("disk full")

	failing := f.manager.SubmitAsync(ctx, submitAt("A", time.Unix(1000, 0)))
	if _, err := f.manager.Submit(ctx, submitAt("A", time.Unix(1000, 0))); !errors.Is(err, qrerrors.ErrCooldownActive) {
		t.Fatalf("expected cooldown while the first write is pending, got %v", err)
	}

	close(f.store.block)
	if _, err := failing.Wait(ctx); !errors.Is(err, qrerrors.ErrStorageFailed) {
		t.Fatalf("expected storage failure, got %v", err)
	}

	f.store.mu.Lock()
	f.store.insertErr = nil
	f.store.mu.Unlock()

	if _, err := f.manager.Submit(ctx, submitAt("A", time.Unix(1001, 0))); err != nil {
		t.Fatalf("retry after failed write: %v", err)
	}
}

func TestZeroOptionsUseDefaultCooldown(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newMemStore()
	manager := NewManager(store, cooldown.NewLimiter(), nil, nil, Options{})

	if manager.opts.Cooldown != DefaultCooldown {
		t.Fatalf("expected default cooldown, got %v", manager.opts.Cooldown)
	}
	if _, err := manager.Submit(ctx, submitAt("A", time.Unix(1000, 0))); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	_, err := manager.Submit(ctx, submitAt("A", time.Unix(1001, 0)))
	var cooldownErr *qrerrors.CooldownError
	if !errors.As(err, &cooldownErr) || cooldownErr.RemainingSeconds() != 59 {
		t.Fatalf("expected 59s cooldown, got %v", err)
	}
	if store.count() != 1 {
		t.Fatalf("expected one stored report, got %d", store.count())
	}
}

func TestPanickingTaskIsFinished(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	store := newMemStore()
	store.panicMsg = "driver exploded"
	limiter := cooldown.NewLimiter()
	manager := NewManager(store, limiter, nil, nil, Options{})
	manager.tracer = provider.Tracer("reports_test")

	if _, err := manager.Submit(ctx, submitAt("A", time.Unix(1000, 0))); err == nil {
		t.Fatalf("expected an error from the panicking store")
	}

	ended := recorder.Ended()
	if len(ended) != 1 {
		t.Fatalf("expected the submit span to be ended, got %d spans", len(ended))
	}
	var outcome string
	for _, kv := range ended[0].Attributes() {
		if kv.Key == attribute.Key("outcome") {
			outcome = kv.Value.AsString()
		}
	}
	if outcome != "aborted" {
		t.Fatalf("expected aborted outcome, got %q", outcome)
	}

	store.mu.Lock()
	store.panicMsg = ""
	store.mu.Unlock()
	if _, err := manager.Submit(ctx, submitAt("A", time.Unix(1000, 0))); err != nil {
		t.Fatalf("panicked submission must not hold the submitter: %v", err)
	}
}
