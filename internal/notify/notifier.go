package notify

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/quickreport/internal/db"
	"github.com/iamwavecut/quickreport/internal/event"
	"github.com/iamwavecut/quickreport/internal/i18n"
)

const (
	MsgAdminNewReport    = "New report (ID: {{ .id }}) against {{ .reported }}."
	MsgAcceptedReporter  = "Your report #{{ .id }} against {{ .reported }} was accepted by {{ .operator }}. Thank you!"
	MsgAcceptedReported  = "A report against you (#{{ .id }}) was accepted by {{ .operator }}."
	MsgRejectedReporter  = "Your report #{{ .id }} against {{ .reported }} was rejected by {{ .operator }}. Reason: {{ .reason }}"
	MsgRejectedReported  = "A report against you (#{{ .id }}) was rejected by {{ .operator }}."
	MsgOperatorProcessed = "Report {{ .id }} successfully processed as {{ .status }}."
)

// Messages lists every key the notifier renders.
var Messages = []string{
	MsgAdminNewReport,
	MsgAcceptedReporter,
	MsgAcceptedReported,
	MsgRejectedReporter,
	MsgRejectedReported,
	MsgOperatorProcessed,
}

type subscriber interface {
	Subscribe(eventType string, handler event.Handler)
}

// Notifier fans bus events out to the people who should hear about them.
type Notifier struct {
	directory  Directory
	sender     Sender
	isOperator Permission
	catalog    *i18n.Catalog
	l          *log.Entry
}

func NewNotifier(directory Directory, sender Sender, isOperator Permission, catalog *i18n.Catalog) *Notifier {
	return &Notifier{
		directory:  directory,
		sender:     sender,
		isOperator: isOperator,
		catalog:    catalog,
		l:          log.WithField("context", "notifier"),
	}
}

func (n *Notifier) Register(bus subscriber) {
	bus.Subscribe(TypeReportCreated, n.handleCreated)
	bus.Subscribe(TypeReportResolved, n.handleResolved)
}

func (n *Notifier) handleCreated(ctx context.Context, e event.Event) {
	ev, ok := e.(*reportCreatedEvent)
	if !ok {
		return
	}
	text := n.catalog.Render(MsgAdminNewReport, map[string]any{
		"id":       ev.Payload.ID,
		"reported": ev.Payload.ReportedName,
	})
	for _, r := range n.directory.Online(ctx) {
		if n.isOperator == nil || !n.isOperator(r) {
			continue
		}
		n.send(ctx, ev.Payload.ID, r, text)
	}
}

func (n *Notifier) handleResolved(ctx context.Context, e event.Event) {
	ev, ok := e.(*reportResolvedEvent)
	if !ok {
		return
	}
	p := ev.Payload
	vars := map[string]any{
		"id":       p.ID,
		"reported": p.ReportedName,
		"operator": p.OperatorName,
		"reason":   p.RejectionReason,
		"status":   p.Decision.DisplayName(),
	}

	reporterMsg, reportedMsg := MsgAcceptedReporter, MsgAcceptedReported
	if p.Decision == db.StatusRejected {
		reporterMsg, reportedMsg = MsgRejectedReporter, MsgRejectedReported
	}

	sent := map[string]struct{}{}
	if r, ok := n.directory.Lookup(ctx, p.ReporterID); ok {
		n.send(ctx, p.ID, r, n.catalog.Render(reporterMsg, vars))
		sent[r.ID] = struct{}{}
	}
	if r, ok := n.directory.Lookup(ctx, p.ReportedID); ok {
		if _, dup := sent[r.ID]; !dup {
			n.send(ctx, p.ID, r, n.catalog.Render(reportedMsg, vars))
			sent[r.ID] = struct{}{}
		}
	}

	if p.OperatorID == "" {
		return
	}
	operator, ok := n.directory.Lookup(ctx, p.OperatorID)
	if !ok {
		operator = Recipient{ID: p.OperatorID, Name: p.OperatorName}
	}
	if _, dup := sent[operator.ID]; !dup {
		n.send(ctx, p.ID, operator, n.catalog.Render(MsgOperatorProcessed, vars))
	}
}

func (n *Notifier) send(ctx context.Context, reportID int64, to Recipient, text string) {
	if err := n.sender.Send(ctx, to, text); err != nil {
		n.l.WithError(err).WithFields(log.Fields{
			"report_id": reportID,
			"to_id":     to.ID,
		}).Warn("notification failed, dropped")
	}
}
