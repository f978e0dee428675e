package notify

import (
	"time"

	"github.com/iamwavecut/quickreport/internal/db"
	"github.com/iamwavecut/quickreport/internal/event"
)

const (
	TypeReportCreated  = "report_created"
	TypeReportResolved = "report_resolved"
)

type (
	ReportCreated struct {
		ID           int64
		ReporterID   string
		ReportedName string
	}

	ReportResolved struct {
		ID              int64
		Decision        db.Status
		ReporterID      string
		ReporterName    string
		ReportedID      string
		ReportedName    string
		OperatorID      string
		OperatorName    string
		RejectionReason string
	}

	reportCreatedEvent struct {
		*event.Base
		Payload ReportCreated
	}

	reportResolvedEvent struct {
		*event.Base
		Payload ReportResolved
	}
)

func newReportCreatedEvent(e ReportCreated, expiresAt time.Time) *reportCreatedEvent {
	return &reportCreatedEvent{
		Base:    event.CreateBase(TypeReportCreated, e.ID, expiresAt),
		Payload: e,
	}
}

func newReportResolvedEvent(e ReportResolved, expiresAt time.Time) *reportResolvedEvent {
	return &reportResolvedEvent{
		Base:    event.CreateBase(TypeReportResolved, e.ID, expiresAt),
		Payload: e,
	}
}
