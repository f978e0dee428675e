package notify

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/quickreport/internal/event"
)

// Dispatcher receives report lifecycle events. Implementations must not
// block the caller and must not report failures back to it.
type Dispatcher interface {
	OnReportCreated(ctx context.Context, e ReportCreated)
	OnReportResolved(ctx context.Context, e ReportResolved)
}

type publisher interface {
	Publish(event event.Event) bool
}

// BusDispatcher turns lifecycle events into bus events keyed by report id.
type BusDispatcher struct {
	bus publisher
	ttl time.Duration
	now func() time.Time
	l   *log.Entry
}

func NewBusDispatcher(bus publisher, ttl time.Duration) *BusDispatcher {
	return &BusDispatcher{
		bus: bus,
		ttl: ttl,
		now: time.Now,
		l:   log.WithField("context", "dispatcher"),
	}
}

func (d *BusDispatcher) expiresAt() time.Time {
	if d.ttl <= 0 {
		return time.Time{}
	}
	return d.now().Add(d.ttl)
}

func (d *BusDispatcher) OnReportCreated(_ context.Context, e ReportCreated) {
	if !d.bus.Publish(newReportCreatedEvent(e, d.expiresAt())) {
		d.l.WithField("report_id", e.ID).Warn("report created notification dropped")
	}
}

func (d *BusDispatcher) OnReportResolved(_ context.Context, e ReportResolved) {
	if !d.bus.Publish(newReportResolvedEvent(e, d.expiresAt())) {
		d.l.WithField("report_id", e.ID).Warn("report resolved notification dropped")
	}
}
