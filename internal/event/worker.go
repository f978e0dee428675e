package event

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/quickreport/internal/infra"
)

type Handler func(ctx context.Context, event Event)

// Bus delivers events to subscribers on a fixed set of shard workers.
// Publishing never blocks: when a shard queue is full the event is dropped.
// Handlers run once per event, failures are theirs to log.
type Bus struct {
	shards []chan Event
	now    func() time.Time
	l      *log.Entry

	subMu         sync.RWMutex
	subscriptions map[string][]Handler

	runMu   sync.RWMutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewBus(shards int, queueSize int) *Bus {
	if shards < 1 {
		shards = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	b := &Bus{
		shards:        make([]chan Event, shards),
		now:           time.Now,
		l:             log.WithField("context", "event_bus"),
		subscriptions: map[string][]Handler{},
	}
	for i := range b.shards {
		b.shards[i] = make(chan Event, queueSize)
	}
	return b
}

func (b *Bus) Subscribe(eventType string, handler Handler) {
	b.subMu.Lock()
	defer b.subMu.Unlock()
	b.subscriptions[eventType] = append(b.subscriptions[eventType], handler)
}

// Publish enqueues the event and reports whether it was accepted.
func (b *Bus) Publish(event Event) bool {
	if event == nil {
		return false
	}
	b.runMu.RLock()
	defer b.runMu.RUnlock()
	if !b.started {
		b.l.WithField("event_id", event.ID()).WithField("type", event.Type()).Warn("bus is not running, event dropped")
		return false
	}

	select {
	case b.shardFor(event.Key()) <- event:
		return true
	default:
		b.l.WithField("event_id", event.ID()).WithField("type", event.Type()).Warn("event queue is full, event dropped")
		return false
	}
}

func (b *Bus) shardFor(key int64) chan Event {
	if key < 0 {
		key = -key
	}
	return b.shards[key%int64(len(b.shards))]
}

func (b *Bus) Start(ctx context.Context) error {
	b.runMu.Lock()
	defer b.runMu.Unlock()
	if b.started {
		return nil
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	b.cancel = cancel
	for i, q := range b.shards {
		b.wg.Add(1)
		go func(shard int, q chan Event) {
			defer b.wg.Done()
			b.run(runCtx, shard, q)
		}(i, q)
	}
	b.started = true
	b.l.WithField("shards", len(b.shards)).Trace("event workers go")
	return nil
}

// Stop refuses new events, lets the workers drain what is already queued
// and waits for them or for ctx.
func (b *Bus) Stop(ctx context.Context) error {
	b.runMu.Lock()
	if !b.started {
		b.runMu.Unlock()
		return nil
	}
	b.started = false
	cancel := b.cancel
	b.runMu.Unlock()

	cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		b.wg.Wait()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		b.l.Info("event workers stopped")
		return nil
	}
}

func (b *Bus) run(ctx context.Context, shard int, q chan Event) {
	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case event := <-q:
					b.dispatch(ctx, shard, event)
				default:
					return
				}
			}
		case event := <-q:
			b.dispatch(ctx, shard, event)
		}
	}
}

func (b *Bus) dispatch(ctx context.Context, shard int, event Event) {
	entry := b.l.WithField("shard", shard).WithField("event_id", event.ID()).WithField("type", event.Type())
	if event.Expired(b.now()) {
		entry.Debug("event expired, skipped")
		return
	}

	b.subMu.RLock()
	handlers := b.subscriptions[event.Type()]
	b.subMu.RUnlock()
	if len(handlers) == 0 {
		entry.Trace("no subscribers")
		return
	}

	handlerCtx := context.WithoutCancel(ctx)
	for _, handler := range handlers {
		func() {
			defer infra.Recover(entry, "event_handler")
			handler(handlerCtx, event)
		}()
	}
}

// Pending is the number of queued, not yet dispatched events.
func (b *Bus) Pending() int {
	n := 0
	for _, q := range b.shards {
		n += len(q)
	}
	return n
}
