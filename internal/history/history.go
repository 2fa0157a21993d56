// Package history exports child lifecycle events to external analytics
// systems. Delivery is fire-and-forget: a failing destination is logged and
// never stalls supervision.
package history

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"
)

// EventType defines the kind of lifecycle event.
type EventType string

const (
	EventSpawn     EventType = "spawn"
	EventSpawnFail EventType = "spawn_fail"
	EventExit      EventType = "exit"
	EventSignal    EventType = "signal"
	EventForceKill EventType = "force_kill"
	EventResidual  EventType = "residual"
)

// Event is one child lifecycle occurrence. RunID groups the events of a
// single launcher invocation.
type Event struct {
	Type       EventType `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	RunID      string    `json:"run_id"`
	Name       string    `json:"name"`
	PID        int       `json:"pid"`
	ExitCode   int       `json:"exit_code"`
	Detail     string    `json:"detail,omitempty"`
}

// Sink is a destination for history events (analytics/statistics systems).
// Implementations must be safe for concurrent use.
type Sink interface {
	Send(ctx context.Context, e Event) error
}

const (
	fanoutQueueSize = 256
	sendTimeout     = 5 * time.Second
)

// Fanout delivers events to every configured sink from one background
// goroutine. Publish never blocks: when the queue is full the event is
// dropped with a warning.
type Fanout struct {
	sinks []Sink
	log   *slog.Logger
	queue chan Event
	done  chan struct{}
	wg    sync.WaitGroup
	once  sync.Once
}

func NewFanout(sinks []Sink, log *slog.Logger) *Fanout {
	if log == nil {
		log = slog.Default()
	}
	f := &Fanout{
		sinks: sinks,
		log:   log,
		queue: make(chan Event, fanoutQueueSize),
		done:  make(chan struct{}),
	}
	f.wg.Add(1)
	go f.run()
	return f
}

// Publish enqueues an event for delivery. Safe to call after Close; such
// events are silently dropped.
func (f *Fanout) Publish(e Event) {
	select {
	case f.queue <- e:
	default:
		f.log.Warn("history queue full, dropping event", "type", string(e.Type), "name", e.Name)
	}
}

// Close drains queued events, stops the worker and closes closeable sinks.
func (f *Fanout) Close() {
	f.once.Do(func() { close(f.done) })
	f.wg.Wait()
	for _, s := range f.sinks {
		if c, ok := s.(io.Closer); ok {
			_ = c.Close()
		}
	}
}

func (f *Fanout) run() {
	defer f.wg.Done()
	for {
		select {
		case e := <-f.queue:
			f.deliver(e)
		case <-f.done:
			for {
				select {
				case e := <-f.queue:
					f.deliver(e)
				default:
					return
				}
			}
		}
	}
}

func (f *Fanout) deliver(e Event) {
	for _, s := range f.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		if err := s.Send(ctx, e); err != nil {
			f.log.Warn("history sink send failed", "type", string(e.Type), "name", e.Name, "error", err)
		}
		cancel()
	}
}
