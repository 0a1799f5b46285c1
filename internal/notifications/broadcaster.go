package notifications

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/aquawaran/Clon-Official/internal/observability"
)

const (
	// DefaultQueueSize is the number of events buffered ahead of the dispatcher.
	DefaultQueueSize = 1024
	publishTimeout   = 2 * time.Second
)

type queuedEvent struct {
	kind        EventKind
	audience    Audience
	recipientID string
	frame       []byte
}

// Broadcaster fans events out to websocket clients. Emit calls never block:
// events are queued and a single dispatcher delivers them in FIFO order, so
// events emitted in sequence reach each client in that sequence.
type Broadcaster struct {
	hub      *Hub
	notifier *Notifier

	queue   chan queuedEvent
	stop    chan struct{}
	done    chan struct{}
	started sync.Once
	stopped sync.Once
}

// NewBroadcaster creates a Broadcaster delivering through notifier when Redis
// is configured and straight to hub otherwise.
func NewBroadcaster(hub *Hub, notifier *Notifier, queueSize int) *Broadcaster {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Broadcaster{
		hub:      hub,
		notifier: notifier,
		queue:    make(chan queuedEvent, queueSize),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// EmitAll queues an event for every connected user.
func (b *Broadcaster) EmitAll(kind EventKind, payload interface{}) {
	b.enqueue(Event{Kind: kind, Audience: AudienceAll, Payload: payload})
}

// EmitTo queues an event for one user.
func (b *Broadcaster) EmitTo(userID string, kind EventKind, payload interface{}) {
	b.enqueue(Event{Kind: kind, Audience: AudienceUser, RecipientID: userID, Payload: payload})
}

func (b *Broadcaster) enqueue(ev Event) {
	frame, err := EncodeFrame(ev.Kind, ev.Payload)
	if err != nil {
		observability.BroadcastDrops.WithLabelValues("encode").Inc()
		slog.Error("failed to encode event", slog.String("kind", string(ev.Kind)), slog.String("error", err.Error()))
		return
	}

	select {
	case <-b.stop:
		observability.BroadcastDrops.WithLabelValues("stopped").Inc()
		return
	default:
	}

	select {
	case b.queue <- queuedEvent{kind: ev.Kind, audience: ev.Audience, recipientID: ev.RecipientID, frame: frame}:
	default:
		observability.BroadcastDrops.WithLabelValues("queue_full").Inc()
		slog.Warn("broadcast queue full, dropping event", slog.String("kind", string(ev.Kind)))
	}
}

// Start launches the dispatcher. It returns immediately.
func (b *Broadcaster) Start() {
	b.started.Do(func() {
		go b.run()
	})
}

// Stop delivers whatever is already queued and stops the dispatcher.
func (b *Broadcaster) Stop(ctx context.Context) error {
	b.stopped.Do(func() { close(b.stop) })
	b.Start()
	select {
	case <-b.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Broadcaster) run() {
	defer close(b.done)
	for {
		select {
		case ev := <-b.queue:
			b.dispatch(ev)
		case <-b.stop:
			for {
				select {
				case ev := <-b.queue:
					b.dispatch(ev)
				default:
					return
				}
			}
		}
	}
}

func (b *Broadcaster) dispatch(ev queuedEvent) {
	observability.BroadcastEvents.WithLabelValues(string(ev.kind), string(ev.audience)).Inc()

	if b.notifier.Enabled() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		var err error
		if ev.audience == AudienceAll {
			err = b.notifier.PublishBroadcast(ctx, ev.frame)
		} else {
			err = b.notifier.PublishUser(ctx, ev.recipientID, ev.frame)
		}
		cancel()
		if err == nil {
			return
		}
		if !shouldDeliverLocally(err) {
			observability.BroadcastDrops.WithLabelValues("publish_timeout").Inc()
			slog.Warn("redis publish timed out, dropping event",
				slog.String("kind", string(ev.kind)),
				slog.String("error", err.Error()),
			)
			return
		}
		slog.Warn("redis publish failed, delivering locally",
			slog.String("kind", string(ev.kind)),
			slog.String("error", err.Error()),
		)
	}

	if b.hub == nil {
		return
	}
	if ev.audience == AudienceAll {
		b.hub.BroadcastAll(ev.frame)
	} else {
		b.hub.Broadcast(ev.recipientID, ev.frame)
	}
}

// shouldDeliverLocally reports whether a failed publish can fall back to the
// local hub. After a timeout the command may still have reached Redis, and
// the subscriber would then deliver the event a second time.
func shouldDeliverLocally(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return false
	}
	return true
}
