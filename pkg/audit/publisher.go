package audit

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrBufferFull is returned by Emit when the async buffer cannot accept the
// event. The event is dropped and counted; an audit stall must never stall
// the request that produced it.
var ErrBufferFull = errors.New("audit buffer full")

// Publisher fronts a sink. In sync mode Emit publishes inline; with an async
// buffer Emit enqueues and a background goroutine publishes, dropping events
// when the buffer is full.
type Publisher struct {
	sink   Sink
	logger *slog.Logger
	onDrop func()

	buffer chan Event
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithAsyncBuffer switches the publisher to async mode with the given
// buffer size.
func WithAsyncBuffer(size int) PublisherOption {
	return func(p *Publisher) {
		if size > 0 {
			p.buffer = make(chan Event, size)
		}
	}
}

// WithLogger sets the publisher logger.
func WithLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) { p.logger = logger }
}

// WithOnDrop registers a callback invoked once per dropped event. Wiring
// connects it to the dropped-events counter.
func WithOnDrop(fn func()) PublisherOption {
	return func(p *Publisher) { p.onDrop = fn }
}

// NewPublisher builds a publisher over the given sink.
func NewPublisher(sink Sink, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		sink:   sink,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.buffer != nil {
		p.wg.Add(1)
		go p.drain()
	}
	return p
}

// Emit records one event. Missing ID and timestamp are filled in; the
// category always derives from the action, whatever the emitter set.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	event.Category = event.Action.Category()

	if p.buffer == nil {
		return p.sink.Publish(ctx, event)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return nil
	}

	select {
	case p.buffer <- event:
		return nil
	default:
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	p.drop()
	return ErrBufferFull
}

// Close stops the background publisher after draining buffered events.
// Sync publishers close immediately.
func (p *Publisher) Close() {
	if p.buffer == nil {
		return
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.buffer)
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Publisher) drain() {
	defer p.wg.Done()
	for event := range p.buffer {
		// The originating request may be long gone; publishing gets its
		// own bounded context.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := p.sink.Publish(ctx, event); err != nil {
			p.drop()
			p.logger.Debug("audit publish failed",
				"action", event.Action,
				"error", err,
			)
		}
		cancel()
	}
}

func (p *Publisher) drop() {
	if p.onDrop != nil {
		p.onDrop()
	}
}
