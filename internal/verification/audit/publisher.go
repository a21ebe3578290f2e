package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	dErrors "landtrust/pkg/domain-errors"
)

const sendTimeout = 5 * time.Second

// Publisher hands events to a Sink, optionally through a bounded buffer
// drained by a background goroutine.
type Publisher struct {
	sink   Sink
	events chan Event
	wg     sync.WaitGroup
	logger *slog.Logger
	async  bool

	mu     sync.RWMutex
	closed bool
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithAsyncBuffer queues up to size events and sends them in the background.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		if size > 0 {
			p.events = make(chan Event, size)
			p.async = true
		}
	}
}

// WithLogger sets the logger used for background delivery failures.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func NewPublisher(sink Sink, opts ...Option) *Publisher {
	p := &Publisher{sink: sink, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	if p.async {
		p.wg.Add(1)
		go p.drain()
	}
	return p
}

func (p *Publisher) drain() {
	defer p.wg.Done()
	for event := range p.events {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		if err := p.sink.Send(ctx, event); err != nil {
			p.logger.Error("failed to deliver audit event",
				"error", err,
				"report_id", event.ReportID,
				"request_id", event.RequestID,
			)
		}
		cancel()
	}
}

// Publish delivers event. In async mode it never blocks: a full buffer
// drops the event and returns an error.
func (p *Publisher) Publish(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if !p.async {
		return p.sink.Send(ctx, event)
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return dErrors.New(dErrors.CodeUnavailable, "audit publisher closed")
	}
	select {
	case p.events <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		p.logger.WarnContext(ctx, "audit buffer full, event dropped",
			"report_id", event.ReportID,
			"request_id", event.RequestID,
		)
		return dErrors.New(dErrors.CodeUnavailable, "audit buffer full")
	}
}

// Close stops accepting events and waits for the buffer to drain.
func (p *Publisher) Close() {
	if !p.async {
		return
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.events)
	p.mu.Unlock()
	p.wg.Wait()
}
