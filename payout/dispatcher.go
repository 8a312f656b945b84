package payout

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultQueueSize is the number of requests buffered ahead of the sink.
	DefaultQueueSize = 1024

	// DefaultPayTimeout bounds a single Sink.Pay call.
	DefaultPayTimeout = 2 * time.Minute
)

// Dispatcher settles requests in submission order on a single worker
// goroutine. Submit never waits for settlement.
type Dispatcher struct {
	sink       Sink
	logger     *slog.Logger
	onResult   func(Result)
	payTimeout time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan Request
	done   chan struct{}
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithQueueSize sets the queue capacity.
func WithQueueSize(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queue = make(chan Request, n)
		}
	}
}

// WithPayTimeout bounds each Sink.Pay call.
func WithPayTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		d.payTimeout = timeout
	}
}

// WithResultHandler registers fn to observe every settlement outcome. fn
// runs on the worker goroutine.
func WithResultHandler(fn func(Result)) Option {
	return func(d *Dispatcher) {
		d.onResult = fn
	}
}

// NewDispatcher starts a dispatcher that settles requests through sink.
func NewDispatcher(sink Sink, opts ...Option) (*Dispatcher, error) {
	if sink == nil {
		return nil, fmt.Errorf("%w: sink", ErrNilParam)
	}
	d := &Dispatcher{
		sink:       sink,
		logger:     slog.Default(),
		payTimeout: DefaultPayTimeout,
		queue:      make(chan Request, DefaultQueueSize),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}

	go d.worker()
	return d, nil
}

// Submit enqueues req. It fails only if the dispatcher is closed or the
// queue is full; settlement errors are reported through the log and the
// result handler.
func (d *Dispatcher) Submit(req Request) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}
	select {
	case d.queue <- req:
		return nil
	default:
		return fmt.Errorf("%w: %d pending", ErrQueueFull, len(d.queue))
	}
}

// Pending returns the number of queued requests.
func (d *Dispatcher) Pending() int {
	return len(d.queue)
}

// Close stops accepting requests and waits until the queue is drained or
// ctx is done. Requests still queued when ctx expires keep settling in the
// background.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("payout: drain interrupted with %d pending: %w", len(d.queue), ctx.Err())
	}
}

func (d *Dispatcher) worker() {
	defer close(d.done)
	for req := range d.queue {
		res := d.settle(req)
		if d.onResult != nil {
			d.onResult(res)
		}
	}
}

func (d *Dispatcher) settle(req Request) Result {
	if req.Amount.IsZero() {
		d.logger.Debug("payout skipped",
			"id", req.ID,
			"to", req.To.String(),
			"reason", "zero amount",
		)
		return Result{Request: req, Skipped: true}
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.payTimeout)
	defer cancel()

	start := time.Now()
	txid, err := d.sink.Pay(ctx, req)
	if err != nil {
		d.logger.Error("payout failed",
			"id", req.ID,
			"to", req.To.String(),
			"amount", req.Amount.String(),
			"error", err,
		)
		return Result{Request: req, Err: err}
	}

	d.logger.Info("payout settled",
		"id", req.ID,
		"to", req.To.String(),
		"amount", req.Amount.String(),
		"txid", txid,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return Result{Request: req, TxID: txid}
}
