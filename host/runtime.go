// Package host runs the constitution ledger: it serializes calls, loads and
// commits the persisted record around each one, and settles royalty payouts
// through a payout dispatcher.
//
// A royalty request is written to the store's outbox in the same commit as
// the totals it belongs to. The dispatcher is fed from the outbox, and an
// entry is removed only once its settlement succeeds, so a request that could
// not be queued, or was still queued at shutdown, is retried by the next
// FlushPayouts. Delivery is at least once.
package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bitfsorg/constitution-go/account"
	"github.com/bitfsorg/constitution-go/amount"
	"github.com/bitfsorg/constitution-go/constitution"
	"github.com/bitfsorg/constitution-go/payout"
	"github.com/bitfsorg/constitution-go/store"
)

// Runtime executes ledger operations one at a time against a Store.
type Runtime struct {
	mu         sync.Mutex
	closed     bool
	store      store.Store
	dispatcher *payout.Dispatcher
	logger     *slog.Logger
	payoutOpts []payout.Option

	// inflightMu guards inflight, the outbox entries handed to the
	// dispatcher and not yet settled.
	inflightMu sync.Mutex
	inflight   map[string]struct{}
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runtime) {
		r.logger = logger
	}
}

// WithPayoutOptions configures the payout dispatcher. The result handler is
// owned by the runtime; a WithResultHandler passed here is replaced.
func WithPayoutOptions(opts ...payout.Option) Option {
	return func(r *Runtime) {
		r.payoutOpts = append(r.payoutOpts, opts...)
	}
}

// New returns a runtime over st that settles payouts through sink.
func New(st store.Store, sink payout.Sink, opts ...Option) (*Runtime, error) {
	if st == nil {
		return nil, fmt.Errorf("%w: store", ErrNilParam)
	}
	if sink == nil {
		return nil, fmt.Errorf("%w: sink", ErrNilParam)
	}
	r := &Runtime{
		store:    st,
		logger:   slog.Default(),
		inflight: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}

	dopts := append([]payout.Option{payout.WithLogger(r.logger)}, r.payoutOpts...)
	dopts = append(dopts, payout.WithResultHandler(r.settled))
	d, err := payout.NewDispatcher(sink, dopts...)
	if err != nil {
		return nil, err
	}
	r.dispatcher = d
	return r, nil
}

// Initialize creates the ledger for creator. It succeeds once per store.
func (r *Runtime) Initialize(ctx context.Context, creator account.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}

	if creator.IsZero() {
		return fmt.Errorf("%w: creator", account.ErrInvalidAccount)
	}
	s := constitution.New(creator)
	if err := r.store.Init(ctx, s); err != nil {
		r.reject(ctx, "initialize", creator, err)
		return err
	}

	r.logger.InfoContext(ctx, "constitution initialized",
		"creator", creator.String(),
		"royalty_bps", s.RoyaltyBps,
		"autonomous_limit", s.AutonomousLimit.String(),
	)
	return nil
}

// DistributeRevenue books amt as revenue and requests the creator's royalty.
// The request is committed to the outbox together with the new totals, then
// handed to the dispatcher; its settlement never affects this call. caller
// is recorded for audit only.
func (r *Runtime) DistributeRevenue(ctx context.Context, caller account.ID, amt amount.Amount) (payout.Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return payout.Request{}, ErrClosed
	}

	var (
		req payout.Request
		rev amount.Amount
	)
	err := r.store.UpdateWithPayout(ctx, func(s *constitution.State) (payout.Request, error) {
		p, err := s.DistributeRevenue(amt)
		if err != nil {
			return payout.Request{}, err
		}
		req = payout.NewRequest(p.To, p.Amount, payout.ReasonRoyalty)
		rev = s.TotalRevenue
		return req, nil
	})
	if err != nil {
		r.reject(ctx, "distribute_revenue", caller, err, "amount", amt.String())
		return payout.Request{}, err
	}

	r.logger.InfoContext(ctx, "revenue distributed",
		"caller", caller.String(),
		"amount", amt.String(),
		"royalty", req.Amount.String(),
		"total_revenue", rev.String(),
		"payout_id", req.ID,
	)
	if _, err := r.flush(ctx); err != nil {
		r.logger.ErrorContext(ctx, "payout outbox not read", "payout_id", req.ID, "error", err)
	}
	return req, nil
}

// FlushPayouts hands every outbox entry that is not already queued to the
// dispatcher and returns how many were queued. Entries that do not fit in the
// queue stay in the outbox for a later flush.
func (r *Runtime) FlushPayouts(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return 0, ErrClosed
	}
	return r.flush(ctx)
}

// PendingPayouts returns the requests not yet settled.
func (r *Runtime) PendingPayouts(ctx context.Context) ([]payout.Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	return r.store.PendingPayouts(ctx)
}

// flush requires r.mu. inflightMu is held across the outbox read so that an
// entry acknowledged by settled cannot be read back and resubmitted.
func (r *Runtime) flush(ctx context.Context) (int, error) {
	r.inflightMu.Lock()
	pending, err := r.store.PendingPayouts(ctx)
	if err != nil {
		r.inflightMu.Unlock()
		return 0, err
	}
	var batch []payout.Request
	for _, req := range pending {
		if _, ok := r.inflight[req.ID]; ok {
			continue
		}
		r.inflight[req.ID] = struct{}{}
		batch = append(batch, req)
	}
	r.inflightMu.Unlock()

	for i, req := range batch {
		if err := r.dispatcher.Submit(req); err != nil {
			r.release(batch[i:])
			r.logger.WarnContext(ctx, "payouts deferred",
				"deferred", len(batch)-i,
				"error", err,
			)
			return i, nil
		}
	}
	return len(batch), nil
}

func (r *Runtime) release(reqs []payout.Request) {
	r.inflightMu.Lock()
	defer r.inflightMu.Unlock()
	for _, req := range reqs {
		delete(r.inflight, req.ID)
	}
}

// settled runs on the dispatcher worker. Successful and skipped requests
// leave the outbox; failed ones stay for the next flush.
func (r *Runtime) settled(res payout.Result) {
	r.inflightMu.Lock()
	defer r.inflightMu.Unlock()
	defer delete(r.inflight, res.Request.ID)

	if !res.OK() {
		return
	}
	if err := r.store.AckPayout(context.Background(), res.Request.ID); err != nil {
		r.logger.Error("payout not acknowledged",
			"payout_id", res.Request.ID,
			"txid", res.TxID,
			"error", err,
		)
	}
}

// CanSpend reports whether amt is within the autonomous limit.
func (r *Runtime) CanSpend(ctx context.Context, amt amount.Amount) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false, ErrClosed
	}

	var ok bool
	err := r.store.View(ctx, func(s *constitution.State) error {
		ok = s.CanSpend(amt)
		return nil
	})
	if err != nil {
		return false, err
	}
	r.logger.DebugContext(ctx, "can spend", "amount", amt.String(), "allowed", ok)
	return ok, nil
}

// Status returns a snapshot of the public ledger fields.
func (r *Runtime) Status(ctx context.Context) (constitution.Status, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return constitution.Status{}, ErrClosed
	}

	var st constitution.Status
	err := r.store.View(ctx, func(s *constitution.State) error {
		st = s.Status()
		return nil
	})
	if err != nil {
		return constitution.Status{}, err
	}
	r.logger.DebugContext(ctx, "status read")
	return st, nil
}

// Pause stops distributions and autonomous spending.
func (r *Runtime) Pause(ctx context.Context, caller account.ID) error {
	return r.admin(ctx, "pause", caller, func(s *constitution.State) error {
		return s.Pause(caller)
	})
}

// Resume lifts a pause.
func (r *Runtime) Resume(ctx context.Context, caller account.ID) error {
	return r.admin(ctx, "resume", caller, func(s *constitution.State) error {
		return s.Resume(caller)
	})
}

// SetAutonomousLimit replaces the spending ceiling.
func (r *Runtime) SetAutonomousLimit(ctx context.Context, caller account.ID, limit amount.Amount) error {
	return r.admin(ctx, "set_autonomous_limit", caller, func(s *constitution.State) error {
		return s.SetAutonomousLimit(caller, limit)
	}, "limit", limit.String())
}

// Close drains queued payouts, then closes the store. The store is closed
// even when draining is cut short by ctx.
func (r *Runtime) Close(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true

	pending := r.dispatcher.Pending()
	if pending > 0 {
		r.logger.InfoContext(ctx, "draining payouts", "pending", pending)
	}
	drainErr := r.dispatcher.Close(ctx)
	if drainErr != nil {
		r.logger.WarnContext(ctx, "payout queue not drained",
			"pending", r.dispatcher.Pending(),
			"error", drainErr,
		)
	}
	return errors.Join(drainErr, r.store.Close())
}

func (r *Runtime) admin(ctx context.Context, op string, caller account.ID, fn func(*constitution.State) error, attrs ...any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}

	if err := r.store.Update(ctx, fn); err != nil {
		r.reject(ctx, op, caller, err, attrs...)
		return err
	}
	r.logger.InfoContext(ctx, "admin operation applied",
		append([]any{"op", op, "caller", caller.String()}, attrs...)...,
	)
	return nil
}

// reject logs a failed call. Ledger rule violations are warnings; anything
// else is an error.
func (r *Runtime) reject(ctx context.Context, op string, caller account.ID, err error, attrs ...any) {
	level := slog.LevelError
	switch {
	case errors.Is(err, constitution.ErrNotAuthorized),
		errors.Is(err, constitution.ErrPaused),
		errors.Is(err, constitution.ErrArithmeticOverflow),
		errors.Is(err, constitution.ErrAlreadyInitialized),
		errors.Is(err, constitution.ErrNotInitialized):
		level = slog.LevelWarn
	}
	r.logger.Log(ctx, level, "call rejected",
		append([]any{"op", op, "caller", caller.String(), "error", err}, attrs...)...,
	)
}
