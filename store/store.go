// Package store persists the single constitution ledger record.
//
// A Store holds at most one record. Init creates it exactly once; View and
// Update operate on it afterwards. Update is all-or-nothing: the callback
// mutates a private copy, and the copy replaces the stored record only when
// the callback returns nil.
//
// The store also keeps the payout outbox: requests recorded by
// UpdateWithPayout in the same commit as the record, and removed with
// AckPayout once settled.
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/bitfsorg/constitution-go/constitution"
	"github.com/bitfsorg/constitution-go/payout"
)

// Store is the persistence boundary of the host runtime.
type Store interface {
	// Init stores the initial record. It fails with
	// constitution.ErrAlreadyInitialized if a record already exists.
	Init(ctx context.Context, s *constitution.State) error

	// View passes a copy of the stored record to fn.
	// It fails with constitution.ErrNotInitialized if no record exists.
	View(ctx context.Context, fn func(*constitution.State) error) error

	// Update passes a copy of the stored record to fn and persists the
	// copy if fn returns nil.
	Update(ctx context.Context, fn func(*constitution.State) error) error

	// UpdateWithPayout is Update that also appends the request returned by
	// fn to the outbox. Record and request are committed together or not
	// at all.
	UpdateWithPayout(ctx context.Context, fn func(*constitution.State) (payout.Request, error)) error

	// PendingPayouts returns the outbox in the order requests were added.
	PendingPayouts(ctx context.Context) ([]payout.Request, error)

	// AckPayout removes the request with id from the outbox. Unknown ids
	// are ignored.
	AckPayout(ctx context.Context, id string) error

	// Close releases the underlying resources.
	Close() error
}

// MemStore is an in-memory implementation of Store for tests and dry runs.
type MemStore struct {
	mu     sync.RWMutex
	state  *constitution.State
	outbox []payout.Request
	closed bool
}

// Compile-time interface check.
var _ Store = (*MemStore)(nil)

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{}
}

// Init stores the initial record.
func (m *MemStore) Init(ctx context.Context, s *constitution.State) error {
	if s == nil {
		return fmt.Errorf("%w: state", ErrNilParam)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if m.state != nil {
		return constitution.ErrAlreadyInitialized
	}
	m.state = s.Clone()
	return nil
}

// View passes a copy of the stored record to fn.
func (m *MemStore) View(ctx context.Context, fn func(*constitution.State) error) error {
	if fn == nil {
		return fmt.Errorf("%w: fn", ErrNilParam)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return ErrClosed
	}
	if m.state == nil {
		m.mu.RUnlock()
		return constitution.ErrNotInitialized
	}
	cp := m.state.Clone()
	m.mu.RUnlock()

	return fn(cp)
}

// Update runs fn on a copy and swaps it in on success.
func (m *MemStore) Update(ctx context.Context, fn func(*constitution.State) error) error {
	if fn == nil {
		return fmt.Errorf("%w: fn", ErrNilParam)
	}
	return m.UpdateWithPayout(ctx, func(s *constitution.State) (payout.Request, error) {
		return payout.Request{}, fn(s)
	})
}

// UpdateWithPayout runs fn on a copy, then swaps it in and queues the
// returned request. A request with an empty ID is not queued.
func (m *MemStore) UpdateWithPayout(ctx context.Context, fn func(*constitution.State) (payout.Request, error)) error {
	if fn == nil {
		return fmt.Errorf("%w: fn", ErrNilParam)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if m.state == nil {
		return constitution.ErrNotInitialized
	}

	cp := m.state.Clone()
	req, err := fn(cp)
	if err != nil {
		return err
	}
	m.state = cp
	if req.ID != "" {
		m.outbox = append(m.outbox, req)
	}
	return nil
}

// PendingPayouts returns a copy of the outbox.
func (m *MemStore) PendingPayouts(ctx context.Context) ([]payout.Request, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	out := make([]payout.Request, len(m.outbox))
	copy(out, m.outbox)
	return out, nil
}

// AckPayout drops id from the outbox.
func (m *MemStore) AckPayout(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	for i, req := range m.outbox {
		if req.ID == id {
			m.outbox = append(m.outbox[:i], m.outbox[i+1:]...)
			break
		}
	}
	return nil
}

// Close marks the store closed. Further calls fail with ErrClosed.
func (m *MemStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
