package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/bitfsorg/constitution-go/constitution"
	"github.com/bitfsorg/constitution-go/payout"
)

var (
	bucketConstitution = []byte("constitution")
	bucketPayouts      = []byte("payouts")
	keyState           = []byte("state")
)

// DefaultFileName is the database file name inside the data directory.
const DefaultFileName = "constitution.db"

// BoltStore persists the ledger record in a bbolt database using the
// binary layout of constitution.State. Outbox entries live in their own
// bucket, keyed by a big-endian sequence number, as JSON.
type BoltStore struct {
	db *bbolt.DB
}

// Compile-time interface check.
var _ Store = (*BoltStore)(nil)

// Open opens or creates the bbolt database at dbPath.
// The parent directory is created if it does not exist.
func Open(dbPath string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("store: create directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("store: open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketConstitution, bucketPayouts} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("store: create bucket %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Path returns the database file path.
func (b *BoltStore) Path() string { return b.db.Path() }

// Close closes the underlying database.
func (b *BoltStore) Close() error { return b.db.Close() }

// Init stores the initial record.
func (b *BoltStore) Init(ctx context.Context, s *constitution.State) error {
	if s == nil {
		return fmt.Errorf("%w: state", ErrNilParam)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.Validate(); err != nil {
		return err
	}
	data, err := s.MarshalBinary()
	if err != nil {
		return err
	}

	return b.db.Update(func(tx *bbolt.Tx) error {
		bkt := tx.Bucket(bucketConstitution)
		if bkt.Get(keyState) != nil {
			return constitution.ErrAlreadyInitialized
		}
		if err := bkt.Put(keyState, data); err != nil {
			return fmt.Errorf("store: put state: %w", err)
		}
		return nil
	})
}

// View decodes the stored record and passes it to fn.
func (b *BoltStore) View(ctx context.Context, fn func(*constitution.State) error) error {
	if fn == nil {
		return fmt.Errorf("%w: fn", ErrNilParam)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var s *constitution.State
	err := b.db.View(func(tx *bbolt.Tx) error {
		var err error
		s, err = loadState(tx)
		return err
	})
	if err != nil {
		return err
	}
	return fn(s)
}

// Update decodes the record, runs fn and writes the result back within one
// bbolt write transaction. Nothing is written if fn fails.
func (b *BoltStore) Update(ctx context.Context, fn func(*constitution.State) error) error {
	if fn == nil {
		return fmt.Errorf("%w: fn", ErrNilParam)
	}
	return b.UpdateWithPayout(ctx, func(s *constitution.State) (payout.Request, error) {
		return payout.Request{}, fn(s)
	})
}

// UpdateWithPayout is Update that also appends the returned request to the
// payouts bucket in the same transaction. A request with an empty ID is not
// queued.
func (b *BoltStore) UpdateWithPayout(ctx context.Context, fn func(*constitution.State) (payout.Request, error)) error {
	if fn == nil {
		return fmt.Errorf("%w: fn", ErrNilParam)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	return b.db.Update(func(tx *bbolt.Tx) error {
		s, err := loadState(tx)
		if err != nil {
			return err
		}
		req, err := fn(s)
		if err != nil {
			return err
		}
		data, err := s.MarshalBinary()
		if err != nil {
			return err
		}
		if err := tx.Bucket(bucketConstitution).Put(keyState, data); err != nil {
			return fmt.Errorf("store: put state: %w", err)
		}
		if req.ID == "" {
			return nil
		}
		return putPayout(tx, req)
	})
}

// PendingPayouts decodes the payouts bucket in key order.
func (b *BoltStore) PendingPayouts(ctx context.Context) ([]payout.Request, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []payout.Request
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketPayouts).ForEach(func(k, v []byte) error {
			var req payout.Request
			if err := json.Unmarshal(v, &req); err != nil {
				return fmt.Errorf("store: decode payout %x: %w", k, err)
			}
			out = append(out, req)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AckPayout deletes the entry whose request ID is id.
func (b *BoltStore) AckPayout(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return b.db.Update(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketPayouts).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var req payout.Request
			if err := json.Unmarshal(v, &req); err != nil {
				return fmt.Errorf("store: decode payout %x: %w", k, err)
			}
			if req.ID == id {
				if err := c.Delete(); err != nil {
					return fmt.Errorf("store: delete payout %s: %w", id, err)
				}
				return nil
			}
		}
		return nil
	})
}

func putPayout(tx *bbolt.Tx, req payout.Request) error {
	bkt := tx.Bucket(bucketPayouts)
	seq, err := bkt.NextSequence()
	if err != nil {
		return fmt.Errorf("store: payout sequence: %w", err)
	}
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("store: encode payout: %w", err)
	}
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	if err := bkt.Put(key, data); err != nil {
		return fmt.Errorf("store: put payout: %w", err)
	}
	return nil
}

func loadState(tx *bbolt.Tx) (*constitution.State, error) {
	data := tx.Bucket(bucketConstitution).Get(keyState)
	if data == nil {
		return nil, constitution.ErrNotInitialized
	}
	var s constitution.State
	if err := s.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return &s, nil
}
