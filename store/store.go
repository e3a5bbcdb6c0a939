// ABOUTME: Durable named slots backed by BadgerDB
// ABOUTME: Groups of slots are written and cleared in a single transaction
package store

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dgraph-io/badger/v3"
)

// Slot names used by the session.
const (
	SlotToken    = "token"
	SlotUser     = "user"
	SlotDeviceID = "device_id"
)

const keyPrefix = "slot/"

// lockWait bounds how long an operation waits for another process to
// release the database directory.
const lockWait = 3 * time.Second

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("slot store closed")

// Slots is the persisted client-side state. Store and Remove apply to
// every given slot or to none of them.
type Slots interface {
	Load(names ...string) (map[string][]byte, error)
	Store(values map[string][]byte) error
	Remove(names ...string) error
}

// Badger keeps slots in a local BadgerDB. A directory-backed store opens
// the database only for the length of one transaction, so several
// crmdesk processes can share it.
type Badger struct {
	dir string

	mu     sync.Mutex
	mem    *badger.DB
	closed bool
}

// Open prepares the slot database in dir, creating it if needed.
func Open(dir string) (*Badger, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	b := &Badger{dir: dir}

	// Surface a broken directory now rather than on first use.
	db, err := b.openDir()
	if err != nil {
		return nil, err
	}
	if err := db.Close(); err != nil {
		return nil, fmt.Errorf("failed to close badger: %w", err)
	}
	return b, nil
}

// OpenInMemory opens a throwaway store, used by tests and --ephemeral runs.
func OpenInMemory() (*Badger, error) {
	opts := badger.DefaultOptions("").
		WithInMemory(true).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory badger: %w", err)
	}
	return &Badger{mem: db}, nil
}

func (b *Badger) openDir() (*badger.DB, error) {
	opts := badger.DefaultOptions(b.dir).
		WithLogger(nil).
		WithMemTableSize(4 << 20).
		WithValueLogFileSize(16 << 20)

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 20 * time.Millisecond
	policy.MaxInterval = 250 * time.Millisecond
	policy.MaxElapsedTime = lockWait

	var db *badger.DB
	err := backoff.Retry(func() error {
		var err error
		db, err = badger.Open(opts)
		return err
	}, policy)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	return db, nil
}

// with runs fn against an open database and releases a directory-backed
// one afterwards.
func (b *Badger) with(fn func(db *badger.DB) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}
	if b.mem != nil {
		return fn(b.mem)
	}

	db, err := b.openDir()
	if err != nil {
		return err
	}
	err = fn(db)
	if cerr := db.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("failed to close badger: %w", cerr)
	}
	return err
}

// Close releases the store. Later operations return ErrClosed.
func (b *Badger) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	if b.mem != nil {
		return b.mem.Close()
	}
	return nil
}

// Load returns the requested slots that exist. Missing slots are simply
// absent from the result.
func (b *Badger) Load(names ...string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(names))
	err := b.with(func(db *badger.DB) error {
		return db.View(func(txn *badger.Txn) error {
			for _, name := range names {
				item, err := txn.Get(slotKey(name))
				if errors.Is(err, badger.ErrKeyNotFound) {
					continue
				}
				if err != nil {
					return err
				}
				value, err := item.ValueCopy(nil)
				if err != nil {
					return err
				}
				out[name] = value
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load slots: %w", err)
	}
	return out, nil
}

// Store writes all values in one transaction.
func (b *Badger) Store(values map[string][]byte) error {
	err := b.with(func(db *badger.DB) error {
		return db.Update(func(txn *badger.Txn) error {
			for name, value := range values {
				if err := txn.Set(slotKey(name), value); err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		return fmt.Errorf("failed to store slots: %w", err)
	}
	return nil
}

// Remove deletes the named slots in one transaction. Removing a missing
// slot is not an error.
func (b *Badger) Remove(names ...string) error {
	err := b.with(func(db *badger.DB) error {
		return db.Update(func(txn *badger.Txn) error {
			for _, name := range names {
				if err := txn.Delete(slotKey(name)); err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		return fmt.Errorf("failed to remove slots: %w", err)
	}
	return nil
}

func slotKey(name string) []byte {
	return []byte(keyPrefix + name)
}
