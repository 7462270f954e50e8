// Package store backs the auction state with goleveldb. Keys iterate in byte order,
// every execute call runs in one exclusive transaction, and queries read from
// point-in-time snapshots.
package store

import (
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/cloudx-io/escrowauction/core"
)

// DB is a leveldb database holding a single auction instance.
type DB struct {
	db *leveldb.DB
}

// Open opens (or creates) a database at path.
func Open(path string) (*DB, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{ErrorIfMissing: false})
	if err != nil {
		return nil, fmt.Errorf("failed to open leveldb at %s: %w", path, err)
	}
	return &DB{db: db}, nil
}

// OpenMemory opens a database that lives only in memory.
func OpenMemory() (*DB, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory leveldb: %w", err)
	}
	return &DB{db: db}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

// Get reads a committed value.
func (d *DB) Get(key []byte) ([]byte, error) {
	return translate(d.db.Get(key, nil))
}

// Set writes outside any transaction.
func (d *DB) Set(key, value []byte) error {
	return d.db.Put(key, value, nil)
}

func (d *DB) Iterate(prefix []byte, fn func(key, value []byte) error) error {
	return iterate(d.db.NewIterator(util.BytesPrefix(prefix), nil), fn)
}

// Begin opens an exclusive transaction. Other writers block until it is committed
// or discarded.
func (d *DB) Begin() (*Txn, error) {
	tr, err := d.db.OpenTransaction()
	if err != nil {
		return nil, fmt.Errorf("failed to open transaction: %w", err)
	}
	return &Txn{tr: tr}, nil
}

// Snapshot returns a consistent read view. Callers must Release it.
func (d *DB) Snapshot() (*Snapshot, error) {
	snap, err := d.db.GetSnapshot()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire snapshot: %w", err)
	}
	return &Snapshot{snap: snap}, nil
}

// Txn buffers writes until Commit. Reads observe the transaction's own writes.
type Txn struct {
	tr *leveldb.Transaction
}

func (t *Txn) Get(key []byte) ([]byte, error) {
	return translate(t.tr.Get(key, nil))
}

func (t *Txn) Set(key, value []byte) error {
	return t.tr.Put(key, value, nil)
}

func (t *Txn) Iterate(prefix []byte, fn func(key, value []byte) error) error {
	return iterate(t.tr.NewIterator(util.BytesPrefix(prefix), nil), fn)
}

func (t *Txn) Commit() error {
	if err := t.tr.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Discard drops every write. It is a no-op after Commit.
func (t *Txn) Discard() {
	t.tr.Discard()
}

// Snapshot is a read-only view of committed state.
type Snapshot struct {
	snap *leveldb.Snapshot
}

func (s *Snapshot) Get(key []byte) ([]byte, error) {
	return translate(s.snap.Get(key, nil))
}

func (s *Snapshot) Iterate(prefix []byte, fn func(key, value []byte) error) error {
	return iterate(s.snap.NewIterator(util.BytesPrefix(prefix), nil), fn)
}

func (s *Snapshot) Release() {
	s.snap.Release()
}

func translate(value []byte, err error) ([]byte, error) {
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, core.ErrNotFound
	}
	return value, err
}

func iterate(it iterator.Iterator, fn func(key, value []byte) error) error {
	defer it.Release()
	for it.Next() {
		if err := fn(it.Key(), it.Value()); err != nil {
			return err
		}
	}
	return it.Error()
}

var (
	_ core.KVStore   = (*DB)(nil)
	_ core.KVStore   = (*Txn)(nil)
	_ core.ReadStore = (*Snapshot)(nil)
)
