package auraclient

import (
	"errors"

	"github.com/dgraph-io/badger/v4"
)

// BadgerStateStore is a durable StateStore backed by an embedded BadgerDB.
// It is what keeps circuit state across process restarts.
type BadgerStateStore struct {
	db *badger.DB
}

// BadgerStoreOptions configures the embedded database.
type BadgerStoreOptions struct {
	// Path is the directory for the database files. Ignored when InMemory.
	Path string

	// InMemory disables disk persistence. Useful for tests.
	InMemory bool

	// SyncWrites forces an fsync per write. Circuit records are small and
	// rewritten often, so the default is false.
	SyncWrites bool
}

// NewBadgerStateStore opens (or creates) the database at opts.Path.
func NewBadgerStateStore(opts BadgerStoreOptions) (*BadgerStateStore, error) {
	badgerOpts := badger.DefaultOptions(opts.Path).
		WithInMemory(opts.InMemory).
		WithSyncWrites(opts.SyncWrites).
		WithLogger(nil)
	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, err
	}
	return &BadgerStateStore{db: db}, nil
}

// Close releases the database. The store must not be used afterwards.
func (s *BadgerStateStore) Close() error {
	return s.db.Close()
}

func (s *BadgerStateStore) Get(key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (s *BadgerStateStore) Set(key string, value []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

func (s *BadgerStateStore) Delete(key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

func (s *BadgerStateStore) Keys(prefix string) ([]string, error) {
	var keys []string
	err := s.db.View(func(txn *badger.Txn) error {
		itOpts := badger.DefaultIteratorOptions
		itOpts.PrefetchValues = false
		itOpts.Prefix = []byte(prefix)
		it := txn.NewIterator(itOpts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	return keys, err
}
