// Package badger provides a badger-backed implementation of the storage
// interface for deployments that need rounds, results and agent state to
// survive a coordinator restart.
package badger

import (
	"context"
	"encoding/json"
	"errors"

	pkgerrors "github.com/absmach/colearn/pkg/errors"
	badgerdb "github.com/dgraph-io/badger/v4"
)

// DecodeFunc turns a stored value back into its concrete entity type. Each
// store is scoped to one entity kind, so the codec is fixed per store.
type DecodeFunc func(data []byte) (any, error)

// Decoder builds a DecodeFunc for a concrete type.
func Decoder[T any]() DecodeFunc {
	return func(data []byte) (any, error) {
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}

		return v, nil
	}
}

// Open opens (or creates) the badger database at path.
func Open(path string) (*badgerdb.DB, error) {
	opts := badgerdb.DefaultOptions(path)
	opts.Logger = nil

	return badgerdb.Open(opts)
}

// Storage is a badger-backed key-value store for one entity kind.
type Storage struct {
	db     *badgerdb.DB
	prefix string
	decode DecodeFunc
}

// NewStorage returns a storage backed by db. Keys are namespaced with prefix
// so multiple entity kinds can share one database.
func NewStorage(db *badgerdb.DB, prefix string, decode DecodeFunc) *Storage {
	return &Storage{
		db:     db,
		prefix: prefix + "/",
		decode: decode,
	}
}

func (s *Storage) key(k string) []byte {
	return []byte(s.prefix + k)
}

func (s *Storage) Create(_ context.Context, key string, value any) error {
	if key == "" {
		return pkgerrors.ErrEmptyKey
	}

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badgerdb.Txn) error {
		if _, err := txn.Get(s.key(key)); err == nil {
			return pkgerrors.ErrEntityExists
		} else if !errors.Is(err, badgerdb.ErrKeyNotFound) {
			return err
		}

		return txn.Set(s.key(key), data)
	})
}

func (s *Storage) Get(_ context.Context, key string) (any, error) {
	if key == "" {
		return nil, pkgerrors.ErrEmptyKey
	}

	var raw []byte
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(s.key(key))
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return pkgerrors.ErrNotFound
		}
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)

		return err
	})
	if err != nil {
		return nil, err
	}

	return s.decode(raw)
}

func (s *Storage) Update(_ context.Context, key string, value any) error {
	if key == "" {
		return pkgerrors.ErrEmptyKey
	}

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badgerdb.Txn) error {
		if _, err := txn.Get(s.key(key)); err != nil {
			if errors.Is(err, badgerdb.ErrKeyNotFound) {
				return pkgerrors.ErrNotFound
			}

			return err
		}

		return txn.Set(s.key(key), data)
	})
}

func (s *Storage) List(ctx context.Context, offset, limit uint64) ([]any, uint64, error) {
	return s.ListPrefix(ctx, "", offset, limit)
}

func (s *Storage) ListPrefix(_ context.Context, prefix string, offset, limit uint64) ([]any, uint64, error) {
	var values [][]byte
	err := s.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = s.key(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.ValidForPrefix(opts.Prefix); it.Next() {
			raw, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			values = append(values, raw)
		}

		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	total := uint64(len(values))
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if limit == 0 || end > total {
		end = total
	}

	result := make([]any, 0, end-offset)
	for _, raw := range values[offset:end] {
		v, err := s.decode(raw)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, v)
	}

	return result, total, nil
}

func (s *Storage) Delete(_ context.Context, key string) error {
	if key == "" {
		return pkgerrors.ErrEmptyKey
	}

	return s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Delete(s.key(key))
	})
}
