package storage

import (
	"go.etcd.io/bbolt"
)

// MetaStorage keeps per-user attributes ("user meta"). Each user owns a
// nested bucket under UserMeta, keyed by attribute name.
type MetaStorage struct {
	db *bbolt.DB
}

// NewMetaStorage creates a new attribute storage instance
func NewMetaStorage(db *bbolt.DB) *MetaStorage {
	return &MetaStorage{db: db}
}

// GetMeta returns a copy of the attribute value, or nil when it is unset
func (s *MetaStorage) GetMeta(userID, key string) ([]byte, error) {
	var value []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(userMetaBucket)).Bucket([]byte(userID))
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			// bbolt values are only valid inside the transaction
			value = append([]byte(nil), v...)
		}
		return nil
	})
	return value, err
}

// SetMetas stores several attributes of one user in a single transaction.
// A nil value deletes the attribute.
func (s *MetaStorage) SetMetas(userID string, values map[string][]byte) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.Bucket([]byte(userMetaBucket)).CreateBucketIfNotExists([]byte(userID))
		if err != nil {
			return err
		}
		for key, value := range values {
			if err := putOrDelete(b, key, value); err != nil {
				return err
			}
		}
		return nil
	})
}

// UpdateMeta runs a read-modify-write of one attribute inside a single write
// transaction. fn receives the current value (nil when unset) and returns the
// new one; if fn fails nothing is written. BoltDB allows one writer at a time,
// so concurrent updates of the same attribute cannot lose each other's work.
func (s *MetaStorage) UpdateMeta(userID, key string, fn func(current []byte) ([]byte, error)) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.Bucket([]byte(userMetaBucket)).CreateBucketIfNotExists([]byte(userID))
		if err != nil {
			return err
		}

		var current []byte
		if v := b.Get([]byte(key)); v != nil {
			current = append([]byte(nil), v...)
		}

		next, err := fn(current)
		if err != nil {
			return err
		}
		return putOrDelete(b, key, next)
	})
}

func putOrDelete(b *bbolt.Bucket, key string, value []byte) error {
	if value == nil {
		return b.Delete([]byte(key))
	}
	return b.Put([]byte(key), value)
}
