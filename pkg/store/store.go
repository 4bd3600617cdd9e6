// Package store defines the permanent storage service.
package store

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	bolt "go.etcd.io/bbolt"
	"src.calc.sh/pkg/errutil"
	"src.calc.sh/pkg/logutil"
	"src.calc.sh/pkg/store/storedefs"
)

var logger = logutil.GetLogger("[store] ")

// Names of buckets.
const (
	bucketOp  = "op"
	bucketVar = "var"
)

var initDB = map[string](func(*bolt.Tx) error){}

// DBStore is the permanent storage backend.
type DBStore interface {
	storedefs.Store
	Close() error
}

type dbStore struct {
	db *bolt.DB
}

func dbWithDefaultOptions(dbname string) (*bolt.DB, error) {
	return bolt.Open(dbname, 0644, &bolt.Options{Timeout: time.Second})
}

// NewStore creates a new Store from the given file.
func NewStore(dbname string) (DBStore, error) {
	db, err := dbWithDefaultOptions(dbname)
	if err != nil {
		return nil, err
	}
	return NewStoreFromDB(db)
}

// NewStoreFromDB creates a new Store from a bolt DB.
func NewStoreFromDB(db *bolt.DB) (DBStore, error) {
	logger.Println("initializing store")
	defer logger.Println("initialized store")
	st := &dbStore{db}

	err := db.Update(func(tx *bolt.Tx) error {
		for name, fn := range initDB {
			if err := fn(tx); err != nil {
				return fmt.Errorf("failed to %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, errutil.Multi(err, db.Close())
	}
	return st, nil
}

// Close closes the store.
func (s *dbStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func marshalSeq(seq uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, seq)
	return b
}

func unmarshalSeq(key []byte) uint64 {
	return binary.BigEndian.Uint64(key)
}

func marshalFloat(f float64) []byte {
	return marshalSeq(math.Float64bits(f))
}

func unmarshalFloat(data []byte) (float64, error) {
	if len(data) != 8 {
		return 0, fmt.Errorf("bad number of length %d", len(data))
	}
	return math.Float64frombits(binary.BigEndian.Uint64(data)), nil
}
