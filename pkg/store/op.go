package store

import (
	"fmt"

	bolt "go.etcd.io/bbolt"
	"src.calc.sh/pkg/calc/calcdefs"
)

func init() {
	initDB["initialize operation history table"] = func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketOp))
		return err
	}
}

// An operation is stored under its big-endian sequence number, as the 8 bytes
// of the result followed by the expression.
func marshalOp(expr string, result float64) []byte {
	return append(marshalFloat(result), expr...)
}

func unmarshalOp(k, v []byte) (calcdefs.Operation, error) {
	seq := unmarshalSeq(k)
	if len(v) < 8 {
		return calcdefs.Operation{}, fmt.Errorf("corrupt operation %d", seq)
	}
	result, err := unmarshalFloat(v[:8])
	if err != nil {
		return calcdefs.Operation{}, err
	}
	return calcdefs.Operation{Expression: string(v[8:]), Result: result, Seq: int(seq)}, nil
}

// AddOperation adds a new operation to the history.
func (s *dbStore) AddOperation(expr string, result float64) (calcdefs.Operation, error) {
	var seq uint64
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketOp))
		var err error
		seq, err = b.NextSequence()
		if err != nil {
			return err
		}
		return b.Put(marshalSeq(seq), marshalOp(expr, result))
	})
	if err != nil {
		return calcdefs.Operation{}, err
	}
	return calcdefs.Operation{Expression: expr, Result: result, Seq: int(seq)}, nil
}

// Operations returns all the operations, ordered by sequence number.
func (s *dbStore) Operations() ([]calcdefs.Operation, error) {
	var ops []calcdefs.Operation
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketOp)).ForEach(func(k, v []byte) error {
			op, err := unmarshalOp(k, v)
			if err != nil {
				return err
			}
			ops = append(ops, op)
			return nil
		})
	})
	return ops, err
}

// ClearOperations deletes all operations. The bucket is recreated with the
// old sequence, so that sequence numbers keep increasing.
func (s *dbStore) ClearOperations() (int, error) {
	var seq uint64
	err := s.db.Update(func(tx *bolt.Tx) error {
		seq = tx.Bucket([]byte(bucketOp)).Sequence()
		if err := tx.DeleteBucket([]byte(bucketOp)); err != nil {
			return err
		}
		b, err := tx.CreateBucket([]byte(bucketOp))
		if err != nil {
			return err
		}
		return b.SetSequence(seq)
	})
	if err != nil {
		return 0, err
	}
	logger.Printf("cleared operations up to %d", seq)
	return int(seq), nil
}
