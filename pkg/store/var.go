package store

import bolt "go.etcd.io/bbolt"

func init() {
	initDB["initialize variable table"] = func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketVar))
		return err
	}
}

// SetVar sets the value of a variable.
func (s *dbStore) SetVar(name string, value float64) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketVar)).Put([]byte(name), marshalFloat(value))
	})
}

// Vars returns all variables.
func (s *dbStore) Vars() (map[string]float64, error) {
	vars := make(map[string]float64)
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketVar)).ForEach(func(k, v []byte) error {
			value, err := unmarshalFloat(v)
			if err != nil {
				return err
			}
			vars[string(k)] = value
			return nil
		})
	})
	return vars, err
}

// ClearVars deletes all variables.
func (s *dbStore) ClearVars() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket([]byte(bucketVar)); err != nil {
			return err
		}
		_, err := tx.CreateBucket([]byte(bucketVar))
		return err
	})
}
