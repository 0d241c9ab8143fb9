package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

// Bucket names
const (
	usersBucket      = "Users"      // user ID -> JSON user
	userEmailsBucket = "UserEmails" // lower-cased email -> user ID
	userLoginsBucket = "UserLogins" // lower-cased username -> user ID
	userMetaBucket   = "UserMeta"   // user ID -> nested bucket of attributes
	resetKeysBucket  = "ResetKeys"  // user ID -> JSON reset key
)

// InitDB initializes the database connection
func InitDB(dataDir string) (*bbolt.DB, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %v", err)
	}

	dbPath := filepath.Join(dataDir, "ceapp.db")

	// Open the database
	// It will be created if it doesn't exist.
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}

	// Create buckets
	err = db.Update(func(tx *bbolt.Tx) error {
		buckets := []string{usersBucket, userEmailsBucket, userLoginsBucket, userMetaBucket, resetKeysBucket}
		for _, bucket := range buckets {
			if _, err := tx.CreateBucketIfNotExists([]byte(bucket)); err != nil {
				return fmt.Errorf("create bucket %s: %s", bucket, err)
			}
		}
		return nil
	})

	if err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}
