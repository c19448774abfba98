package credential

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
	"golang.org/x/oauth2"
)

var credentialsBucket = []byte("credentials")

// BoltStore persists the credential in a bbolt database, one key per value.
type BoltStore struct {
	db *bolt.DB
}

// OpenBoltStore opens (or creates) the database at path and ensures the
// credentials bucket exists.
func OpenBoltStore(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create credential dir: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open credential db: %w", err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(credentialsBucket)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init credential bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Load() (*oauth2.Token, error) {
	if s == nil || s.db == nil {
		return nil, bolt.ErrDatabaseNotOpen
	}

	var access, refresh string
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(credentialsBucket)
		// Copy out of the mmap; byte slices are only valid inside the tx.
		access = string(b.Get([]byte(KeyAccessToken)))
		refresh = string(b.Get([]byte(KeyRefreshToken)))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read credential db: %w", err)
	}
	return newToken(access, refresh), nil
}

func (s *BoltStore) Save(tok *oauth2.Token) error {
	if tok == nil {
		return s.Clear()
	}
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(credentialsBucket)
		if err := b.Put([]byte(KeyAccessToken), []byte(tok.AccessToken)); err != nil {
			return err
		}
		if tok.RefreshToken == "" {
			return b.Delete([]byte(KeyRefreshToken))
		}
		return b.Put([]byte(KeyRefreshToken), []byte(tok.RefreshToken))
	})
}

func (s *BoltStore) Clear() error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(credentialsBucket)
		if err := b.Delete([]byte(KeyAccessToken)); err != nil {
			return err
		}
		return b.Delete([]byte(KeyRefreshToken))
	})
}

// Close releases the database file lock.
func (s *BoltStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
