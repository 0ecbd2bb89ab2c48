// Package suppression keeps the do-not-email list. Addresses land here
// when a recipient unsubscribes or an operator suppresses them manually;
// the delivery pipeline consults the store before every send.
package suppression

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketSuppressed = []byte("suppressed")

// Entry records why and when an address was suppressed
type Entry struct {
	Email   string    `json:"email"`
	Reason  string    `json:"reason"`
	AddedAt time.Time `json:"added_at"`
}

// Store is a BoltDB-backed suppression list keyed by lowercased address
type Store struct {
	db *bolt.DB
}

// Open opens (creating if needed) the suppression database
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{
		Timeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open suppression database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSuppressed)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

// Add suppresses an address. Re-adding an existing address keeps the
// original entry.
func (s *Store) Add(email, reason string) error {
	key := normalize(email)
	if key == "" {
		return fmt.Errorf("empty email")
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSuppressed)
		if b.Get([]byte(key)) != nil {
			return nil
		}

		entry := Entry{Email: key, Reason: reason, AddedAt: time.Now()}
		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("failed to marshal entry: %w", err)
		}
		return b.Put([]byte(key), data)
	})
}

// IsSuppressed reports whether an address is on the list
func (s *Store) IsSuppressed(email string) (bool, error) {
	key := normalize(email)
	var found bool

	err := s.db.View(func(tx *bolt.Tx) error {
		found = tx.Bucket(bucketSuppressed).Get([]byte(key)) != nil
		return nil
	})

	return found, err
}

// Remove takes an address off the list
func (s *Store) Remove(email string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSuppressed).Delete([]byte(normalize(email)))
	})
}

// Count returns the number of suppressed addresses
func (s *Store) Count() (int, error) {
	var n int
	err := s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(bucketSuppressed).Stats().KeyN
		return nil
	})
	return n, err
}

// List returns all entries, for operator review
func (s *Store) List() ([]Entry, error) {
	entries := []Entry{}

	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSuppressed).ForEach(func(k, v []byte) error {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				// Skip unreadable entries rather than failing the listing
				return nil
			}
			entries = append(entries, e)
			return nil
		})
	})

	return entries, err
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
