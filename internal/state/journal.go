// Package state persists webhook processing state so redelivered events
// are not handled twice across restarts. OAuth credentials are
// deliberately not persisted; a restart forces re-authorization.
package state

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/andreamil/hubspot-integration/internal/models"
	bolt "go.etcd.io/bbolt"
)

const (
	// journalDirPerm is the permission mode for the journal directory.
	journalDirPerm = fs.FileMode(0o700)

	// journalFilePerm is the permission mode for the journal database file.
	journalFilePerm = fs.FileMode(0o600)

	// journalOpenTimeout is the maximum time to wait for the bolt file lock.
	journalOpenTimeout = 5 * time.Second
)

var eventsBucket = []byte("events")

// eventKey derives a stable identity for a webhook event. HubSpot carries
// no delivery ID, so the tuple of portal, object, instant, and type is
// the closest thing to one.
func eventKey(ev models.WebhookEvent) []byte {
	h := sha256.Sum256(fmt.Appendf(nil, "%d|%d|%d|%s", ev.PortalID, ev.ObjectID, ev.OccurredAt, ev.SubscriptionType))
	dst := make([]byte, hex.EncodedLen(len(h)))
	hex.Encode(dst, h[:])

	return dst
}

// Journal wraps a bbolt database recording processed webhook events.
type Journal struct {
	db *bolt.DB
}

// Open opens the journal database at the given path, creating it and its
// parent directory if needed.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), journalDirPerm); err != nil {
		return nil, fmt.Errorf("creating journal directory: %w", err)
	}

	db, err := bolt.Open(path, journalFilePerm, &bolt.Options{Timeout: journalOpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("opening journal db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(eventsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing journal db: %w", err)
	}

	return &Journal{db: db}, nil
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// MarkProcessed records the event and reports whether this is its first
// delivery. The check-and-set runs inside one write transaction, so two
// concurrent deliveries of the same event see exactly one true.
func (j *Journal) MarkProcessed(ev models.WebhookEvent) (bool, error) {
	first := false

	err := j.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(eventsBucket)

		key := eventKey(ev)
		if b.Get(key) != nil {
			return nil
		}

		first = true

		return b.Put(key, fmt.Appendf(nil, "%d", time.Now().Unix()))
	})
	if err != nil {
		return false, fmt.Errorf("recording event: %w", err)
	}

	return first, nil
}

// ProcessedCount returns the number of recorded events.
func (j *Journal) ProcessedCount() int {
	count := 0
	_ = j.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket(eventsBucket).Stats().KeyN

		return nil
	})

	return count
}
