package internal

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

const contextBucket = "session_context"

// ContextStore archives the last retrieved chunks per session id in a small
// BoltDB file, so history-aware generation survives a restart. Entries are
// opaque snapshots; the session log remains the source of truth for turns.
type ContextStore struct {
	path string
}

// contextRecord is the persisted snapshot for one session.
type contextRecord struct {
	Chunks    []string  `json:"chunks"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewContextStore creates a context store backed by the given BoltDB path.
func NewContextStore(path string) *ContextStore {
	return &ContextStore{path: path}
}

// Save stores the retrieval snapshot for a session, replacing any previous
// entry.
func (c *ContextStore) Save(sessionID string, chunks []string) error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return err
	}
	db, err := bolt.Open(c.path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	data, err := json.Marshal(contextRecord{Chunks: chunks, UpdatedAt: time.Now()})
	if err != nil {
		return err
	}

	return db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(contextBucket))
		if err != nil {
			return err
		}
		return b.Put([]byte(sessionID), data)
	})
}

// Load returns the archived chunks for a session, or nil when none exist.
func (c *ContextStore) Load(sessionID string) ([]string, error) {
	if _, err := os.Stat(c.path); os.IsNotExist(err) {
		return nil, nil
	}
	db, err := bolt.Open(c.path, 0o600, &bolt.Options{Timeout: time.Second, ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	var chunks []string
	err = db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(contextBucket))
		if b == nil {
			return nil
		}
		v := b.Get([]byte(sessionID))
		if len(v) == 0 {
			return nil
		}
		var rec contextRecord
		if err := json.Unmarshal(v, &rec); err != nil {
			// Skip a malformed entry instead of failing the load.
			LogWarn("malformed context entry for session %s: %v", sessionID, err)
			return nil
		}
		chunks = rec.Chunks
		return nil
	})
	if err != nil {
		return nil, err
	}
	return chunks, nil
}

// Delete removes the archived entry for a session. Deleting a session that
// was never archived succeeds.
func (c *ContextStore) Delete(sessionID string) error {
	if _, err := os.Stat(c.path); os.IsNotExist(err) {
		return nil
	}
	db, err := bolt.Open(c.path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	return db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(contextBucket))
		if b == nil {
			return nil
		}
		return b.Delete([]byte(sessionID))
	})
}
