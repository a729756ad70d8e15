package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// SessionStore owns the in-memory session map and is the sole writer of the
// per-session log files under its directory. All mutation of one session id
// goes through that session's lock, so concurrent requests against the same
// id cannot lose updates; requests against different ids do not contend.
type SessionStore struct {
	dir          string
	dedupeOnLoad bool

	mu       sync.Mutex
	sessions map[string]*Session
	locks    map[string]*sync.Mutex
}

// NewSessionStore creates a store backed by the given log directory.
// dedupeOnLoad opts in to dropping reloaded turns whose exact query text is
// already present in memory; by default every persisted turn is preserved.
func NewSessionStore(dir string, dedupeOnLoad bool) *SessionStore {
	return &SessionStore{
		dir:          dir,
		dedupeOnLoad: dedupeOnLoad,
		sessions:     make(map[string]*Session),
		locks:        make(map[string]*sync.Mutex),
	}
}

// Dir returns the log directory.
func (s *SessionStore) Dir() string {
	return s.dir
}

// CreateOrGet resolves a session id: an empty or unknown id yields a fresh
// random identifier with initialized empty state; known ids pass through
// unchanged. Idempotent for known ids.
func (s *SessionStore) CreateOrGet(sessionID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	if _, ok := s.sessions[sessionID]; !ok {
		s.sessions[sessionID] = &Session{ID: sessionID}
	}
	return sessionID
}

// Exists reports whether the session id is known in memory.
func (s *SessionStore) Exists(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[sessionID]
	return ok
}

// History returns a copy of the session's turn sequence. Unknown sessions
// yield an empty history.
func (s *SessionStore) History(sessionID string) []Turn {
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	sess := s.session(sessionID)
	if sess == nil {
		return nil
	}
	turns := make([]Turn, len(sess.Turns))
	copy(turns, sess.Turns)
	return turns
}

// SessionIDs returns the known session ids in unspecified order.
func (s *SessionStore) SessionIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Snapshot returns a copy of one session, or nil when unknown.
func (s *SessionStore) Snapshot(sessionID string) *Session {
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	sess := s.session(sessionID)
	if sess == nil {
		return nil
	}
	out := &Session{ID: sess.ID}
	out.Turns = make([]Turn, len(sess.Turns))
	copy(out.Turns, sess.Turns)
	out.LastContext = append([]string(nil), sess.LastContext...)
	return out
}

// AppendTurn appends a completed turn to the session, creating the session
// when it does not exist yet. It does not persist; pair with Persist or use
// AppendAndPersist.
func (s *SessionStore) AppendTurn(sessionID string, t Turn) {
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()
	s.appendTurnLocked(sessionID, t)
}

// SetLastContext records the chunks retrieved for the session's most recent
// generation.
func (s *SessionStore) SetLastContext(sessionID string, chunks []string) {
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	if sess := s.session(sessionID); sess != nil {
		sess.LastContext = append([]string(nil), chunks...)
	}
}

// LastContext returns the most recently retrieved chunks for the session.
func (s *SessionStore) LastContext(sessionID string) []string {
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	sess := s.session(sessionID)
	if sess == nil {
		return nil
	}
	return append([]string(nil), sess.LastContext...)
}

// Persist appends the turns not yet written to the session's log file. The
// already-written count is detected by counting end-marker lines in the
// existing file, so repeated calls never re-write a turn. The directory and
// file are created on demand.
func (s *SessionStore) Persist(sessionID string) error {
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()
	return s.persistLocked(sessionID)
}

// AppendAndPersist appends a turn and persists it under one session lock,
// keeping the append+persist pair atomic with respect to concurrent requests
// for the same session id.
func (s *SessionStore) AppendAndPersist(sessionID string, t Turn) error {
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	s.appendTurnLocked(sessionID, t)
	return s.persistLocked(sessionID)
}

// LoadAll scans the log directory and merges every parseable session file
// into memory. A file that fails to read or parse is logged and skipped; it
// never aborts the scan. Files never overwrite turns already in memory for
// the same session id.
func (s *SessionStore) LoadAll() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			LogDebug("session log directory %s does not exist yet", s.dir)
			return nil
		}
		return &PersistenceError{Op: "read", SessionID: "*", Err: err}
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		sessionID := strings.TrimSuffix(entry.Name(), ".txt")
		path := filepath.Join(s.dir, entry.Name())

		data, err := os.ReadFile(path)
		if err != nil {
			LogWarn("failed to read session log %s: %v", entry.Name(), err)
			continue
		}

		turns, parseErr := ParseSessionLog(path, string(data))
		if parseErr != nil {
			LogWarn("session %s: %v", sessionID, parseErr)
		}

		s.mergeLoaded(sessionID, turns)
		LogInfo("loaded session %s with %d turn(s)", sessionID, len(turns))
	}

	return nil
}

// Delete removes the session from memory and its backing file. Deleting a
// session that never existed succeeds; only an I/O failure during removal is
// reported as an error.
func (s *SessionStore) Delete(sessionID string) error {
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	path, err := s.sessionFile(sessionID)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		LogError("failed to remove session log %s: %v", sessionID, err)
		return &PersistenceError{SessionID: sessionID, Op: "remove", Err: err}
	}
	return nil
}

func (s *SessionStore) appendTurnLocked(sessionID string, t Turn) {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = &Session{ID: sessionID}
		s.sessions[sessionID] = sess
	}
	s.mu.Unlock()
	sess.Turns = append(sess.Turns, t)
}

func (s *SessionStore) persistLocked(sessionID string) error {
	sess := s.session(sessionID)
	if sess == nil {
		LogWarn("no history to persist for session %s", sessionID)
		return &PersistenceError{SessionID: sessionID, Op: "write", Err: fmt.Errorf("unknown session")}
	}

	path, err := s.sessionFile(sessionID)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		LogError("failed to create session log directory: %v", err)
		return &PersistenceError{SessionID: sessionID, Op: "write", Err: err}
	}

	saved := 0
	if data, err := os.ReadFile(path); err == nil {
		saved = CountPersistedTurns(string(data))
	} else if !os.IsNotExist(err) {
		LogError("failed to read session log %s: %v", sessionID, err)
		return &PersistenceError{SessionID: sessionID, Op: "read", Err: err}
	}

	if saved >= len(sess.Turns) {
		return nil
	}

	var b strings.Builder
	for _, t := range sess.Turns[saved:] {
		b.WriteString(EncodeTurn(t))
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		LogError("failed to open session log %s: %v", sessionID, err)
		return &PersistenceError{SessionID: sessionID, Op: "write", Err: err}
	}
	defer func() { _ = f.Close() }()

	if _, err := f.WriteString(b.String()); err != nil {
		LogError("failed to append session log %s: %v", sessionID, err)
		return &PersistenceError{SessionID: sessionID, Op: "write", Err: err}
	}
	return nil
}

// mergeLoaded merges turns parsed from disk into the in-memory session.
// Sessions already holding turns in memory are extended, never overwritten.
func (s *SessionStore) mergeLoaded(sessionID string, turns []Turn) {
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = &Session{ID: sessionID}
		s.sessions[sessionID] = sess
	}
	s.mu.Unlock()

	if !s.dedupeOnLoad {
		if len(sess.Turns) == 0 {
			sess.Turns = turns
		} else {
			// In-memory turns for this id already cover the file
			// (persist is append-only); only take the tail.
			if len(turns) > len(sess.Turns) {
				sess.Turns = append(sess.Turns, turns[len(sess.Turns):]...)
			}
		}
		return
	}

	existing := make(map[string]bool, len(sess.Turns))
	for _, t := range sess.Turns {
		existing[t.Query] = true
	}
	for _, t := range turns {
		if existing[t.Query] {
			continue
		}
		existing[t.Query] = true
		sess.Turns = append(sess.Turns, t)
	}
}

func (s *SessionStore) session(sessionID string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[sessionID]
}

func (s *SessionStore) sessionLock(sessionID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[sessionID] = lock
	}
	return lock
}

// sessionFile maps a session id to its log path, rejecting ids that would
// escape the log directory.
func (s *SessionStore) sessionFile(sessionID string) (string, error) {
	if sessionID == "" || strings.ContainsAny(sessionID, `/\`) || strings.Contains(sessionID, "..") {
		return "", &PersistenceError{SessionID: sessionID, Op: "write", Err: fmt.Errorf("invalid session id")}
	}
	return filepath.Join(s.dir, sessionID+".txt"), nil
}
