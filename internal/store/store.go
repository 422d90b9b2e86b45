package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/latteboxd/latteboxd/internal/models"
)

// Storage keys. Versioned so a future schema change can live alongside
// old data under a different key.
const (
	userTableKey = "latteboxd_db_v1"
	sessionKey   = "latteboxd_session"
)

// UserTable is the whole persisted user collection. Mutations always
// rewrite the table wholesale, last write wins.
type UserTable struct {
	Users []models.User `json:"users"`
}

// FileStore persists the user table and the session slot as two
// independently keyed JSON blobs under a data directory. It is the local
// equivalent of the browser storage the UI originally relied on.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// New creates the data directory if needed and returns a store rooted there.
func New(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("store: data directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: create data dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// LoadUserTable returns the persisted table. On first access it creates
// and persists an empty table; that initialization is idempotent. A blob
// that exists but cannot be decoded is a hard error with no repair path.
func (s *FileStore) LoadUserTable() (*UserTable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.keyPath(userTableKey))
	if errors.Is(err, fs.ErrNotExist) {
		table := &UserTable{Users: []models.User{}}
		if err := s.writeBlob(userTableKey, table); err != nil {
			return nil, err
		}
		return table, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: read %s: %w", userTableKey, err)
	}

	var table UserTable
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("store: decode %s: %w", userTableKey, err)
	}
	return &table, nil
}

// SaveUserTable overwrites the persisted table wholesale.
func (s *FileStore) SaveUserTable(table *UserTable) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeBlob(userTableKey, table)
}

// LoadSession returns the persisted session, or nil when no session is set.
func (s *FileStore) LoadSession() (*models.PublicUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.keyPath(sessionKey))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: read %s: %w", sessionKey, err)
	}

	var user models.PublicUser
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("store: decode %s: %w", sessionKey, err)
	}
	return &user, nil
}

// SaveSession overwrites the session slot with the given public user.
func (s *FileStore) SaveSession(user models.PublicUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeBlob(sessionKey, user)
}

// ClearSession removes the session blob entirely. Clearing an already
// absent session is a no-op.
func (s *FileStore) ClearSession() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.keyPath(sessionKey))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("store: clear %s: %w", sessionKey, err)
	}
	return nil
}

func (s *FileStore) keyPath(key string) string {
	return filepath.Join(s.dir, key+".json")
}

// writeBlob marshals v and replaces the blob for key via a temp file plus
// rename, so readers never observe a partially written blob.
func (s *FileStore) writeBlob(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", key, err)
	}

	target := s.keyPath(key)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("store: write %s: %w", key, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("store: replace %s: %w", key, err)
	}
	return nil
}
