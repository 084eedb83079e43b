package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileStore persists sessions as JSON files in a directory. The directory is
// created lazily on first write, so configuring a not-yet-existing store dir
// is fine.
type FileStore struct {
	dir string
}

// NewFileStore creates a file-backed session store rooted at dir. The
// directory is not touched until a session is saved.
func NewFileStore(dir string) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("session store dir is required")
	}
	return &FileStore{dir: dir}, nil
}

type filePayload struct {
	Data      map[string]string `json:"data"`
	ExpiresAt time.Time         `json:"expires_at"`
}

// Load fetches a session by ID.
func (s *FileStore) Load(_ context.Context, id string) (map[string]string, error) {
	raw, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var payload filePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode session file: %w", err)
	}
	if time.Now().After(payload.ExpiresAt) {
		_ = os.Remove(s.path(id))
		return nil, ErrNotFound
	}
	return cloneMap(payload.Data), nil
}

// Save persists a session, creating the store directory when missing.
func (s *FileStore) Save(_ context.Context, id string, data map[string]string, ttl time.Duration) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("create session store dir: %w", err)
	}
	raw, err := json.Marshal(filePayload{Data: data, ExpiresAt: time.Now().Add(ttl)})
	if err != nil {
		return fmt.Errorf("encode session file: %w", err)
	}
	return os.WriteFile(s.path(id), raw, 0o600)
}

// Delete removes a session.
func (s *FileStore) Delete(_ context.Context, id string) error {
	err := os.Remove(s.path(id))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Touch extends a session expiration.
func (s *FileStore) Touch(ctx context.Context, id string, ttl time.Duration) error {
	data, err := s.Load(ctx, id)
	if err != nil {
		return err
	}
	return s.Save(ctx, id, data, ttl)
}

// Close is a no-op for the file store.
func (s *FileStore) Close() error { return nil }

// path maps a session ID to its file. IDs are base64url, so escaping keeps
// hostile values from walking out of the directory.
func (s *FileStore) path(id string) string {
	safe := strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(id)
	return filepath.Join(s.dir, safe+".json")
}
