package credstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/atomic"
)

// credentialFile is the on-disk JSON shape. LoginAt is kept as epoch
// milliseconds to match what the tracker's other clients store.
type credentialFile struct {
	Token   string `json:"token"`
	LoginAt int64  `json:"login_time"`
}

// FileStore keeps the credential in a JSON file, written atomically so a
// crash mid-write never leaves a torn file behind.
type FileStore struct {
	path string
}

// NewFileStore creates a file-backed store at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Save writes the credential, creating parent directories as needed.
func (s *FileStore) Save(_ context.Context, cred Credential) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("creating store dir: %w", err)
		}
	}

	data, err := json.Marshal(credentialFile{
		Token:   cred.Token,
		LoginAt: cred.LoginAt.UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("encoding credential: %w", err)
	}

	if err := atomic.WriteFile(s.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("writing credential file: %w", err)
	}
	return nil
}

// Read returns the stored credential. Any unreadable or unparsable file is
// treated as absence: the caller degrades to unauthenticated, never fails.
func (s *FileStore) Read(_ context.Context) (Credential, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return Credential{}, ErrNotFound
	}

	var cf credentialFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return Credential{}, ErrNotFound
	}
	if cf.Token == "" {
		return Credential{}, ErrNotFound
	}

	return Credential{
		Token:   cf.Token,
		LoginAt: time.UnixMilli(cf.LoginAt),
	}, nil
}

// Clear removes the credential file. Missing file is not an error.
func (s *FileStore) Clear(_ context.Context) error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing credential file: %w", err)
	}
	return nil
}
