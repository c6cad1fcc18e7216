package identity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/giantswarm/mcp-oauth/storage/memory"
	"golang.org/x/oauth2"
)

// DefaultCacheDir returns the directory FileTokenStore uses by default.
func DefaultCacheDir() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("locate user cache dir: %w", err)
	}
	return filepath.Join(dir, "graphcal"), nil
}

// FileTokenStore keeps one JSON token file per user in a directory.
// File names are derived from a hash of the user ID.
type FileTokenStore struct {
	dir string
}

// NewFileTokenStore creates a FileTokenStore rooted at dir.
func NewFileTokenStore(dir string) *FileTokenStore {
	return &FileTokenStore{dir: dir}
}

func (s *FileTokenStore) path(userID string) string {
	sum := sha256.Sum256([]byte(userID))
	return filepath.Join(s.dir, "graph-"+hex.EncodeToString(sum[:8])+".token")
}

// SaveToken writes token for userID, replacing any previous one.
func (s *FileTokenStore) SaveToken(_ context.Context, userID string, token *oauth2.Token) error {
	if userID == "" {
		return fmt.Errorf("user ID is required")
	}
	if token == nil {
		return fmt.Errorf("token is required")
	}
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".token-*")
	if err != nil {
		return fmt.Errorf("failed to create token file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(userID)); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

// GetToken reads the token for userID. A missing file yields ErrNoToken.
func (s *FileTokenStore) GetToken(_ context.Context, userID string) (*oauth2.Token, error) {
	data, err := os.ReadFile(s.path(userID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("invalid token file: %w", err)
	}
	return &token, nil
}

// DeleteToken removes the token for userID. Deleting a missing token is not an error.
func (s *FileTokenStore) DeleteToken(_ context.Context, userID string) error {
	if err := os.Remove(s.path(userID)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete token file: %w", err)
	}
	return nil
}

// MemoryStore is an in-process TokenStore backed by mcp-oauth's memory storage.
type MemoryStore struct {
	store *memory.Store
}

// NewMemoryStore creates an empty MemoryStore. Call Stop to release it.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{store: memory.New()}
}

// SaveToken stores token for userID.
func (s *MemoryStore) SaveToken(ctx context.Context, userID string, token *oauth2.Token) error {
	return s.store.SaveToken(ctx, userID, token)
}

// GetToken returns the token for userID. Any lookup failure yields ErrNoToken.
func (s *MemoryStore) GetToken(ctx context.Context, userID string) (*oauth2.Token, error) {
	token, err := s.store.GetToken(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoToken, err)
	}
	return token, nil
}

// Stop releases the background cleanup of the underlying store.
func (s *MemoryStore) Stop() {
	s.store.Stop()
}
