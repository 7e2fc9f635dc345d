package fs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"golang.org/x/oauth2"
)

// TokenFileStore implements ports.TokenStore using a JSON file.
type TokenFileStore struct {
	path string
}

// NewTokenFileStore creates a store backed by the file at path.
func NewTokenFileStore(path string) *TokenFileStore {
	return &TokenFileStore{path: path}
}

// Load returns the stored token, or (nil, nil) if the file does not exist.
func (s *TokenFileStore) Load(ctx context.Context) (*oauth2.Token, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("parse token file %s: %w", s.path, err)
	}
	return &tok, nil
}

// Save persists the token atomically with owner-only permissions.
func (s *TokenFileStore) Save(ctx context.Context, token *oauth2.Token) error {
	if token == nil {
		return errors.New("nil token")
	}
	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(s.path, data, 0o600)
}

// Path returns the token file path.
func (s *TokenFileStore) Path() string {
	return s.path
}
