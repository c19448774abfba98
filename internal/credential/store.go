// Package credential persists the session credential issued by the
// groundwater API: an opaque bearer access token and an optional refresh
// token. Request code only reads it through Store; login writes it and
// logout clears it.
package credential

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
)

// Fixed storage keys for the two credential values.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
)

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendBolt   = "bolt"
	BackendMemory = "memory"
)

// ErrUnknownBackend is returned by Open for an unrecognised backend name.
var ErrUnknownBackend = errors.New("unknown credential backend")

// Store is the narrow get/set/clear interface over the persisted credential.
type Store interface {
	// Load returns the stored credential, or nil, nil when none is stored.
	Load() (*oauth2.Token, error)

	// Save replaces the stored credential.
	Save(tok *oauth2.Token) error

	// Clear removes the stored credential. Clearing an empty store is not an error.
	Clear() error
}

// Open returns the Store for backend. path is ignored by the memory backend.
// Stores that hold resources (bolt) also implement io.Closer.
func Open(backend, path string) (Store, error) {
	switch strings.ToLower(backend) {
	case "", BackendFile:
		return NewFileStore(path), nil
	case BackendBolt:
		return OpenBoltStore(path)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}

// AccessToken returns the stored access token, or "" when none is stored.
func AccessToken(s Store) (string, error) {
	tok, err := s.Load()
	if err != nil || tok == nil {
		return "", err
	}
	return tok.AccessToken, nil
}

// newToken builds the in-memory credential from the two persisted values.
// Returns nil when no access token is present.
func newToken(access, refresh string) *oauth2.Token {
	if access == "" {
		return nil
	}
	return &oauth2.Token{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
	}
}
