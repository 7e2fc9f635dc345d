package ports

import (
	"context"

	"golang.org/x/oauth2"
)

// IdentityProvider supplies credentials for the broadcast provider.
type IdentityProvider interface {
	// Authenticated reports whether usable credentials are available.
	Authenticated() bool

	// TokenSource returns the current credentials. Refreshed tokens are
	// persisted by the implementation.
	TokenSource(ctx context.Context) oauth2.TokenSource
}

// TokenStore persists provider credentials between runs.
type TokenStore interface {
	// Load returns the stored token, or (nil, nil) if none is stored.
	Load(ctx context.Context) (*oauth2.Token, error)

	// Save replaces the stored token atomically.
	Save(ctx context.Context, token *oauth2.Token) error
}
