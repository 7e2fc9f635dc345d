// Package google provides OAuth2 credentials for the YouTube Data API.
package google

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	yt "google.golang.org/api/youtube/v3"

	"github.com/bft-labs/streamkeeper/internal/domain"
	"github.com/bft-labs/streamkeeper/internal/ports"
	"github.com/bft-labs/streamkeeper/pkg/log"
)

// DefaultRedirectURL is used when no redirect URL is configured.
const DefaultRedirectURL = "http://localhost:3000/auth/google"

// Config holds the OAuth client registration.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// Endpoint defaults to Google's OAuth2 endpoint.
	Endpoint oauth2.Endpoint
}

// Identity holds the user's token and keeps the token store current as it
// is refreshed.
type Identity struct {
	oauth  *oauth2.Config
	store  ports.TokenStore
	logger log.Logger

	mu    sync.Mutex
	token *oauth2.Token
}

// NewIdentity creates an identity and loads any stored token.
func NewIdentity(ctx context.Context, cfg Config, store ports.TokenStore, logger log.Logger) (*Identity, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: google client_id and client_secret are required", domain.ErrInvalidConfig)
	}
	if cfg.RedirectURL == "" {
		cfg.RedirectURL = DefaultRedirectURL
	}
	if cfg.Endpoint.TokenURL == "" {
		cfg.Endpoint = googleoauth.Endpoint
	}

	tok, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load token: %w", err)
	}

	return &Identity{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     cfg.Endpoint,
			Scopes:       []string{yt.YoutubeScope},
		},
		store:  store,
		logger: logger,
		token:  tok,
	}, nil
}

// AuthCodeURL returns the consent page URL. Offline access is requested so
// a refresh token is issued.
func (i *Identity) AuthCodeURL(state string) string {
	return i.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code for a token and stores it.
func (i *Identity) Exchange(ctx context.Context, code string) error {
	tok, err := i.oauth.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("exchange code: %w", err)
	}
	if err := i.store.Save(ctx, tok); err != nil {
		return fmt.Errorf("save token: %w", err)
	}

	i.mu.Lock()
	i.token = tok
	i.mu.Unlock()

	i.logger.Info("authorization stored", log.Bool("refresh_token", tok.RefreshToken != ""))
	return nil
}

// Authenticated reports whether a token with an access or refresh token is
// held.
func (i *Identity) Authenticated() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.token != nil && (i.token.AccessToken != "" || i.token.RefreshToken != "")
}

// TokenSource returns a source that refreshes the held token and persists
// every new token it obtains. It fails with domain.ErrNotAuthenticated when
// no token is held.
func (i *Identity) TokenSource(ctx context.Context) oauth2.TokenSource {
	i.mu.Lock()
	tok := i.token
	i.mu.Unlock()

	if tok == nil {
		return errTokenSource{err: domain.ErrNotAuthenticated}
	}

	src := &persistingSource{
		base:     i.oauth.TokenSource(context.WithoutCancel(ctx), tok),
		identity: i,
		last:     tok.AccessToken,
	}
	return oauth2.ReuseTokenSource(tok, src)
}

type persistingSource struct {
	base     oauth2.TokenSource
	identity *Identity

	mu   sync.Mutex
	last string
}

func (s *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken == s.last {
		return tok, nil
	}
	s.last = tok.AccessToken

	s.identity.mu.Lock()
	s.identity.token = tok
	s.identity.mu.Unlock()

	if err := s.identity.store.Save(context.Background(), tok); err != nil {
		s.identity.logger.Warn("failed to persist refreshed token", log.Err(err))
	} else {
		s.identity.logger.Info("access token refreshed", log.Time("expiry", tok.Expiry))
	}
	return tok, nil
}

type errTokenSource struct {
	err error
}

func (s errTokenSource) Token() (*oauth2.Token, error) { return nil, s.err }

