package google

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/bft-labs/streamkeeper/internal/adapters/fs"
	"github.com/bft-labs/streamkeeper/internal/domain"
	"github.com/bft-labs/streamkeeper/pkg/log"
)

func tokenServer(t *testing.T, refreshes *atomic.Int32) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		w.Header().Set("Content-Type", "application/json")
		switch r.Form.Get("grant_type") {
		case "authorization_code":
			assert.Equal(t, "the-code", r.Form.Get("code"))
			_, _ = w.Write([]byte(`{"access_token":"at-1","refresh_token":"rt-1","token_type":"Bearer","expires_in":3600}`))
		case "refresh_token":
			refreshes.Add(1)
			assert.Equal(t, "rt-1", r.Form.Get("refresh_token"))
			_, _ = w.Write([]byte(`{"access_token":"at-2","token_type":"Bearer","expires_in":3600}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(srv *httptest.Server) Config {
	return Config{
		ClientID:     "client",
		ClientSecret: "secret",
		Endpoint: oauth2.Endpoint{
			AuthURL:   srv.URL + "/auth",
			TokenURL:  srv.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

func TestNewIdentity_RequiresClient(t *testing.T) {
	store := fs.NewTokenFileStore(filepath.Join(t.TempDir(), "token.json"))
	_, err := NewIdentity(context.Background(), Config{}, store, log.NewNoopLogger())
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestAuthCodeURL(t *testing.T) {
	var n atomic.Int32
	srv := tokenServer(t, &n)
	store := fs.NewTokenFileStore(filepath.Join(t.TempDir(), "token.json"))
	id, err := NewIdentity(context.Background(), testConfig(srv), store, log.NewNoopLogger())
	require.NoError(t, err)

	u, err := url.Parse(id.AuthCodeURL("state-1"))
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "consent", q.Get("prompt"))
	assert.Equal(t, "https://www.googleapis.com/auth/youtube", q.Get("scope"))
	assert.Equal(t, DefaultRedirectURL, q.Get("redirect_uri"))
	assert.Equal(t, "state-1", q.Get("state"))
}

func TestExchange_StoresToken(t *testing.T) {
	var n atomic.Int32
	srv := tokenServer(t, &n)
	store := fs.NewTokenFileStore(filepath.Join(t.TempDir(), "token.json"))
	ctx := context.Background()

	id, err := NewIdentity(ctx, testConfig(srv), store, log.NewNoopLogger())
	require.NoError(t, err)
	assert.False(t, id.Authenticated())

	_, err = id.TokenSource(ctx).Token()
	assert.ErrorIs(t, err, domain.ErrNotAuthenticated)

	require.NoError(t, id.Exchange(ctx, "the-code"))
	assert.True(t, id.Authenticated())

	stored, err := store.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "at-1", stored.AccessToken)
	assert.Equal(t, "rt-1", stored.RefreshToken)

	reloaded, err := NewIdentity(ctx, testConfig(srv), store, log.NewNoopLogger())
	require.NoError(t, err)
	assert.True(t, reloaded.Authenticated())
}

func TestTokenSource_PersistsRefreshedToken(t *testing.T) {
	var refreshes atomic.Int32
	srv := tokenServer(t, &refreshes)
	store := fs.NewTokenFileStore(filepath.Join(t.TempDir(), "token.json"))
	ctx := context.Background()

	expired := &oauth2.Token{
		AccessToken:  "at-1",
		RefreshToken: "rt-1",
		TokenType:    "Bearer",
		Expiry:       time.Now().Add(-time.Hour),
	}
	require.NoError(t, store.Save(ctx, expired))

	id, err := NewIdentity(ctx, testConfig(srv), store, log.NewNoopLogger())
	require.NoError(t, err)

	ts := id.TokenSource(ctx)
	tok, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "at-2", tok.AccessToken)

	_, err = ts.Token()
	require.NoError(t, err)
	assert.Equal(t, int32(1), refreshes.Load())

	stored, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "at-2", stored.AccessToken)
	assert.Equal(t, "rt-1", stored.RefreshToken)
}
