package fs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/bft-labs/streamkeeper/internal/domain"
)

func TestStateFileRepository_LoadAbsent(t *testing.T) {
	repo := NewStateFileRepository(t.TempDir())

	rec, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestStateFileRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewStateFileRepository(filepath.Join(t.TempDir(), "nested"))

	want := domain.NewRecord("abc", time.Date(2026, 10, 19, 8, 30, 0, 0, time.UTC))
	require.NoError(t, repo.Save(ctx, want))

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.ResourceID, got.ResourceID)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
}

func TestStateFileRepository_FileFormat(t *testing.T) {
	ctx := context.Background()
	repo := NewStateFileRepository(t.TempDir())

	require.NoError(t, repo.Save(ctx, domain.NewRecord("abc", time.Date(2026, 10, 19, 8, 30, 0, 0, time.UTC))))

	data, err := os.ReadFile(repo.Path())
	require.NoError(t, err)
	assert.JSONEq(t, `{"resourceId":"abc","createdAt":"2026-10-19T08:30:00Z"}`, string(data))
}

func TestStateFileRepository_SaveOverwrites(t *testing.T) {
	ctx := context.Background()
	repo := NewStateFileRepository(t.TempDir())
	now := time.Now()

	require.NoError(t, repo.Save(ctx, domain.NewRecord("old", now)))
	require.NoError(t, repo.Save(ctx, domain.NewRecord("new", now.Add(time.Hour))))

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new", got.ResourceID)

	// No temp files are left behind.
	entries, err := os.ReadDir(repo.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestStateFileRepository_Corrupt(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"truncated json", `{"resourceId": "abc", "createdAt": "2026-`},
		{"not json", "hello"},
		{"missing id", `{"createdAt": "2026-10-19T08:30:00Z"}`},
		{"bad timestamp", `{"resourceId": "abc", "createdAt": "yesterday"}`},
		{"trailing garbage", `{"resourceId": "abc", "createdAt": "2026-10-19T08:30:00Z"}}}x`},
		{"two objects", `{"resourceId": "abc", "createdAt": "2026-10-19T08:30:00Z"}{"resourceId": "def"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewStateFileRepository(t.TempDir())
			require.NoError(t, os.WriteFile(repo.Path(), []byte(tt.content), 0o600))

			rec, err := repo.Load(context.Background())
			assert.Nil(t, rec)

			var corrupt *domain.CorruptStateError
			require.True(t, errors.As(err, &corrupt), "got %v", err)
			assert.Equal(t, repo.Path(), corrupt.Path)
		})
	}
}

func TestStateFileRepository_Clear(t *testing.T) {
	ctx := context.Background()
	repo := NewStateFileRepository(t.TempDir())

	require.NoError(t, repo.Clear(ctx), "clearing an absent record")

	require.NoError(t, repo.Save(ctx, domain.NewRecord("abc", time.Now())))
	require.NoError(t, repo.Clear(ctx))

	rec, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestTokenFileStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewTokenFileStore(filepath.Join(t.TempDir(), "token.json"))

	tok, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, tok)

	want := &oauth2.Token{AccessToken: "access", RefreshToken: "refresh", TokenType: "Bearer"}
	require.NoError(t, store.Save(ctx, want))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "access", got.AccessToken)
	assert.Equal(t, "refresh", got.RefreshToken)

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}
