package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GintGld/fizteh-radio-bot/internal/models"
	"github.com/GintGld/fizteh-radio-bot/internal/storage"
)

func TestSaveUser(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), ".cache", "users.json")

	s, err := New(path)
	require.NoError(t, err)

	users, err := s.Users(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)

	u1 := models.User{ID: 20, Login: gofakeit.Username(), Pass: gofakeit.Password(true, true, true, false, false, 10)}
	u2 := models.User{ID: 10, Login: gofakeit.Username(), Pass: gofakeit.Password(true, true, true, false, false, 10)}

	require.NoError(t, s.SaveUser(ctx, u1))
	require.NoError(t, s.SaveUser(ctx, u2))

	users, err = s.Users(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.User{u2, u1}, users)

	u1.Pass = "changed"
	require.NoError(t, s.SaveUser(ctx, u1))

	users, err = s.Users(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.User{u2, u1}, users)

	// survives reopening
	s2, err := New(path)
	require.NoError(t, err)
	users, err = s2.Users(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	// no temp files left
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestReadFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"123": {"login": "user", "pass": "secret"}}`), 0o600))

	s, err := New(path)
	require.NoError(t, err)

	users, err := s.Users(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.User{{ID: 123, Login: "user", Pass: "secret"}}, users)
}

func TestCancelledContext(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "users.json"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = s.SaveUser(ctx, models.User{ID: 1})
	require.ErrorIs(t, err, storage.ErrContextCancelled)
}
