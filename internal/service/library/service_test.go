package library_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GintGld/fizteh-radio-bot/internal/client/radio"
	"github.com/GintGld/fizteh-radio-bot/internal/lib/radiotest"
	"github.com/GintGld/fizteh-radio-bot/internal/models"
	"github.com/GintGld/fizteh-radio-bot/internal/service"
	"github.com/GintGld/fizteh-radio-bot/internal/service/library"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func setup(t *testing.T) (*radiotest.Server, *library.Library) {
	t.Helper()

	srv := radiotest.New("login", "pass")
	t.Cleanup(srv.Close)

	return srv, library.New(discard, srv.Auth(), radio.New(discard, srv.URL, 5*time.Second))
}

func tmpSource(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "source.mp3")
	require.NoError(t, os.WriteFile(path, []byte("ID3 payload"), 0o644))

	return path
}

func TestRefreshAndSearch(t *testing.T) {
	srv, lib := setup(t)
	ctx := context.Background()

	srv.AddMedia("Yesterday", "The Beatles", 2*time.Minute)
	srv.AddMedia("Bohemian Rhapsody", "Queen", 6*time.Minute)
	srv.AddMedia("Let It Be", "The Beatles", 4*time.Minute)

	assert.Empty(t, lib.All(1))

	require.NoError(t, lib.Refresh(ctx, 1))
	assert.Len(t, lib.All(1), 3)

	// snapshots are per user
	assert.Empty(t, lib.All(2))

	res, err := lib.Search(ctx, 1, "BEATLES")
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "Yesterday", *res[0].Name)
	assert.Equal(t, "Let It Be", *res[1].Name)

	res, err = lib.Search(ctx, 1, "metallica")
	require.NoError(t, err)
	assert.Empty(t, res)

	sugg := lib.Suggestions(1, "quen", 5)
	require.Len(t, sugg, 1)
	assert.Equal(t, "Queen", *sugg[0].Author)

	m, err := lib.Media(1, *res[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, *m.Duration)

	_, err = lib.Media(1, 1000)
	require.ErrorIs(t, err, service.ErrMediaNotFound)
}

func TestSearchWithoutSnapshot(t *testing.T) {
	srv, lib := setup(t)
	ctx := context.Background()

	srv.AddMedia("Yesterday", "The Beatles", 2*time.Minute)

	// e.g. session restored after restart
	res, err := lib.Search(ctx, 1, "yesterday")
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, 1, srv.Stats().LibraryRequests)

	// existing snapshot is not refetched
	_, err = lib.Search(ctx, 1, "beatles")
	require.NoError(t, err)
	assert.Equal(t, 1, srv.Stats().LibraryRequests)
}

func TestSearchByTag(t *testing.T) {
	srv, lib := setup(t)
	ctx := context.Background()

	rock := srv.AddTag("genre", "Рок")
	srv.AddTag("mood", "спокойное")

	srv.AddMedia("Yesterday", "The Beatles", 2*time.Minute)
	id := srv.AddMedia("Bohemian Rhapsody", "Queen", 6*time.Minute)
	srv.TagMedia(id, rock)

	require.NoError(t, lib.Refresh(ctx, 1))

	tags := lib.Tags(1)
	require.Len(t, tags, 2)
	assert.Equal(t, "Рок", tags[0].Name)

	res, err := lib.Search(ctx, 1, "#рок")
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, id, *res[0].ID)
}

func TestUpload(t *testing.T) {
	srv, lib := setup(t)
	ctx := context.Background()

	path := tmpSource(t)

	res, err := lib.Upload(ctx, 1, models.MediaUpload{
		Name:       "Song",
		Author:     "Band",
		SourcePath: path,
	})
	require.NoError(t, err)
	assert.False(t, res.Stale)
	assert.NotZero(t, res.ID)

	_, err = os.Stat(path)
	require.ErrorIs(t, err, os.ErrNotExist)

	m, err := lib.Media(1, res.ID)
	require.NoError(t, err)
	assert.Equal(t, "Song", *m.Name)

	// same media once more
	path = tmpSource(t)
	_, err = lib.Upload(ctx, 1, models.MediaUpload{
		Name:       "song",
		Author:     "BAND",
		SourcePath: path,
	})
	require.ErrorIs(t, err, service.ErrMediaExists)

	_, err = os.Stat(path)
	require.ErrorIs(t, err, os.ErrNotExist)

	assert.Equal(t, 1, srv.Stats().Uploads)
}

func TestUploadFailureRemovesSource(t *testing.T) {
	srv, lib := setup(t)
	srv.Close()

	path := tmpSource(t)

	_, err := lib.Upload(context.Background(), 1, models.MediaUpload{
		Name:       "Song",
		Author:     "Band",
		SourcePath: path,
	})
	require.Error(t, err)

	_, err = os.Stat(path)
	require.ErrorIs(t, err, os.ErrNotExist)
}
