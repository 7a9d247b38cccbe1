package download_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GintGld/fizteh-radio-bot/internal/lib/download"
)

func TestFile(t *testing.T) {
	payload := strings.Repeat("ID3", 100)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/song.mp3":
			w.Write([]byte(payload))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)

	testCases := []struct {
		desc    string
		path    string
		maxSize int64
		err     error
	}{
		{
			desc:    "ok",
			path:    "/song.mp3",
			maxSize: 1 << 20,
		},
		{
			desc:    "exact size",
			path:    "/song.mp3",
			maxSize: int64(len(payload)),
		},
		{
			desc:    "too large",
			path:    "/song.mp3",
			maxSize: 10,
			err:     download.ErrTooLarge,
		},
		{
			desc:    "not found",
			path:    "/missing.mp3",
			maxSize: 1 << 20,
			err:     download.ErrBadStatus,
		},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "tmp")

			path, err := download.File(context.Background(), srv.Client(), srv.URL+tC.path, dir, "upload-*.mp3", tC.maxSize)
			if tC.err != nil {
				require.ErrorIs(t, err, tC.err)

				entries, _ := os.ReadDir(dir)
				assert.Empty(t, entries)
				return
			}
			require.NoError(t, err)

			assert.Equal(t, dir, filepath.Dir(path))
			assert.True(t, strings.HasSuffix(path, ".mp3"))

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, payload, string(data))
		})
	}
}
