package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
)

var (
	ErrBadStatus = errors.New("unexpected status")
	ErrTooLarge  = errors.New("file is too large")
)

// File downloads url into new file in dir
// named by pattern (see os.CreateTemp).
// Files larger than maxSize are rejected.
func File(ctx context.Context, c *http.Client, url, dir, pattern string, maxSize int64) (string, error) {
	const op = "download.File"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	resp, err := c.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s: %w: %d", op, ErrBadStatus, resp.StatusCode)
	}
	if resp.ContentLength > maxSize {
		return "", fmt.Errorf("%s: %w", op, ErrTooLarge)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	file, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	n, err := io.Copy(file, io.LimitReader(resp.Body, maxSize+1))
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err == nil && n > maxSize {
		err = ErrTooLarge
	}
	if err != nil {
		os.Remove(file.Name())
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return file.Name(), nil
}
