package dash

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/zencoder/go-dash/v3/mpd"

	"github.com/GintGld/fizteh-radio-bot/internal/client"
	"github.com/GintGld/fizteh-radio-bot/internal/lib/logger/sl"
)

// Client downloads public stream manifest.
type Client struct {
	log *slog.Logger
	url string
	c   http.Client
}

func New(
	log *slog.Logger,
	url string,
	timeout time.Duration,
) *Client {
	return &Client{
		log: log,
		url: url,
		c:   http.Client{Timeout: timeout},
	}
}

// Manifest fetches and parses manifest.
func (c *Client) Manifest(ctx context.Context) (*mpd.MPD, error) {
	const op = "Client.Manifest"

	log := c.log.With(
		slog.String("op", op),
		slog.String("url", c.url),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	resp, err := c.c.Do(req)
	if err != nil {
		log.Error("failed to get manifest", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", op, client.ErrNotFound)
	default:
		return nil, fmt.Errorf("%s: %w: %d", op, client.ErrUnexpectedStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	man, err := mpd.ReadFromString(string(body))
	if err != nil {
		log.Error("failed to parse manifest", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return man, nil
}
