package radio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/GintGld/fizteh-radio-bot/internal/client"
	"github.com/GintGld/fizteh-radio-bot/internal/lib/logger/sl"
	"github.com/GintGld/fizteh-radio-bot/internal/models"
)

// Client talks to the radio REST API.
type Client struct {
	log  *slog.Logger
	addr string
	c    http.Client
}

func New(
	log *slog.Logger,
	addr string,
	timeout time.Duration,
) *Client {
	if !strings.HasPrefix(addr, "http://") && !strings.HasPrefix(addr, "https://") {
		addr = "http://" + addr
	}

	return &Client{
		log:  log,
		addr: strings.TrimRight(addr, "/"),
		c:    http.Client{Timeout: timeout},
	}
}

// Login exchanges credentials for access token.
func (c *Client) Login(ctx context.Context, login, pass string) (string, error) {
	const op = "Client.Login"

	log := c.log.With(
		slog.String("op", op),
		slog.String("login", login),
	)

	body, err := json.Marshal(map[string]string{
		"login": login,
		"pass":  pass,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.addr+"/login", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	var form struct {
		Token string `json:"token"`
	}

	if err := c.do(req, "", &form); err != nil {
		if errors.Is(err, client.ErrBadRequest) {
			log.Debug("radio rejected credentials")
			return "", fmt.Errorf("%s: %w", op, client.ErrInvalidCredentials)
		}
		log.Error("failed to login", sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return form.Token, nil
}

// Library returns the whole media library.
func (c *Client) Library(ctx context.Context, token string) ([]models.Media, error) {
	const op = "Client.Library"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.addr+"/library/media", nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var form struct {
		Library []models.Media `json:"library"`
	}

	if err := c.do(req, token, &form); err != nil {
		c.log.Error("failed to get library", slog.String("op", op), sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if form.Library == nil {
		form.Library = []models.Media{}
	}

	return form.Library, nil
}

// Tags returns all tags registered in radio.
func (c *Client) Tags(ctx context.Context, token string) (models.TagList, error) {
	const op = "Client.Tags"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.addr+"/library/tag", nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var form struct {
		Tags models.TagList `json:"tags"`
	}

	if err := c.do(req, token, &form); err != nil {
		c.log.Error("failed to get tags", slog.String("op", op), sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if form.Tags == nil {
		form.Tags = models.TagList{}
	}

	return form.Tags, nil
}

// NewMedia uploads media with its source file and returns new media id.
func (c *Client) NewMedia(ctx context.Context, token string, media models.Media, sourcePath string) (int64, error) {
	const op = "Client.NewMedia"

	log := c.log.With(
		slog.String("op", op),
	)

	payload, err := json.Marshal(media)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	file, err := os.Open(sourcePath)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer file.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("media", string(payload)); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="source"; filename="%s"`, filepath.Base(sourcePath)))
	h.Set("Content-Type", "audio/mpeg")
	part, err := w.CreatePart(h)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if err := w.Close(); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.addr+"/library/media", &buf)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var form struct {
		ID int64 `json:"id"`
	}

	if err := c.do(req, token, &form); err != nil {
		log.Error("failed to upload media", sl.Err(err))
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("uploaded media", slog.Int64("id", form.ID))

	return form.ID, nil
}

// Schedule returns segments starting from given moment.
func (c *Client) Schedule(ctx context.Context, token string, start time.Time) ([]models.Segment, error) {
	const op = "Client.Schedule"

	q := url.Values{}
	q.Set("start", strconv.FormatInt(start.Unix(), 10))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.addr+"/schedule?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var form struct {
		Segments []models.Segment `json:"segments"`
	}

	if err := c.do(req, token, &form); err != nil {
		c.log.Error("failed to get schedule", slog.String("op", op), sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if form.Segments == nil {
		form.Segments = []models.Segment{}
	}

	return form.Segments, nil
}

// NewSegment registers segment and returns its id.
func (c *Client) NewSegment(ctx context.Context, token string, segm models.Segment) (int64, error) {
	const op = "Client.NewSegment"

	body, err := json.Marshal(struct {
		Segment models.Segment `json:"segment"`
	}{segm})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.addr+"/schedule", bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	var form struct {
		ID int64 `json:"id"`
	}

	if err := c.do(req, token, &form); err != nil {
		c.log.Error("failed to create segment", slog.String("op", op), sl.Err(err))
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return form.ID, nil
}

// DeleteSegment deletes segment by id.
func (c *Client) DeleteSegment(ctx context.Context, token string, id int64) error {
	const op = "Client.DeleteSegment"

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.addr+"/schedule/"+strconv.FormatInt(id, 10), nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := c.do(req, token, nil); err != nil {
		c.log.Error("failed to delete segment", slog.String("op", op), slog.Int64("id", id), sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// do sends request and decodes response body into out.
// Non-200 statuses are mapped to client errors.
func (c *Client) do(req *http.Request, token string, out any) error {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", client.ErrBadRequest, errorMessage(body))
	case http.StatusUnauthorized:
		return client.ErrNotAuthorized
	case http.StatusNotFound:
		return client.ErrNotFound
	case http.StatusInternalServerError:
		return client.ErrInternalServerError
	default:
		return fmt.Errorf("%w: %d", client.ErrUnexpectedStatus, resp.StatusCode)
	}

	if out == nil || len(body) == 0 {
		return nil
	}

	return json.Unmarshal(body, out)
}

func errorMessage(body []byte) string {
	var form struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &form); err != nil || form.Error == "" {
		return string(body)
	}
	return form.Error
}
