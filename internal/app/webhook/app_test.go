package webhook_test

import (
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/gavv/httpexpect/v2"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GintGld/fizteh-radio-bot/internal/app/webhook"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

const secret = "s3cr3t"

func newExpect(t *testing.T, updates chan tgbotapi.Update) *httpexpect.Expect {
	t.Helper()

	app := webhook.New(discard, "localhost:0", time.Minute, secret, updates)

	return httpexpect.WithConfig(httpexpect.Config{
		BaseURL: "http://example.com",
		Client: &http.Client{
			Transport: httpexpect.NewFastBinder(app.Handler().Handler()),
		},
		Reporter: httpexpect.NewAssertReporter(t),
		Printers: []httpexpect.Printer{
			httpexpect.NewDebugPrinter(t, true),
		},
	})
}

func TestHealth(t *testing.T) {
	e := newExpect(t, make(chan tgbotapi.Update))

	e.GET("/health").
		Expect().
		Status(http.StatusOK).
		JSON().Object().
		HasValue("status", "ok")
}

func TestUpdate(t *testing.T) {
	updates := make(chan tgbotapi.Update, 1)
	e := newExpect(t, updates)

	e.POST(webhook.Path + "/" + secret).
		WithJSON(map[string]any{
			"update_id": 100,
			"message": map[string]any{
				"message_id": 5,
				"from":       map[string]any{"id": 42, "first_name": "radist"},
				"chat":       map[string]any{"id": 42, "type": "private"},
				"text":       "hello",
			},
		}).
		Expect().
		Status(http.StatusOK)

	require.Len(t, updates, 1)
	upd := <-updates
	assert.Equal(t, 100, upd.UpdateID)
	require.NotNil(t, upd.Message)
	assert.Equal(t, int64(42), upd.Message.From.ID)
	assert.Equal(t, "hello", upd.Message.Text)
}

func TestBadUpdate(t *testing.T) {
	updates := make(chan tgbotapi.Update, 1)
	e := newExpect(t, updates)

	e.POST(webhook.Path + "/" + secret).
		WithHeader("Content-Type", "application/json").
		WithBytes([]byte("{not json")).
		Expect().
		Status(http.StatusBadRequest).
		JSON().Object().
		HasValue("error", "invalid update")

	assert.Empty(t, updates)
}

func TestUpdateSecret(t *testing.T) {
	testCases := []struct {
		desc string
		path string
	}{
		{
			desc: "no secret",
			path: webhook.Path,
		},
		{
			desc: "empty secret",
			path: webhook.Path + "/",
		},
		{
			desc: "wrong secret",
			path: webhook.Path + "/guess",
		},
		{
			desc: "secret prefix",
			path: webhook.Path + "/" + secret[:3],
		},
		{
			desc: "token derived secret",
			path: webhook.Path + "/" + webhook.Secret("token"),
		},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			updates := make(chan tgbotapi.Update, 1)
			e := newExpect(t, updates)

			e.POST(tC.path).
				WithJSON(map[string]any{"update_id": 1}).
				Expect().
				Status(http.StatusForbidden).
				JSON().Object().
				HasValue("error", "forbidden")

			assert.Empty(t, updates)
		})
	}
}

func TestEmptySecretRejectsAll(t *testing.T) {
	updates := make(chan tgbotapi.Update, 1)
	app := webhook.New(discard, "localhost:0", time.Minute, "", updates)

	e := httpexpect.WithConfig(httpexpect.Config{
		BaseURL: "http://example.com",
		Client: &http.Client{
			Transport: httpexpect.NewFastBinder(app.Handler().Handler()),
		},
		Reporter: httpexpect.NewAssertReporter(t),
	})

	e.POST(webhook.Path + "/anything").
		WithJSON(map[string]any{"update_id": 1}).
		Expect().
		Status(http.StatusForbidden)

	assert.Empty(t, updates)
}

func TestSecret(t *testing.T) {
	assert.Equal(t, webhook.Secret("token"), webhook.Secret("token"))
	assert.NotEqual(t, webhook.Secret("token"), webhook.Secret("other"))
	assert.Len(t, webhook.Secret("token"), 64)
}
