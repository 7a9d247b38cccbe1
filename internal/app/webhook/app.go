package webhook

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gofiber/fiber/v2"

	"github.com/GintGld/fizteh-radio-bot/internal/lib/logger/sl"
)

// Path is where telegram posts updates,
// followed by secret path element.
const Path = "/webhook"

// enqueueTimeout bounds waiting for the update loop.
// Telegram redelivers update answered with an error.
const enqueueTimeout = 5 * time.Second

type App struct {
	log     *slog.Logger
	address string
	secret  []byte
	app     *fiber.App
	updates chan<- tgbotapi.Update
}

// Secret derives path secret from bot token.
func Secret(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// New returns http server feeding updates into channel.
// Updates are accepted only on Path + "/" + secret.
func New(
	log *slog.Logger,
	address string,
	idleTimeout time.Duration,
	secret string,
	updates chan<- tgbotapi.Update,
) *App {
	a := &App{
		log:     log,
		address: address,
		secret:  []byte(secret),
		updates: updates,
	}

	app := fiber.New(fiber.Config{
		IdleTimeout:           idleTimeout,
		DisableStartupMessage: true,
	})

	app.Get("/health", a.health)
	app.Post(Path, a.forbidden)
	app.Post(Path+"/:secret", a.authorize, a.update)

	a.app = app

	return a
}

// Handler exposes fiber app for tests.
func (a *App) Handler() *fiber.App {
	return a.app
}

func (a *App) Run() error {
	return a.app.Listen(a.address)
}

func (a *App) Stop() error {
	return a.app.Shutdown()
}

func (a *App) health(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "ok",
	})
}

func (a *App) authorize(c *fiber.Ctx) error {
	if len(a.secret) == 0 || subtle.ConstantTimeCompare([]byte(c.Params("secret")), a.secret) != 1 {
		return a.forbidden(c)
	}
	return c.Next()
}

func (a *App) forbidden(c *fiber.Ctx) error {
	a.log.Warn("rejected webhook request", slog.String("ip", c.IP()))
	return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
		"error": "forbidden",
	})
}

func (a *App) update(c *fiber.Ctx) error {
	const op = "App.update"

	log := a.log.With(
		slog.String("op", op),
	)

	var upd tgbotapi.Update
	if err := c.BodyParser(&upd); err != nil {
		log.Warn("bad update", sl.Err(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid update",
		})
	}

	select {
	case a.updates <- upd:
	case <-time.After(enqueueTimeout):
		log.Error("update queue is full", slog.Int("updateId", upd.UpdateID))
		return c.SendStatus(fiber.StatusServiceUnavailable)
	}

	return c.SendStatus(fiber.StatusOK)
}
