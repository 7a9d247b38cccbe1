package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/GintGld/fizteh-radio-bot/internal/app/webhook"
	"github.com/GintGld/fizteh-radio-bot/internal/client/dash"
	"github.com/GintGld/fizteh-radio-bot/internal/client/radio"
	"github.com/GintGld/fizteh-radio-bot/internal/config"
	"github.com/GintGld/fizteh-radio-bot/internal/controller"
	"github.com/GintGld/fizteh-radio-bot/internal/lib/crypto"
	"github.com/GintGld/fizteh-radio-bot/internal/lib/logger/sl"
	"github.com/GintGld/fizteh-radio-bot/internal/session"
	"github.com/GintGld/fizteh-radio-bot/internal/storage/file"
	"github.com/GintGld/fizteh-radio-bot/internal/storage/sqlite"

	djCtr "github.com/GintGld/fizteh-radio-bot/internal/controller/autodj"
	helpCtr "github.com/GintGld/fizteh-radio-bot/internal/controller/help"
	libCtr "github.com/GintGld/fizteh-radio-bot/internal/controller/library"
	onairCtr "github.com/GintGld/fizteh-radio-bot/internal/controller/onair"
	schCtr "github.com/GintGld/fizteh-radio-bot/internal/controller/schedule"
	startCtr "github.com/GintGld/fizteh-radio-bot/internal/controller/start"
	uploadCtr "github.com/GintGld/fizteh-radio-bot/internal/controller/upload"

	authSrv "github.com/GintGld/fizteh-radio-bot/internal/service/auth"
	djSrv "github.com/GintGld/fizteh-radio-bot/internal/service/autodj"
	jwtSrv "github.com/GintGld/fizteh-radio-bot/internal/service/jwt"
	libSrv "github.com/GintGld/fizteh-radio-bot/internal/service/library"
	onairSrv "github.com/GintGld/fizteh-radio-bot/internal/service/onair"
	schSrv "github.com/GintGld/fizteh-radio-bot/internal/service/schedule"
)

const (
	pollTimeout  = 60
	updateBuffer = 100
	sweepPeriod  = time.Minute
)

type App struct {
	log     *slog.Logger
	cfg     *config.Config
	bot     *tgbotapi.BotAPI
	router  *controller.Router
	webhook *webhook.App
	secret  string
	memory  *session.Memory
	updates chan tgbotapi.Update
	closers []func() error
}

type userStorage interface {
	authSrv.UserStorage
	Stop() error
}

// New builds services and controllers of the bot.
func New(
	log *slog.Logger,
	cfg *config.Config,
	tgToken string,
	storeSecret string,
) (*App, error) {
	const op = "app.New"

	a := &App{
		log:     log,
		cfg:     cfg,
		updates: make(chan tgbotapi.Update, updateBuffer),
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := os.MkdirAll(cfg.TmpDir, 0o755); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	users, err := newUserStorage(cfg.Users)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	a.closers = append(a.closers, users.Stop)

	sessions, err := a.newSessionStore(cfg.Session)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sealer := crypto.New(storeSecret)
	if !sealer.Enabled() {
		log.Warn("STORE_SECRET is not set, passwords are stored as is")
	}

	radioClient := radio.New(log, cfg.Radio.Addr, cfg.Radio.Timeout)

	auth := authSrv.New(
		log,
		users,
		radioClient,
		jwtSrv.New(),
		sealer,
	)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	defer cancel()
	if err := auth.Load(ctx); err != nil {
		a.close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lib := libSrv.New(log, auth, radioClient)
	sch := schSrv.New(log, auth, radioClient, loc)
	dj := djSrv.New(log, lib, sch, cfg.AutoDJMaxHours, cfg.AutoDJTimeout)

	// OnAir is disabled by untyped nil manifest.
	var manifest onairSrv.Manifest
	if cfg.ManifestURL != "" {
		manifest = dash.New(log, cfg.ManifestURL, cfg.Radio.Timeout)
	}
	air := onairSrv.New(log, manifest, sch, lib)

	bot, err := tgbotapi.NewBotAPI(tgToken)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	a.bot = bot

	log.Info("authorized in telegram", slog.String("bot", bot.Self.UserName))

	a.router = controller.NewRouter(log, bot, auth, sessions, controller.MainMenu(air.Enabled()))

	startCtr.New(auth).Mount(a.router)
	helpCtr.New(air.Enabled()).Mount(a.router)
	libCtr.New(lib, sch).Mount(a.router)
	uploadCtr.New(lib, cfg.TmpDir, cfg.MaxUploadSize).Mount(a.router)
	schCtr.New(lib, sch, cfg.SchedulePageSize).Mount(a.router)
	djCtr.New(dj, lib, sch).Mount(a.router)
	if air.Enabled() {
		onairCtr.New(air, loc).Mount(a.router)
	}

	if cfg.Webhook.URL != "" {
		a.secret = cfg.Webhook.Secret
		if a.secret == "" {
			a.secret = webhook.Secret(tgToken)
		}
		a.webhook = webhook.New(log, cfg.HTTPServer.Address, cfg.HTTPServer.IdleTimeout, a.secret, a.updates)
	}

	return a, nil
}

func newUserStorage(cfg config.Users) (userStorage, error) {
	switch cfg.Storage {
	case "file":
		return file.New(cfg.Path)
	case "sqlite":
		return sqlite.New(cfg.Path)
	}
	return nil, fmt.Errorf("unknown user storage %q", cfg.Storage)
}

func (a *App) newSessionStore(cfg config.Session) (session.Store, error) {
	switch cfg.Storage {
	case "memory":
		a.memory = session.NewMemory(a.log, cfg.TTL)
		return a.memory, nil
	case "redis":
		rdb := session.NewRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.TTL)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx); err != nil {
			rdb.Close()
			return nil, err
		}

		a.closers = append(a.closers, rdb.Close)
		return rdb, nil
	}
	return nil, fmt.Errorf("unknown session storage %q", cfg.Storage)
}

// Run receives updates until ctx is cancelled.
// Updates are handled one by one.
func (a *App) Run(ctx context.Context) error {
	const op = "App.Run"

	log := a.log.With(
		slog.String("op", op),
	)

	var wg sync.WaitGroup
	defer wg.Wait()

	if a.memory != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.memory.Run(ctx, sweepPeriod, a.evict)
		}()
	}

	if err := a.receive(ctx, &wg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("bot is running")

	for {
		select {
		case <-ctx.Done():
			return nil
		case upd := <-a.updates:
			a.handle(ctx, upd)
		}
	}
}

// receive starts feeding a.updates either
// from webhook server or by long polling.
func (a *App) receive(ctx context.Context, wg *sync.WaitGroup) error {
	if a.webhook != nil {
		wh, err := tgbotapi.NewWebhook(strings.TrimRight(a.cfg.Webhook.URL, "/") + "/" + a.secret)
		if err != nil {
			return err
		}
		if _, err := a.bot.Request(wh); err != nil {
			return err
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := a.webhook.Run(); err != nil {
				a.log.Error("webhook server stopped", sl.Err(err))
			}
		}()

		go func() {
			<-ctx.Done()
			if err := a.webhook.Stop(); err != nil {
				a.log.Error("failed to stop webhook server", sl.Err(err))
			}
		}()

		return nil
	}

	if _, err := a.bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return err
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeout
	polled := a.bot.GetUpdatesChan(u)

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				a.bot.StopReceivingUpdates()
				return
			case upd, ok := <-polled:
				if !ok {
					return
				}
				select {
				case a.updates <- upd:
				case <-ctx.Done():
				}
			}
		}
	}()

	return nil
}

func (a *App) handle(ctx context.Context, upd tgbotapi.Update) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.RequestTimeout)
	defer cancel()

	a.router.Handle(ctx, upd)
}

// evict removes upload abandoned by expired session.
func (a *App) evict(s session.Session) {
	if s.Upload.Path == "" {
		return
	}
	if err := os.Remove(s.Upload.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		a.log.Warn("failed to remove abandoned upload", slog.Int64("userId", s.ID), sl.Err(err))
	}
}

// Stop releases storages.
func (a *App) Stop() {
	a.close()
}

func (a *App) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Error("failed to close", sl.Err(err))
		}
	}
	a.closers = nil
}
