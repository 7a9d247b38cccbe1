package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/GintGld/fizteh-radio-bot/internal/client"
	"github.com/GintGld/fizteh-radio-bot/internal/lib/logger/sl"
	"github.com/GintGld/fizteh-radio-bot/internal/models"
	"github.com/GintGld/fizteh-radio-bot/internal/service"
)

// refreshMargin is how long before expiry a token is renewed.
const refreshMargin = 5 * time.Second

type Auth struct {
	log         *slog.Logger
	userStorage UserStorage
	radio       Radio
	jwt         TokenParser
	sealer      Sealer

	mutex  sync.Mutex
	users  map[int64]models.User
	tokens map[int64]models.Token
}

type UserStorage interface {
	SaveUser(ctx context.Context, user models.User) error
	Users(ctx context.Context) ([]models.User, error)
}

type Radio interface {
	Login(ctx context.Context, login, pass string) (string, error)
}

type TokenParser interface {
	ParseToken(raw string) (models.Token, error)
}

type Sealer interface {
	Seal(plain string) (string, error)
	Open(sealed string) (string, error)
}

// New returns new instance of authentication service
func New(
	log *slog.Logger,
	userStorage UserStorage,
	radio Radio,
	jwt TokenParser,
	sealer Sealer,
) *Auth {
	return &Auth{
		log:         log,
		userStorage: userStorage,
		radio:       radio,
		jwt:         jwt,
		sealer:      sealer,
		users:       make(map[int64]models.User),
		tokens:      make(map[int64]models.Token),
	}
}

// Load reads known users from storage.
func (a *Auth) Load(ctx context.Context) error {
	const op = "Auth.Load"

	log := a.log.With(slog.String("op", op))

	users, err := a.userStorage.Users(ctx)
	if err != nil {
		log.Error("failed to read users", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	a.mutex.Lock()
	defer a.mutex.Unlock()

	for _, user := range users {
		pass, err := a.sealer.Open(user.Pass)
		if err != nil {
			log.Warn("cannot open stored password, user skipped", slog.Int64("userId", user.ID), sl.Err(err))
			continue
		}
		user.Pass = pass
		a.users[user.ID] = user
	}

	log.Info("loaded users", slog.Int("count", len(a.users)))

	return nil
}

// IsKnown reports whether user has credentials.
func (a *Auth) IsKnown(id int64) bool {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	_, ok := a.users[id]
	return ok
}

// UserLogin returns radio login of the user.
func (a *Auth) UserLogin(id int64) (string, error) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	user, ok := a.users[id]
	if !ok {
		return "", service.ErrUserNotFound
	}
	return user.Login, nil
}

// Login checks credentials in radio and remembers the user.
//
// If radio rejects credentials, returns service.ErrInvalidCredentials.
func (a *Auth) Login(ctx context.Context, id int64, login, pass string) error {
	const op = "Auth.Login"

	log := a.log.With(
		slog.String("op", op),
		slog.Int64("userId", id),
		slog.String("login", login),
	)

	log.Info("attempting to login user")

	token, err := a.login(ctx, login, pass)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			log.Info("invalid credentials")
		} else {
			log.Error("failed to login", sl.Err(err))
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	sealed, err := a.sealer.Seal(pass)
	if err != nil {
		log.Error("failed to seal password", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := a.userStorage.SaveUser(ctx, models.User{ID: id, Login: login, Pass: sealed}); err != nil {
		log.Error("failed to save user", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	a.mutex.Lock()
	a.users[id] = models.User{ID: id, Login: login, Pass: pass}
	a.tokens[id] = token
	a.mutex.Unlock()

	log.Info("user logged in successfully")

	return nil
}

// Token returns valid access token of the user,
// logging in again if cached one is absent or expires soon.
func (a *Auth) Token(ctx context.Context, id int64) (string, error) {
	const op = "Auth.Token"

	log := a.log.With(
		slog.String("op", op),
		slog.Int64("userId", id),
	)

	a.mutex.Lock()
	user, known := a.users[id]
	token := a.tokens[id]
	a.mutex.Unlock()

	if !known {
		return "", fmt.Errorf("%s: %w", op, service.ErrUserNotFound)
	}

	if token.Valid(time.Now(), refreshMargin) {
		return token.Raw, nil
	}

	log.Debug("refreshing token")

	token, err := a.login(ctx, user.Login, user.Pass)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			log.Warn("stored credentials rejected, user forgotten")
			a.mutex.Lock()
			delete(a.users, id)
			delete(a.tokens, id)
			a.mutex.Unlock()
		} else {
			log.Error("failed to refresh token", sl.Err(err))
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}

	a.mutex.Lock()
	a.tokens[id] = token
	a.mutex.Unlock()

	return token.Raw, nil
}

// Do calls f with a valid token. If radio answers
// that token is not accepted, token is renewed and f called once more.
func (a *Auth) Do(ctx context.Context, id int64, f func(token string) error) error {
	token, err := a.Token(ctx, id)
	if err != nil {
		return err
	}

	err = f(token)
	if !errors.Is(err, client.ErrNotAuthorized) {
		return err
	}

	a.mutex.Lock()
	delete(a.tokens, id)
	a.mutex.Unlock()

	token, err = a.Token(ctx, id)
	if err != nil {
		return err
	}

	return f(token)
}

func (a *Auth) login(ctx context.Context, login, pass string) (models.Token, error) {
	raw, err := a.radio.Login(ctx, login, pass)
	if err != nil {
		if errors.Is(err, client.ErrInvalidCredentials) {
			return models.Token{}, service.ErrInvalidCredentials
		}
		return models.Token{}, err
	}

	token, err := a.jwt.ParseToken(raw)
	if err != nil {
		return models.Token{}, err
	}

	return token, nil
}
