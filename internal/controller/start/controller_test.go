package start_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GintGld/fizteh-radio-bot/internal/controller"
	"github.com/GintGld/fizteh-radio-bot/internal/controller/controllertest"
	"github.com/GintGld/fizteh-radio-bot/internal/controller/start"
	"github.com/GintGld/fizteh-radio-bot/internal/service"
	"github.com/GintGld/fizteh-radio-bot/internal/session"
)

const id int64 = 42

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeAuth struct {
	login string
	pass  string
	users map[int64]string
	calls int
	err   error
}

func (a *fakeAuth) IsKnown(id int64) bool {
	_, ok := a.users[id]
	return ok
}

func (a *fakeAuth) UserLogin(id int64) (string, error) {
	login, ok := a.users[id]
	if !ok {
		return "", service.ErrUserNotFound
	}
	return login, nil
}

func (a *fakeAuth) Login(_ context.Context, id int64, login, pass string) error {
	a.calls++
	if a.err != nil {
		return a.err
	}
	if login != a.login || pass != a.pass {
		return service.ErrInvalidCredentials
	}
	a.users[id] = login
	return nil
}

type fixture struct {
	bot      *controllertest.Bot
	auth     *fakeAuth
	sessions *session.Memory
	router   *controller.Router
}

func newFixture() *fixture {
	f := &fixture{
		bot: controllertest.NewBot(),
		auth: &fakeAuth{
			login: "radist",
			pass:  "secret",
			users: make(map[int64]string),
		},
		sessions: session.NewMemory(discard, time.Hour),
	}
	f.router = controller.NewRouter(discard, f.bot, f.auth, f.sessions, controller.MainMenu(false))
	start.New(f.auth).Mount(f.router)
	return f
}

func (f *fixture) send(upd tgbotapi.Update) {
	f.router.Handle(context.Background(), upd)
}

func (f *fixture) session(t *testing.T) *session.Session {
	t.Helper()

	s, err := f.sessions.Session(context.Background(), id)
	require.NoError(t, err)
	return s
}

func TestLogin(t *testing.T) {
	f := newFixture()

	f.send(controllertest.Command(id, controller.CommandStart))
	assert.Equal(t, session.StateAwaitLogin, f.session(t).State)
	assert.Contains(t, f.bot.Last(), "Введи свой логин")

	f.send(controllertest.Message(id, "radist"))
	assert.Equal(t, session.StateAwaitPass, f.session(t).State)
	assert.Equal(t, "radist", f.session(t).Login)

	f.send(controllertest.Message(id, "secret"))
	s := f.session(t)
	assert.Equal(t, session.StateIdle, s.State)
	assert.Empty(t, s.Login)
	assert.Equal(t, "Привет, radist! Начнем?", f.bot.Last())
	assert.True(t, f.auth.IsKnown(id))

	// password message is deleted
	var deleted bool
	for _, r := range f.bot.Requests() {
		if _, ok := r.(tgbotapi.DeleteMessageConfig); ok {
			deleted = true
		}
	}
	assert.True(t, deleted)
}

func TestLoginWrongPassword(t *testing.T) {
	f := newFixture()

	f.send(controllertest.Command(id, controller.CommandStart))
	f.send(controllertest.Message(id, "radist"))
	f.send(controllertest.Message(id, "wrong"))

	s := f.session(t)
	assert.Equal(t, session.StateAwaitLogin, s.State)
	assert.Empty(t, s.Login)
	assert.Contains(t, f.bot.Last(), "Неверный логин или пароль")
	assert.False(t, f.auth.IsKnown(id))

	// second attempt succeeds
	f.send(controllertest.Message(id, "radist"))
	f.send(controllertest.Message(id, "secret"))
	assert.Equal(t, session.StateIdle, f.session(t).State)
	assert.True(t, f.auth.IsKnown(id))
}

func TestLoginEmptyInput(t *testing.T) {
	testCases := []struct {
		desc  string
		state session.State
		reply string
	}{
		{
			desc:  "empty login",
			state: session.StateAwaitLogin,
			reply: "Логин не может быть пустым",
		},
		{
			desc:  "empty password",
			state: session.StateAwaitPass,
			reply: "Пароль не может быть пустым",
		},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			f := newFixture()

			s := session.New(id)
			s.State = tC.state
			s.Login = "radist"
			require.NoError(t, f.sessions.SaveSession(context.Background(), s))

			f.send(controllertest.Message(id, "   "))

			assert.Equal(t, tC.state, f.session(t).State)
			assert.Equal(t, tC.reply, f.bot.Last())
			assert.Zero(t, f.auth.calls)
		})
	}
}

func TestLoginRadioDown(t *testing.T) {
	f := newFixture()
	f.auth.err = errors.New("connection refused")

	f.send(controllertest.Command(id, controller.CommandStart))
	f.send(controllertest.Message(id, "radist"))
	f.send(controllertest.Message(id, "secret"))

	s := f.session(t)
	assert.Equal(t, session.StateIdle, s.State)
	assert.Empty(t, s.Login)
	assert.Equal(t, controller.ReplyFail, f.bot.Last())
	assert.False(t, f.auth.IsKnown(id))
}

func TestStartKnown(t *testing.T) {
	f := newFixture()
	f.auth.users[id] = "radist"

	s := session.New(id)
	s.State = session.StateUploadName
	require.NoError(t, f.sessions.SaveSession(context.Background(), s))

	f.send(controllertest.Command(id, controller.CommandStart))

	assert.Equal(t, session.StateIdle, f.session(t).State)
	assert.Equal(t, "С возвращением, radist!", f.bot.Last())
	_, ok := f.bot.LastMarkup().(tgbotapi.ReplyKeyboardMarkup)
	assert.True(t, ok)
}

func TestMainMenu(t *testing.T) {
	f := newFixture()
	f.auth.users[id] = "radist"

	s := session.New(id)
	s.State = session.StateSegmentChoice
	require.NoError(t, f.sessions.SaveSession(context.Background(), s))

	f.send(controllertest.Message(id, controller.ButtonMainMenu))

	assert.Equal(t, session.StateIdle, f.session(t).State)
	assert.Equal(t, controller.ReplyMainMenu, f.bot.Last())
}
