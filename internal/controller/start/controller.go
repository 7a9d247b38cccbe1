package start

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/GintGld/fizteh-radio-bot/internal/controller"
	"github.com/GintGld/fizteh-radio-bot/internal/lib/logger/sl"
	"github.com/GintGld/fizteh-radio-bot/internal/service"
	"github.com/GintGld/fizteh-radio-bot/internal/session"
)

const (
	replyGreeting    = "Приветствую, радист, для начала надо зарегистрироваться.\nВведи свой логин."
	replyEmptyLogin  = "Логин не может быть пустым"
	replyAskPass     = "Отлично, теперь введи свой пароль"
	replyEmptyPass   = "Пароль не может быть пустым"
	replyWrongPass   = "Неверный логин или пароль, попробуй еще раз.\nВведи свой логин."
	replyWelcomeFmt  = "Привет, %s! Начнем?"
	replyWelcomeBack = "С возвращением, %s!"
)

type Controller struct {
	auth Auth
}

type Auth interface {
	IsKnown(id int64) bool
	UserLogin(id int64) (string, error)
	Login(ctx context.Context, id int64, login, pass string) error
}

func New(auth Auth) *Controller {
	return &Controller{
		auth: auth,
	}
}

func (s *Controller) Mount(r *controller.Router) {
	r.Command(controller.CommandStart, s.start)
	r.Button(controller.ButtonMainMenu, s.mainMenu)
	r.State(session.StateAwaitLogin, s.login)
	r.State(session.StateAwaitPass, s.pass)
}

// start greets known user or begins registration.
func (s *Controller) start(c *controller.Context) error {
	const op = "start.start"

	if !s.auth.IsKnown(c.UserID) {
		if err := c.Switch(session.EventStartUnknown); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return c.Reply(replyGreeting, tgbotapi.NewRemoveKeyboard(false))
	}

	if err := c.Switch(session.EventStartKnown); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	login, err := s.auth.UserLogin(c.UserID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return c.Menu(fmt.Sprintf(replyWelcomeBack, login))
}

func (s *Controller) mainMenu(c *controller.Context) error {
	const op = "start.mainMenu"

	if err := c.Switch(session.EventMainMenu); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return c.Menu(controller.ReplyMainMenu)
}

func (s *Controller) login(c *controller.Context) error {
	const op = "start.login"

	if c.Text == "" {
		return c.Reply(replyEmptyLogin)
	}

	if err := c.Fire(session.EventLogin); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	c.Session.Login = c.Text

	return c.Reply(replyAskPass)
}

func (s *Controller) pass(c *controller.Context) error {
	const op = "start.pass"

	log := c.Log.With(
		slog.String("op", op),
	)

	if c.Text == "" {
		return c.Reply(replyEmptyPass)
	}

	// Password should not stay in chat history.
	if msg := c.Update.Message; msg != nil {
		if _, err := c.Bot.Request(tgbotapi.NewDeleteMessage(c.ChatID, msg.MessageID)); err != nil {
			log.Warn("failed to delete password message", sl.Err(err))
		}
	}

	login := c.Session.Login

	err := s.auth.Login(c, c.UserID, login, c.Text)
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		log.Info("invalid credentials", slog.String("login", login))

		if err := c.Fire(session.EventLoginFail); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		c.Session.Login = ""

		return c.Reply(replyWrongPass)
	case err != nil:
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := c.Fire(session.EventLoginOK); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	c.Session.Login = ""

	log.Info("user logged in", slog.String("login", login))

	return c.Menu(fmt.Sprintf(replyWelcomeFmt, login))
}
