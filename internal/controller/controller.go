package controller

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"github.com/GintGld/fizteh-radio-bot/internal/lib/logger/sl"
	"github.com/GintGld/fizteh-radio-bot/internal/service"
	"github.com/GintGld/fizteh-radio-bot/internal/session"
)

// Bot is the part of telegram api used by controllers.
type Bot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

type Auth interface {
	IsKnown(id int64) bool
}

// Handler processes one update.
type Handler func(c *Context) error

type callbackRoute struct {
	prefix  string
	handler Handler
}

// Router dispatches telegram updates to handlers
// mounted by feature controllers.
type Router struct {
	log      *slog.Logger
	bot      Bot
	auth     Auth
	sessions session.Store
	menu     tgbotapi.ReplyKeyboardMarkup

	commands  map[string]Handler
	buttons   map[string]Handler
	states    map[session.State]Handler
	callbacks []callbackRoute
	files     Handler
}

func NewRouter(
	log *slog.Logger,
	bot Bot,
	auth Auth,
	sessions session.Store,
	menu tgbotapi.ReplyKeyboardMarkup,
) *Router {
	return &Router{
		log:      log,
		bot:      bot,
		auth:     auth,
		sessions: sessions,
		menu:     menu,
		commands: make(map[string]Handler),
		buttons:  make(map[string]Handler),
		states:   make(map[session.State]Handler),
	}
}

// Command registers handler for /name command.
func (r *Router) Command(name string, h Handler) {
	r.commands[name] = h
}

// Button registers handler for reply keyboard button.
func (r *Router) Button(text string, h Handler) {
	r.buttons[text] = h
}

// State registers handler for plain text in given state.
func (r *Router) State(state session.State, h Handler) {
	r.states[state] = h
}

// Callback registers handler for inline buttons
// whose data starts with prefix.
func (r *Router) Callback(prefix string, h Handler) {
	r.callbacks = append(r.callbacks, callbackRoute{prefix, h})
}

// File registers handler for audio and documents.
func (r *Router) File(h Handler) {
	r.files = h
}

// Handle processes the update and saves user session.
func (r *Router) Handle(ctx context.Context, upd tgbotapi.Update) {
	const op = "Router.Handle"

	c, ok := r.newContext(ctx, upd)
	if !ok {
		return
	}

	log := c.Log.With(
		slog.String("op", op),
	)

	sess, err := r.sessions.Session(ctx, c.UserID)
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		sess = session.New(c.UserID)
	case err != nil:
		log.Error("failed to load session", sl.Err(err))
		r.fail(c)
		return
	case !sess.State.Known():
		log.Warn("session in unknown state, starting over", slog.String("state", string(sess.State)))
		sess = session.New(c.UserID)
	}
	sess.LastActive = time.Now()
	c.Session = sess

	if upd.CallbackQuery != nil {
		if _, err := r.bot.Request(tgbotapi.NewCallback(upd.CallbackQuery.ID, "")); err != nil {
			log.Warn("failed to answer callback", sl.Err(err))
		}
	}

	h := r.route(c)

	if err := h(c); err != nil {
		r.handleError(c, err)
	}

	if c.forget {
		if err := r.sessions.DeleteSession(ctx, c.UserID); err != nil {
			log.Error("failed to delete session", sl.Err(err))
		}
		return
	}

	if err := r.sessions.SaveSession(ctx, c.Session); err != nil {
		log.Error("failed to save session", sl.Err(err))
	}
}

func (r *Router) newContext(ctx context.Context, upd tgbotapi.Update) (*Context, bool) {
	c := &Context{
		Context: ctx,
		Bot:     r.bot,
		Update:  upd,
		menu:    r.menu,
	}

	switch {
	case upd.Message != nil && upd.Message.From != nil:
		c.UserID = upd.Message.From.ID
		c.ChatID = upd.Message.Chat.ID
		c.Text = strings.TrimSpace(upd.Message.Text)
	case upd.CallbackQuery != nil && upd.CallbackQuery.From != nil:
		c.UserID = upd.CallbackQuery.From.ID
		c.ChatID = upd.CallbackQuery.From.ID
		if upd.CallbackQuery.Message != nil {
			c.ChatID = upd.CallbackQuery.Message.Chat.ID
		}
		c.Data = upd.CallbackQuery.Data
	default:
		return nil, false
	}

	c.Log = r.log.With(
		slog.String("request_id", uuid.NewString()),
		slog.Int64("userId", c.UserID),
	)

	return c, true
}

// route picks a handler for the update.
// Unknown users are only allowed to log in.
func (r *Router) route(c *Context) Handler {
	msg := c.Update.Message

	isCommand := msg != nil && msg.IsCommand()

	if !r.auth.IsKnown(c.UserID) && c.Session.State.Authenticated() &&
		!(isCommand && msg.Command() == CommandStart) {
		return unknownUser
	}

	if isCommand {
		if h, ok := r.commands[msg.Command()]; ok {
			return h
		}
	}

	if cb := c.Update.CallbackQuery; cb != nil {
		for _, route := range r.callbacks {
			if strings.HasPrefix(cb.Data, route.prefix) {
				return route.handler
			}
		}
		return unexpected
	}

	if msg.Audio != nil || msg.Document != nil {
		if r.files != nil {
			return r.files
		}
		return unexpected
	}

	if h, ok := r.buttons[c.Text]; ok && c.Session.State.Authenticated() {
		return h
	}

	if h, ok := r.states[c.Session.State]; ok {
		return h
	}

	return unexpected
}

func (r *Router) handleError(c *Context, err error) {
	log := c.Log.With(
		slog.String("state", string(c.Session.State)),
	)

	switch {
	case errors.Is(err, session.ErrUnexpectedEvent):
		log.Debug("unexpected input", sl.Err(err))
		if err := c.Reply(ReplyUnexpected); err != nil {
			log.Error("failed to send reply", sl.Err(err))
		}
	case errors.Is(err, service.ErrInvalidCredentials):
		log.Warn("stored credentials rejected", sl.Err(err))
		r.reset(c)
		c.forget = true
		if err := c.Reply(ReplyRelogin); err != nil {
			log.Error("failed to send reply", sl.Err(err))
		}
	default:
		log.Error("failed to handle update", sl.Err(err))
		r.reset(c)
		r.fail(c)
	}
}

// reset drops the dialogue to idle.
func (r *Router) reset(c *Context) {
	c.Drop()
	c.Session.State = session.StateIdle
}

// fail reports an error. Main menu is shown to known users only.
func (r *Router) fail(c *Context) {
	var err error
	if r.auth.IsKnown(c.UserID) {
		err = c.Menu(ReplyFail)
	} else {
		err = c.Reply(ReplyFailStart, tgbotapi.NewRemoveKeyboard(false))
	}
	if err != nil {
		c.Log.Error("failed to send reply", sl.Err(err))
	}
}

func unknownUser(c *Context) error {
	return c.Reply(ReplyUnknownUser, tgbotapi.NewRemoveKeyboard(false))
}

func unexpected(c *Context) error {
	return c.Reply(ReplyUnexpected)
}

// Context carries everything a handler needs
// to answer one update.
type Context struct {
	context.Context
	Log     *slog.Logger
	Bot     Bot
	Update  tgbotapi.Update
	Session *session.Session

	UserID int64
	ChatID int64
	// Text is a trimmed message text.
	Text string
	// Data is a callback payload.
	Data string

	menu tgbotapi.ReplyKeyboardMarkup
	// forget deletes session instead of saving it.
	forget bool
}

// Reply sends text to the chat with optional markup.
func (c *Context) Reply(text string, markup ...any) error {
	msg := tgbotapi.NewMessage(c.ChatID, text)
	if len(markup) > 0 {
		msg.ReplyMarkup = markup[0]
	}
	_, err := c.Bot.Send(msg)
	return err
}

// Menu sends text together with main menu keyboard.
func (c *Context) Menu(text string) error {
	return c.Reply(text, c.menu)
}

// Edit replaces text and inline keyboard of
// the message the callback came from.
func (c *Context) Edit(text string, markup *tgbotapi.InlineKeyboardMarkup) error {
	cb := c.Update.CallbackQuery
	if cb == nil || cb.Message == nil {
		if markup != nil {
			return c.Reply(text, *markup)
		}
		return c.Reply(text)
	}

	if markup == nil {
		_, err := c.Bot.Send(tgbotapi.NewEditMessageText(c.ChatID, cb.Message.MessageID, text))
		return err
	}
	_, err := c.Bot.Send(tgbotapi.NewEditMessageTextAndMarkup(c.ChatID, cb.Message.MessageID, text, *markup))
	return err
}

// Fire moves user session by event.
func (c *Context) Fire(event session.Event) error {
	return c.Session.Fire(event)
}

// Switch fires menu event and forgets
// everything collected by the previous dialogue.
func (c *Context) Switch(event session.Event) error {
	if err := c.Session.Fire(event); err != nil {
		return err
	}
	c.Drop()
	return nil
}

// Drop clears session scratch data and
// removes pending upload file.
func (c *Context) Drop() {
	path := c.Session.Drop()
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		c.Log.Warn("failed to remove pending upload", slog.String("path", path), sl.Err(err))
	}
}
