// Package controllertest provides fake telegram bot
// and update builders for controller tests.
package controllertest

import (
	"errors"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

var ErrFileNotFound = errors.New("file not found")

// Bot records everything sent to telegram.
type Bot struct {
	mutex    sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	files    map[string]string
	nextID   int
}

func NewBot() *Bot {
	return &Bot{
		files: make(map[string]string),
	}
}

func (b *Bot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.sent = append(b.sent, c)
	b.nextID++

	return tgbotapi.Message{MessageID: b.nextID}, nil
}

func (b *Bot) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.requests = append(b.requests, c)

	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (b *Bot) GetFileDirectURL(fileID string) (string, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	url, ok := b.files[fileID]
	if !ok {
		return "", ErrFileNotFound
	}
	return url, nil
}

// SetFile makes file available for download by url.
func (b *Bot) SetFile(fileID, url string) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.files[fileID] = url
}

// Sent returns all sent messages and edits.
func (b *Bot) Sent() []tgbotapi.Chattable {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	res := make([]tgbotapi.Chattable, len(b.sent))
	copy(res, b.sent)
	return res
}

// Requests returns all requests (callback answers etc.).
func (b *Bot) Requests() []tgbotapi.Chattable {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	res := make([]tgbotapi.Chattable, len(b.requests))
	copy(res, b.requests)
	return res
}

// Texts returns texts of sent messages and edits.
func (b *Bot) Texts() []string {
	sent := b.Sent()
	res := make([]string, 0, len(sent))
	for _, c := range sent {
		res = append(res, Text(c))
	}
	return res
}

// Last returns text of the last sent message.
func (b *Bot) Last() string {
	sent := b.Sent()
	if len(sent) == 0 {
		return ""
	}
	return Text(sent[len(sent)-1])
}

// LastMarkup returns reply markup of the last sent message.
func (b *Bot) LastMarkup() any {
	sent := b.Sent()
	if len(sent) == 0 {
		return nil
	}
	switch m := sent[len(sent)-1].(type) {
	case tgbotapi.MessageConfig:
		return m.ReplyMarkup
	case tgbotapi.EditMessageTextConfig:
		if m.ReplyMarkup == nil {
			return nil
		}
		return *m.ReplyMarkup
	}
	return nil
}

// Reset forgets sent messages.
func (b *Bot) Reset() {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.sent = nil
	b.requests = nil
}

func Text(c tgbotapi.Chattable) string {
	switch m := c.(type) {
	case tgbotapi.MessageConfig:
		return m.Text
	case tgbotapi.EditMessageTextConfig:
		return m.Text
	}
	return ""
}

// InlineData collects callback payloads of inline keyboard.
func InlineData(markup any) []string {
	kb, ok := markup.(tgbotapi.InlineKeyboardMarkup)
	if !ok {
		return nil
	}

	var res []string
	for _, row := range kb.InlineKeyboard {
		for _, b := range row {
			if b.CallbackData != nil {
				res = append(res, *b.CallbackData)
			}
		}
	}
	return res
}

func Message(userID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{
		Message: &tgbotapi.Message{
			MessageID: 1,
			From:      &tgbotapi.User{ID: userID, FirstName: "radist"},
			Chat:      &tgbotapi.Chat{ID: userID},
			Text:      text,
		},
	}
}

func Command(userID int64, command string) tgbotapi.Update {
	text := "/" + command
	upd := Message(userID, text)
	upd.Message.Entities = []tgbotapi.MessageEntity{
		{Type: "bot_command", Offset: 0, Length: len(text)},
	}
	return upd
}

func Callback(userID int64, data string) tgbotapi.Update {
	return tgbotapi.Update{
		CallbackQuery: &tgbotapi.CallbackQuery{
			ID:   "cb",
			From: &tgbotapi.User{ID: userID},
			Message: &tgbotapi.Message{
				MessageID: 7,
				Chat:      &tgbotapi.Chat{ID: userID},
			},
			Data: data,
		},
	}
}

func Audio(userID int64, audio tgbotapi.Audio) tgbotapi.Update {
	upd := Message(userID, "")
	upd.Message.Audio = &audio
	return upd
}

func Document(userID int64, doc tgbotapi.Document) tgbotapi.Update {
	upd := Message(userID, "")
	upd.Message.Document = &doc
	return upd
}

// Auth is a set of known users.
type Auth struct {
	mutex sync.Mutex
	known map[int64]bool
}

func NewAuth(ids ...int64) *Auth {
	a := &Auth{known: make(map[int64]bool)}
	for _, id := range ids {
		a.known[id] = true
	}
	return a
}

func (a *Auth) IsKnown(id int64) bool {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	return a.known[id]
}

func (a *Auth) Add(id int64) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	a.known[id] = true
}

func (a *Auth) Forget(id int64) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	delete(a.known, id)
}
