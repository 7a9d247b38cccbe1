package session

import (
	"context"
	"errors"
	"time"

	"github.com/GintGld/fizteh-radio-bot/internal/models"
)

var ErrSessionNotFound = errors.New("session not found")

// Session is a dialogue of one user with the bot.
type Session struct {
	ID         int64            `json:"id"`
	State      State            `json:"state"`
	Login      string           `json:"login,omitempty"`
	Upload     Upload           `json:"upload"`
	Results    []models.Media   `json:"results,omitempty"`
	Schedule   []models.Segment `json:"schedule,omitempty"`
	Page       int              `json:"page"`
	LastActive time.Time        `json:"lastActive"`
}

// Upload is media waiting for its name and author.
type Upload struct {
	Path   string `json:"path,omitempty"`
	Name   string `json:"name,omitempty"`
	Author string `json:"author,omitempty"`
}

func New(id int64) *Session {
	return &Session{
		ID:    id,
		State: StateIdle,
	}
}

// Fire moves session by event.
// On error state stays the same.
func (s *Session) Fire(event Event) error {
	to, err := Transition(s.State, event)
	if err != nil {
		return err
	}
	s.State = to
	return nil
}

// Drop clears scratch data and returns path
// of pending upload file (if any) for removal.
func (s *Session) Drop() string {
	path := s.Upload.Path
	s.Login = ""
	s.Upload = Upload{}
	s.Results = nil
	s.Schedule = nil
	s.Page = 0
	return path
}

// Store keeps sessions between updates.
type Store interface {
	Session(ctx context.Context, id int64) (*Session, error)
	SaveSession(ctx context.Context, s *Session) error
	DeleteSession(ctx context.Context, id int64) error
}
