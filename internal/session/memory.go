package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Memory is an in-process session store.
// Sessions idle longer than ttl are evicted by Run.
type Memory struct {
	log      *slog.Logger
	ttl      time.Duration
	mutex    sync.Mutex
	sessions map[int64]Session
}

func NewMemory(log *slog.Logger, ttl time.Duration) *Memory {
	return &Memory{
		log:      log,
		ttl:      ttl,
		sessions: make(map[int64]Session),
	}
}

func (m *Memory) Session(_ context.Context, id int64) (*Session, error) {
	const op = "Memory.Session"

	m.mutex.Lock()
	defer m.mutex.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, ErrSessionNotFound)
	}

	return &s, nil
}

func (m *Memory) SaveSession(_ context.Context, s *Session) error {
	m.mutex.Lock()
	m.sessions[s.ID] = *s
	m.mutex.Unlock()

	return nil
}

func (m *Memory) DeleteSession(_ context.Context, id int64) error {
	m.mutex.Lock()
	delete(m.sessions, id)
	m.mutex.Unlock()

	return nil
}

// Sweep evicts sessions inactive since now-ttl
// and returns them.
func (m *Memory) Sweep(now time.Time) []Session {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	var evicted []Session
	for id, s := range m.sessions {
		if now.Sub(s.LastActive) > m.ttl {
			evicted = append(evicted, s)
			delete(m.sessions, id)
		}
	}

	return evicted
}

// Run sweeps sessions every period until ctx is done.
// onEvict is called for every evicted session.
func (m *Memory) Run(ctx context.Context, period time.Duration, onEvict func(Session)) {
	const op = "Memory.Run"

	log := m.log.With(slog.String("op", op))

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			evicted := m.Sweep(now)
			if len(evicted) == 0 {
				continue
			}
			log.Debug("evicted sessions", slog.Int("count", len(evicted)))
			for _, s := range evicted {
				onEvict(s)
			}
		}
	}
}
