package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"sync"

	"github.com/GintGld/fizteh-radio-bot/internal/models"
	"github.com/GintGld/fizteh-radio-bot/internal/storage"
)

// Storage keeps users in a single json file
// of form {"<id>": {"login": ..., "pass": ...}}.
type Storage struct {
	path  string
	mutex sync.Mutex
}

func New(path string) (*Storage, error) {
	const op = "storage.file.New"

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{path: path}, nil
}

func (s *Storage) Stop() error {
	return nil
}

// SaveUser creates or replaces user.
func (s *Storage) SaveUser(ctx context.Context, user models.User) error {
	const op = "storage.file.SaveUser"

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, storage.ErrContextCancelled)
	}

	users, err := s.read()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	users[strconv.FormatInt(user.ID, 10)] = user

	if err := s.write(users); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Users returns all users ordered by id.
func (s *Storage) Users(_ context.Context) ([]models.User, error) {
	const op = "storage.file.Users"

	s.mutex.Lock()
	defer s.mutex.Unlock()

	users, err := s.read()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	res := make([]models.User, 0, len(users))
	for key, user := range users {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: bad user id %q: %w", op, key, err)
		}
		user.ID = id
		res = append(res, user)
	}

	slices.SortFunc(res, func(a, b models.User) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})

	return res, nil
}

func (s *Storage) read() (map[string]models.User, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return make(map[string]models.User), nil
		}
		return nil, err
	}

	users := make(map[string]models.User)
	if len(b) == 0 {
		return users, nil
	}
	if err := json.Unmarshal(b, &users); err != nil {
		return nil, err
	}

	return users, nil
}

// write replaces file atomically.
func (s *Storage) write(users map[string]models.User) error {
	b, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), s.path)
}
