package sqlite

import (
	"context"
	"errors"
	"fmt"

	"github.com/GintGld/fizteh-radio-bot/internal/models"
	"github.com/GintGld/fizteh-radio-bot/internal/storage"
)

// SaveUser creates or replaces user.
func (s *Storage) SaveUser(ctx context.Context, user models.User) error {
	const op = "storage.sqlite.SaveUser"

	stmt, err := s.db.PrepareContext(ctx, `INSERT INTO users(id, login, pass) VALUES(?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET login = excluded.login, pass = excluded.pass`)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	if _, err := stmt.ExecContext(ctx, user.ID, user.Login, user.Pass); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return fmt.Errorf("%s: %w", op, storage.ErrContextCancelled)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Users returns all users ordered by id.
//
// If error occures during parsing, returns already parsed users.
func (s *Storage) Users(ctx context.Context) ([]models.User, error) {
	const op = "storage.sqlite.Users"

	stmt, err := s.db.PrepareContext(ctx, "SELECT id, login, pass FROM users ORDER BY id")
	if err != nil {
		return []models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx)
	if err != nil {
		return []models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	users := make([]models.User, 0)
	var user models.User
	for rows.Next() {
		if err = rows.Scan(&user.ID, &user.Login, &user.Pass); err != nil {
			return users, fmt.Errorf("%s: %w", op, err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return users, fmt.Errorf("%s: %w", op, err)
	}

	return users, nil
}
