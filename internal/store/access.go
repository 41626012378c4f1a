package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Usage is the request counter of one user for the current period.
type Usage struct {
	UserID      string
	Count       int
	PeriodStart time.Time
}

// GetUsage returns the usage row of a user.
func (s *Store) GetUsage(ctx context.Context, userID string) (Usage, error) {
	u := Usage{UserID: userID}
	var start int64
	err := s.db.QueryRowContext(ctx,
		`SELECT count, period_start FROM api_usage WHERE user_id = ?`, userID,
	).Scan(&u.Count, &start)
	if err != nil {
		return Usage{}, notFound(err, "get usage "+userID)
	}
	u.PeriodStart = fromMillis(start)
	return u, nil
}

// SaveUsage stores the usage row of a user.
func (s *Store) SaveUsage(ctx context.Context, u Usage) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO api_usage (user_id, count, period_start) VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET count = excluded.count, period_start = excluded.period_start`,
		u.UserID, u.Count, toMillis(u.PeriodStart),
	); err != nil {
		return fmt.Errorf("save usage %s: %w", u.UserID, err)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// AllowEmail adds an address to the allow-list.
func (s *Store) AllowEmail(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return fmt.Errorf("email is required")
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO allowed_emails (email, created_at) VALUES (?, ?)`,
		email, toMillis(time.Now()),
	); err != nil {
		return fmt.Errorf("allow email: %w", err)
	}
	return nil
}

// IsEmailAllowed reports whether an address is on the allow-list.
func (s *Store) IsEmailAllowed(ctx context.Context, email string) (bool, error) {
	var found int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM allowed_emails WHERE email = ?`, normalizeEmail(email),
	).Scan(&found)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check allowed email: %w", err)
	}
	return true, nil
}
