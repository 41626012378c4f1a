package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tatianab/clinical-sim/internal/models"
)

// GetProfile returns the behavior profile of a user, creating an empty one
// on first access.
func (s *Store) GetProfile(ctx context.Context, userID string) (models.BehaviorProfile, error) {
	if strings.TrimSpace(userID) == "" {
		return models.BehaviorProfile{}, fmt.Errorf("user id is required")
	}
	if err := ensureProfile(ctx, s.db, userID, toMillis(time.Now())); err != nil {
		return models.BehaviorProfile{}, err
	}
	return readProfile(ctx, s.db, userID)
}

// AddXP credits delta experience points (negatives credit zero) and
// recomputes the level.
func (s *Store) AddXP(ctx context.Context, userID string, delta int) (models.BehaviorProfile, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.BehaviorProfile{}, fmt.Errorf("begin add xp: %w", err)
	}
	defer tx.Rollback()

	now := toMillis(time.Now())
	if err := ensureProfile(ctx, tx, userID, now); err != nil {
		return models.BehaviorProfile{}, err
	}
	p, err := addXP(ctx, tx, userID, delta, now)
	if err != nil {
		return models.BehaviorProfile{}, err
	}
	if err := tx.Commit(); err != nil {
		return models.BehaviorProfile{}, fmt.Errorf("commit add xp: %w", err)
	}
	return p, nil
}

func ensureProfile(ctx context.Context, db execer, userID string, now int64) error {
	if _, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO behavior_profiles (user_id, updated_at) VALUES (?, ?)`, userID, now,
	); err != nil {
		return fmt.Errorf("ensure profile: %w", err)
	}
	return nil
}

func addXP(ctx context.Context, db execer, userID string, delta int, now int64) (models.BehaviorProfile, error) {
	p, err := readProfile(ctx, db, userID)
	if err != nil {
		return models.BehaviorProfile{}, err
	}
	p.XP += max(delta, 0)
	p.Level = models.LevelForXP(p.XP)
	if _, err := db.ExecContext(ctx,
		`UPDATE behavior_profiles SET xp = ?, level = ?, updated_at = ? WHERE user_id = ?`,
		p.XP, p.Level, now, userID,
	); err != nil {
		return models.BehaviorProfile{}, fmt.Errorf("update xp: %w", err)
	}
	return p, nil
}

func readProfile(ctx context.Context, db execer, userID string) (models.BehaviorProfile, error) {
	p := models.BehaviorProfile{UserID: userID}
	err := db.QueryRowContext(ctx,
		`SELECT escalation_delay, airway_focus, hemodynamic_neglect, renal_neglect, impulsivity, xp, level
		 FROM behavior_profiles WHERE user_id = ?`, userID,
	).Scan(&p.EscalationDelay, &p.AirwayFocus, &p.HemodynamicNeglect, &p.RenalNeglect, &p.Impulsivity, &p.XP, &p.Level)
	if err != nil {
		return models.BehaviorProfile{}, notFound(err, "get profile "+userID)
	}
	return p, nil
}
