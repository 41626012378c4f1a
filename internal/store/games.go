package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tatianab/clinical-sim/internal/models"
)

func insertGame(ctx context.Context, ex execer, game models.Game) error {
	if strings.TrimSpace(game.ID) == "" {
		return fmt.Errorf("game id is required")
	}
	if strings.TrimSpace(game.UserID) == "" {
		return fmt.Errorf("user id is required")
	}
	gameCtx, err := json.Marshal(game.Context)
	if err != nil {
		return fmt.Errorf("marshal game context: %w", err)
	}
	if _, err := ex.ExecContext(ctx,
		`INSERT INTO games (id, user_id, environment, age, gender, context, turn, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		game.ID, game.UserID, game.Environment, game.Age, game.Gender, string(gameCtx),
		game.Turn, string(game.Status), toMillis(game.CreatedAt), toMillis(game.UpdatedAt),
	); err != nil {
		return fmt.Errorf("insert game: %w", err)
	}
	return nil
}

// GetGame returns one game by id.
func (s *Store) GetGame(ctx context.Context, id string) (models.Game, error) {
	var (
		g                    models.Game
		gameCtx, status      string
		createdAt, updatedAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, environment, age, gender, context, turn, status, created_at, updated_at
		 FROM games WHERE id = ?`, id,
	).Scan(&g.ID, &g.UserID, &g.Environment, &g.Age, &g.Gender, &gameCtx, &g.Turn, &status, &createdAt, &updatedAt)
	if err != nil {
		return models.Game{}, notFound(err, "get game "+id)
	}
	if err := json.Unmarshal([]byte(gameCtx), &g.Context); err != nil {
		return models.Game{}, fmt.Errorf("decode game context %s: %w", id, err)
	}
	g.Status = models.GameStatus(status)
	g.CreatedAt = fromMillis(createdAt)
	g.UpdatedAt = fromMillis(updatedAt)
	return g, nil
}

// GetState returns the latest vitals snapshot of a game.
func (s *Store) GetState(ctx context.Context, gameID string) (models.State, error) {
	var (
		st        models.State
		vitals    string
		updatedAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT game_id, vitals, updated_at FROM states WHERE game_id = ?`, gameID,
	).Scan(&st.GameID, &vitals, &updatedAt)
	if err != nil {
		return models.State{}, notFound(err, "get state "+gameID)
	}
	if err := json.Unmarshal([]byte(vitals), &st.Vitals); err != nil {
		return models.State{}, fmt.Errorf("decode vitals %s: %w", gameID, err)
	}
	st.UpdatedAt = fromMillis(updatedAt)
	return st, nil
}

// TurnCommit is everything one successful turn writes.
type TurnCommit struct {
	// Game carries the new turn, status and update time.
	Game models.Game
	// New inserts Game instead of updating it, for the first turn.
	New     bool
	Record  models.TurnRecord
	Profile models.BehaviorProfile
	// XPDelta is credited after clamping negatives to zero.
	XPDelta int
}

// RecordTurn applies a turn atomically: game turn and status, state vitals,
// turn record, behavior counters and XP. A first turn also inserts the game.
// It returns the stored profile.
func (s *Store) RecordTurn(ctx context.Context, c TurnCommit) (models.BehaviorProfile, error) {
	vitals, err := json.Marshal(c.Record.Vitals)
	if err != nil {
		return models.BehaviorProfile{}, fmt.Errorf("marshal vitals: %w", err)
	}
	now := toMillis(c.Game.UpdatedAt)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.BehaviorProfile{}, fmt.Errorf("begin record turn: %w", err)
	}
	defer tx.Rollback()

	if c.New {
		if err := insertGame(ctx, tx, c.Game); err != nil {
			return models.BehaviorProfile{}, err
		}
	} else {
		res, err := tx.ExecContext(ctx,
			`UPDATE games SET turn = ?, status = ?, updated_at = ? WHERE id = ?`,
			c.Game.Turn, string(c.Game.Status), now, c.Game.ID,
		)
		if err != nil {
			return models.BehaviorProfile{}, fmt.Errorf("update game: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return models.BehaviorProfile{}, fmt.Errorf("update game %s: %w", c.Game.ID, ErrNotFound)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO states (game_id, vitals, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(game_id) DO UPDATE SET vitals = excluded.vitals, updated_at = excluded.updated_at`,
		c.Game.ID, string(vitals), now,
	); err != nil {
		return models.BehaviorProfile{}, fmt.Errorf("upsert state: %w", err)
	}

	r := c.Record
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO turns (game_id, turn, choice, phase, patient_update, vitals, outcome, risk_level, xp_delta, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(game_id, turn) DO UPDATE SET
		   choice = excluded.choice, phase = excluded.phase, patient_update = excluded.patient_update,
		   vitals = excluded.vitals, outcome = excluded.outcome, risk_level = excluded.risk_level,
		   xp_delta = excluded.xp_delta, created_at = excluded.created_at`,
		c.Game.ID, r.Turn, r.Choice, r.Phase, r.PatientUpdate, string(vitals),
		string(r.Outcome), string(r.RiskLevel), r.XPDelta, toMillis(r.CreatedAt),
	); err != nil {
		return models.BehaviorProfile{}, fmt.Errorf("insert turn: %w", err)
	}

	p := c.Profile
	p.UserID = c.Game.UserID
	if err := ensureProfile(ctx, tx, p.UserID, now); err != nil {
		return models.BehaviorProfile{}, err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE behavior_profiles SET
		   escalation_delay = ?, airway_focus = ?, hemodynamic_neglect = ?, renal_neglect = ?, impulsivity = ?,
		   updated_at = ?
		 WHERE user_id = ?`,
		p.EscalationDelay, p.AirwayFocus, p.HemodynamicNeglect, p.RenalNeglect, p.Impulsivity, now, p.UserID,
	); err != nil {
		return models.BehaviorProfile{}, fmt.Errorf("update profile: %w", err)
	}

	stored, err := addXP(ctx, tx, p.UserID, c.XPDelta, now)
	if err != nil {
		return models.BehaviorProfile{}, err
	}
	if err := tx.Commit(); err != nil {
		return models.BehaviorProfile{}, fmt.Errorf("commit record turn: %w", err)
	}
	return stored, nil
}

// ListTurns returns the last limit turn records of a game in turn order.
// A non-positive limit returns all of them.
func (s *Store) ListTurns(ctx context.Context, gameID string, limit int) ([]models.TurnRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT turn, choice, phase, patient_update, vitals, outcome, risk_level, xp_delta, created_at
		 FROM (SELECT * FROM turns WHERE game_id = ? ORDER BY turn DESC LIMIT ?)
		 ORDER BY turn ASC`, gameID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	defer rows.Close()

	var out []models.TurnRecord
	for rows.Next() {
		var (
			r                     models.TurnRecord
			vitals, outcome, risk string
			createdAt             int64
		)
		if err := rows.Scan(&r.Turn, &r.Choice, &r.Phase, &r.PatientUpdate, &vitals, &outcome, &risk, &r.XPDelta, &createdAt); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		if err := json.Unmarshal([]byte(vitals), &r.Vitals); err != nil {
			return nil, fmt.Errorf("decode turn vitals: %w", err)
		}
		r.GameID = gameID
		r.Outcome = models.Outcome(outcome)
		r.RiskLevel = models.RiskLevel(risk)
		r.CreatedAt = fromMillis(createdAt)
		out = append(out, r)
	}
	return out, rows.Err()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
