// Package quota limits tutor requests per user over a rolling period and
// gates access by e-mail allow-list.
package quota

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tatianab/clinical-sim/internal/store"
)

var (
	ErrQuotaExceeded = errors.New("quota exceeded")
	ErrNotAllowed    = errors.New("not allowed")
	ErrMissingUser   = errors.New("missing user")
)

// Store is the persistence the guard needs.
type Store interface {
	GetUsage(ctx context.Context, userID string) (store.Usage, error)
	SaveUsage(ctx context.Context, u store.Usage) error
	IsEmailAllowed(ctx context.Context, email string) (bool, error)
}

// Usage is the public view of a user's counter.
type Usage struct {
	Count     int `json:"count"`
	Limit     int `json:"limit"`
	Remaining int `json:"remaining"`
}

type Guard struct {
	store     Store
	limit     int
	window    time.Duration
	allowlist bool
	now       func() time.Time
}

type Option func(*Guard)

func WithLimit(n int) Option {
	return func(g *Guard) { g.limit = n }
}

func WithWindow(d time.Duration) Option {
	return func(g *Guard) { g.window = d }
}

// WithAllowlist turns e-mail allow-listing on or off.
func WithAllowlist(enabled bool) Option {
	return func(g *Guard) { g.allowlist = enabled }
}

func WithClock(now func() time.Time) Option {
	return func(g *Guard) { g.now = now }
}

func NewGuard(st Store, opts ...Option) *Guard {
	g := &Guard{
		store:  st,
		limit:  45,
		window: 30 * 24 * time.Hour,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Limit returns the number of requests allowed per period.
func (g *Guard) Limit() int { return g.limit }

// Consume counts one request for userID. A user without a row, or whose
// period is older than the window, starts a new period with count 1. A user
// already at the limit gets ErrQuotaExceeded and the counter is unchanged.
func (g *Guard) Consume(ctx context.Context, userID string) (Usage, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Usage{}, ErrMissingUser
	}
	now := g.now()
	u, err := g.store.GetUsage(ctx, userID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		u = store.Usage{UserID: userID, Count: 1, PeriodStart: now}
	case err != nil:
		return Usage{}, fmt.Errorf("read usage: %w", err)
	case g.expired(u, now):
		u.Count = 1
		u.PeriodStart = now
	case u.Count >= g.limit:
		return g.view(u.Count), fmt.Errorf("%w: hai raggiunto il limite di %d richieste per il ciclo di %d giorni",
			ErrQuotaExceeded, g.limit, g.windowDays())
	default:
		u.Count++
	}
	if err := g.store.SaveUsage(ctx, u); err != nil {
		return Usage{}, fmt.Errorf("save usage: %w", err)
	}
	return g.view(u.Count), nil
}

// Usage reports the counter of userID without changing it. An expired
// period reads as zero.
func (g *Guard) Usage(ctx context.Context, userID string) (Usage, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Usage{}, ErrMissingUser
	}
	u, err := g.store.GetUsage(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return g.view(0), nil
	}
	if err != nil {
		return Usage{}, fmt.Errorf("read usage: %w", err)
	}
	if g.expired(u, g.now()) {
		return g.view(0), nil
	}
	return g.view(u.Count), nil
}

// CheckAllowed verifies email against the allow-list. It always passes when
// the allow-list is disabled.
func (g *Guard) CheckAllowed(ctx context.Context, email string) error {
	if !g.allowlist {
		return nil
	}
	if strings.TrimSpace(email) == "" {
		return fmt.Errorf("%w: missing userEmail", ErrNotAllowed)
	}
	ok, err := g.store.IsEmailAllowed(ctx, email)
	if err != nil {
		return fmt.Errorf("check allow-list: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: accesso riservato, la tua email non è autorizzata al beta", ErrNotAllowed)
	}
	return nil
}

func (g *Guard) expired(u store.Usage, now time.Time) bool {
	return now.Sub(u.PeriodStart) > g.window
}

func (g *Guard) windowDays() int {
	return int(g.window / (24 * time.Hour))
}

func (g *Guard) view(count int) Usage {
	return Usage{Count: count, Limit: g.limit, Remaining: max(g.limit-count, 0)}
}
