// Package scenario generates internally consistent virtual patients.
package scenario

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tatianab/clinical-sim/internal/clinical"
	"github.com/tatianab/clinical-sim/internal/models"
)

// PregnancyProbability is the draw probability for eligible patients.
const PregnancyProbability = 0.2

// Personalities a patient can present with once old enough to express one.
var Personalities = []string{
	"collaborante",
	"ansioso",
	"aggressivo",
	"confuso",
	"poco collaborante",
	"taciturno",
	"iper-informato",
}

const infantPersonality = "non valutabile"

// Generator drafts new scenarios. It is safe for concurrent use.
type Generator struct {
	catalog clinical.Catalog

	mu  sync.Mutex // guards rng
	rng *rand.Rand

	now   func() time.Time
	newID func() string
}

// Option configures a Generator.
type Option func(*Generator)

// WithCatalog replaces the embedded world catalog.
func WithCatalog(c clinical.Catalog) Option {
	return func(g *Generator) { g.catalog = c }
}

// WithRand sets the random source, e.g. a seeded one in tests.
func WithRand(r *rand.Rand) Option {
	return func(g *Generator) { g.rng = r }
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// WithIDs sets the game id generator.
func WithIDs(newID func() string) Option {
	return func(g *Generator) { g.newID = newID }
}

// NewGenerator creates a generator drawing from the embedded catalog.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		catalog: clinical.DefaultCatalog(),
		rng:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type draw struct {
	env         clinical.Environment
	pathology   string
	age         int
	gender      string
	pregnant    bool
	personality string
}

func (g *Generator) roll() draw {
	g.mu.Lock()
	defer g.mu.Unlock()

	d := draw{env: g.catalog.At(g.rng.IntN(g.catalog.Len()))}
	d.pathology = d.env.Pathologies[g.rng.IntN(len(d.env.Pathologies))]
	d.age = d.env.MinAge + g.rng.IntN(d.env.MaxAge-d.env.MinAge+1)

	d.gender = models.GenderNotApplicable
	if d.age >= 1 {
		d.gender = models.GenderMale
		if g.rng.IntN(2) == 0 {
			d.gender = models.GenderFemale
		}
	}
	if d.gender == models.GenderFemale && d.age >= 16 && d.age <= 45 {
		d.pregnant = g.rng.Float64() < PregnancyProbability
	}

	d.personality = infantPersonality
	if d.age >= 3 {
		d.personality = Personalities[g.rng.IntN(len(Personalities))]
	}
	return d
}

// Draft picks a scenario for userID. Nothing is stored: the game is written
// together with its first turn.
func (g *Generator) Draft(userID string) (models.Game, models.State) {
	d := g.roll()
	severity := clinical.SeverityFor(d.pathology)
	now := g.now().UTC()

	game := models.Game{
		ID:          g.newID(),
		UserID:      userID,
		Environment: d.env.Name,
		Age:         d.age,
		Gender:      d.gender,
		Context: models.GameContext{
			Pathology:    d.pathology,
			Personality:  d.personality,
			BaseSeverity: severity,
			Pregnant:     d.pregnant,
		},
		Turn:      1,
		Status:    models.StatusInProgress,
		CreatedAt: now,
		UpdatedAt: now,
	}
	state := models.State{
		GameID:    game.ID,
		Vitals:    clinical.VitalsForSeverity(severity),
		UpdatedAt: now,
	}
	return game, state
}
