package scenario

import (
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tatianab/clinical-sim/internal/clinical"
	"github.com/tatianab/clinical-sim/internal/models"
)

func TestDraftIsConsistentWithCatalog(t *testing.T) {
	catalog := clinical.DefaultCatalog()
	g := NewGenerator(WithRand(rand.New(rand.NewPCG(1, 2))))

	for i := 0; i < 2000; i++ {
		game, state := g.Draft("u1")

		env, ok := catalog.Lookup(game.Environment)
		require.True(t, ok, game.Environment)
		assert.True(t, env.HasPathology(game.Context.Pathology), "%s not in %s", game.Context.Pathology, env.Name)
		assert.True(t, env.AgeInRange(game.Age), "age %d outside %s", game.Age, env.Name)

		if game.Age < 1 {
			assert.Equal(t, models.GenderNotApplicable, game.Gender)
		} else {
			assert.Contains(t, []string{models.GenderMale, models.GenderFemale}, game.Gender)
		}
		if game.Context.Pregnant {
			assert.Equal(t, models.GenderFemale, game.Gender)
			assert.True(t, game.Age >= 16 && game.Age <= 45)
		}

		assert.Equal(t, clinical.SeverityFor(game.Context.Pathology), game.Context.BaseSeverity)
		assert.Equal(t, clinical.VitalsForSeverity(game.Context.BaseSeverity), state.Vitals)
		assert.Equal(t, game.ID, state.GameID)
		assert.Equal(t, 1, game.Turn)
		assert.Equal(t, models.StatusInProgress, game.Status)
	}
}

func TestDraftNeonatalEnvironment(t *testing.T) {
	catalog, err := clinical.ParseCatalog([]byte(`
environments:
  - name: Terapia Intensiva Neonatale
    min_age: 0
    max_age: 1
    pathologies: [Sepsi neonatale, Ittero neonatale grave]
`))
	require.NoError(t, err)

	g := NewGenerator(WithCatalog(catalog), WithRand(rand.New(rand.NewPCG(7, 7))))
	for i := 0; i < 200; i++ {
		game, _ := g.Draft("u1")
		assert.Equal(t, "Terapia Intensiva Neonatale", game.Environment)
		assert.LessOrEqual(t, game.Age, 1)
		assert.False(t, game.Context.Pregnant)
		assert.Equal(t, "non valutabile", game.Context.Personality)
	}
}

func TestPregnancyRate(t *testing.T) {
	catalog, err := clinical.ParseCatalog([]byte(`
environments:
  - name: Pronto Soccorso
    min_age: 20
    max_age: 40
    pathologies: [Sepsi]
`))
	require.NoError(t, err)

	g := NewGenerator(WithCatalog(catalog), WithRand(rand.New(rand.NewPCG(3, 4))))
	var female, pregnant int
	for i := 0; i < 5000; i++ {
		game, _ := g.Draft("u1")
		if game.Gender == models.GenderFemale {
			female++
			if game.Context.Pregnant {
				pregnant++
			}
		}
	}
	require.Greater(t, female, 0)
	assert.InDelta(t, PregnancyProbability, float64(pregnant)/float64(female), 0.04)
}

func TestDraftUsesClockAndIDs(t *testing.T) {
	now := time.Date(2026, time.June, 1, 9, 0, 0, 0, time.FixedZone("CEST", 2*3600))
	g := NewGenerator(WithIDs(func() string { return "game-1" }), WithClock(func() time.Time { return now }))

	game, state := g.Draft("u1")
	assert.Equal(t, "game-1", game.ID)
	assert.Equal(t, "u1", game.UserID)
	assert.Equal(t, now.UTC(), game.CreatedAt)
	assert.Equal(t, "game-1", state.GameID)
}

func TestDraftConcurrently(t *testing.T) {
	g := NewGenerator(WithRand(rand.New(rand.NewPCG(5, 6))))

	var wg sync.WaitGroup
	games := make([][]models.Game, 8)
	for w := range games {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				game, _ := g.Draft("u1")
				games[w] = append(games[w], game)
			}
		}()
	}
	wg.Wait()

	ids := make(map[string]bool)
	for _, batch := range games {
		require.Len(t, batch, 200)
		for _, game := range batch {
			assert.False(t, ids[game.ID], "duplicate id %s", game.ID)
			ids[game.ID] = true
		}
	}
}
