// Package engine runs the turn loop of a clinical simulation: it assembles
// prompts, calls the model, repairs its output, applies the state machine
// and persists the result.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tatianab/clinical-sim/internal/behavior"
	"github.com/tatianab/clinical-sim/internal/clinical"
	"github.com/tatianab/clinical-sim/internal/llm"
	"github.com/tatianab/clinical-sim/internal/models"
	"github.com/tatianab/clinical-sim/internal/store"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("game not found")
	ErrGameOver     = errors.New("game is over")
)

const (
	ActionStart = "start"
	ActionStep  = "step"
)

const defaultPhase = "Fase iniziale"

// Store is the persistence the engine needs.
type Store interface {
	GetGame(ctx context.Context, id string) (models.Game, error)
	GetState(ctx context.Context, gameID string) (models.State, error)
	GetProfile(ctx context.Context, userID string) (models.BehaviorProfile, error)
	RecordTurn(ctx context.Context, c store.TurnCommit) (models.BehaviorProfile, error)
	ListTurns(ctx context.Context, gameID string, limit int) ([]models.TurnRecord, error)
	ListDocuments(ctx context.Context, category string, limit int) ([]store.Document, error)
}

// ScenarioDrafter picks a new game without storing it.
type ScenarioDrafter interface {
	Draft(userID string) (models.Game, models.State)
}

// TurnRequest is one call to the turn endpoint.
type TurnRequest struct {
	Action  string   `json:"action"`
	UserID  string   `json:"userId"`
	GameID  string   `json:"gameId,omitempty"`
	Choice  string   `json:"choice,omitempty"`
	History []string `json:"history,omitempty"`
}

// Validate checks required fields without touching any state.
func (r TurnRequest) Validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return fmt.Errorf("%w: missing userId", ErrInvalidInput)
	}
	switch r.Action {
	case ActionStart:
		return nil
	case ActionStep:
		if strings.TrimSpace(r.GameID) == "" {
			return fmt.Errorf("%w: missing gameId", ErrInvalidInput)
		}
		if strings.TrimSpace(r.Choice) == "" {
			return fmt.Errorf("%w: missing choice", ErrInvalidInput)
		}
		return nil
	default:
		return fmt.Errorf("%w: invalid action %q", ErrInvalidInput, r.Action)
	}
}

// TurnResult holds exactly one of Step or Debrief.
type TurnResult struct {
	Step    *models.StepResponse
	Debrief *models.DebriefResponse
}

// Payload returns whichever response is set.
func (r TurnResult) Payload() any {
	if r.Debrief != nil {
		return r.Debrief
	}
	return r.Step
}

// Engine orchestrates turns.
type Engine struct {
	store       Store
	scenarios   ScenarioDrafter
	client      llm.Client
	debriefer   *Debriefer
	temperature float32
	now         func() time.Time
	log         logrus.FieldLogger
}

// Option configures an Engine.
type Option func(*Engine)

// WithTemperature sets the sampling temperature of simulation calls.
func WithTemperature(t float32) Option {
	return func(e *Engine) { e.temperature = t }
}

// WithLogger replaces the standard logrus logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(e *Engine) { e.log = l }
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(st Store, scenarios ScenarioDrafter, client llm.Client, opts ...Option) *Engine {
	e := &Engine{
		store:       st,
		scenarios:   scenarios,
		client:      client,
		debriefer:   NewDebriefer(st),
		temperature: 1,
		now:         time.Now,
		log:         logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// HandleTurn runs one start or step request to completion.
func (e *Engine) HandleTurn(ctx context.Context, req TurnRequest) (TurnResult, error) {
	req.UserID = strings.TrimSpace(req.UserID)
	req.GameID = strings.TrimSpace(req.GameID)
	req.Choice = strings.TrimSpace(req.Choice)
	if err := req.Validate(); err != nil {
		return TurnResult{}, err
	}
	if req.Action == ActionStart {
		return e.start(ctx, req)
	}
	return e.step(ctx, req)
}

// start stores the drafted game only together with its first turn, so a
// failed model call leaves nothing behind.
func (e *Engine) start(ctx context.Context, req TurnRequest) (TurnResult, error) {
	game, state := e.scenarios.Draft(req.UserID)
	log := e.log.WithFields(logrus.Fields{"game_id": game.ID, "user_id": req.UserID, "action": ActionStart})

	profile, err := e.store.GetProfile(ctx, req.UserID)
	if err != nil {
		return TurnResult{}, fmt.Errorf("read profile: %w", err)
	}
	severity := behavior.AdaptiveDifficulty(profile, game.Context.BaseSeverity)

	refs, err := e.store.ListDocuments(ctx, clinical.DetectCategory(game.Context.Pathology), maxReferences)
	if err != nil {
		log.WithError(err).Warn("reference documents unavailable")
	}

	prompt, err := render("start", startPrompt, startData{
		Game:       game,
		Vitals:     state.Vitals,
		Severity:   severity,
		Ceiling:    SoftCeiling(severity),
		References: refs,
	})
	if err != nil {
		return TurnResult{}, fmt.Errorf("render start prompt: %w", err)
	}

	data, err := e.complete(ctx, log, prompt)
	if err != nil {
		return TurnResult{}, err
	}

	status, outcome := Transition(models.StatusNew, 1, data.Outcome)
	data.Outcome = outcome
	game.Turn = 1
	game.Status = status

	return e.commit(ctx, log, game, true, profile, "", data, severity, nil)
}

func (e *Engine) step(ctx context.Context, req TurnRequest) (TurnResult, error) {
	log := e.log.WithFields(logrus.Fields{"game_id": req.GameID, "user_id": req.UserID, "action": ActionStep})

	game, err := e.store.GetGame(ctx, req.GameID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && game.UserID != req.UserID) {
		return TurnResult{}, fmt.Errorf("%w: %s", ErrNotFound, req.GameID)
	}
	if err != nil {
		return TurnResult{}, fmt.Errorf("read game: %w", err)
	}
	if game.Status == models.StatusTerminated {
		return TurnResult{}, fmt.Errorf("%w: %s", ErrGameOver, game.ID)
	}

	state, err := e.store.GetState(ctx, game.ID)
	if errors.Is(err, store.ErrNotFound) {
		return TurnResult{}, fmt.Errorf("%w: state of %s", ErrNotFound, game.ID)
	}
	if err != nil {
		return TurnResult{}, fmt.Errorf("read state: %w", err)
	}

	profile, err := e.store.GetProfile(ctx, req.UserID)
	if err != nil {
		return TurnResult{}, fmt.Errorf("read profile: %w", err)
	}
	severity := behavior.AdaptiveDifficulty(profile, game.Context.BaseSeverity)
	updated := behavior.Update(profile, req.Choice)
	log.WithField("rules", behavior.Matched(req.Choice)).Debug("behavior rules applied")

	history, err := e.store.ListTurns(ctx, game.ID, historyWindow)
	if err != nil {
		return TurnResult{}, fmt.Errorf("read history: %w", err)
	}

	turn := game.Turn + 1
	log = log.WithField("turn", turn)
	prompt, err := render("step", stepPrompt, stepData{
		Game:     game,
		Vitals:   state.Vitals,
		Severity: severity,
		Turn:     turn,
		MinTurns: MinTurns,
		Ceiling:  SoftCeiling(severity),
		Choice:   req.Choice,
		History:  history,
	})
	if err != nil {
		return TurnResult{}, fmt.Errorf("render step prompt: %w", err)
	}

	data, err := e.complete(ctx, log, prompt)
	if err != nil {
		return TurnResult{}, err
	}

	proposed := data.Outcome
	status, outcome := Transition(game.Status, turn, proposed)
	if outcome != proposed {
		log.WithField("proposed", proposed).Info("terminal outcome held back by turn floor")
	}
	data.Outcome = outcome
	game.Turn = turn
	game.Status = status

	return e.commit(ctx, log, game, false, updated, req.Choice, data, severity, req.History)
}

// complete calls the model and decodes its answer. Nothing is persisted
// when it fails.
func (e *Engine) complete(ctx context.Context, log logrus.FieldLogger, prompt string) (TurnData, error) {
	content, err := e.client.Complete(ctx, llm.Request{
		System:      systemPrompt,
		User:        prompt,
		Temperature: e.temperature,
		JSON:        true,
	})
	if err != nil {
		log.WithError(err).Error("model call failed")
		return TurnData{}, fmt.Errorf("simulation model: %w", err)
	}
	data, err := DecodeTurn(content)
	if err != nil {
		log.WithError(err).Error("invalid simulation output")
		return TurnData{}, fmt.Errorf("simulation model: %w", err)
	}
	if len(data.Repairs) > 0 {
		log.WithField("repairs", data.Repairs).Warn("repaired simulation output")
	}
	return data, nil
}

func (e *Engine) commit(ctx context.Context, log logrus.FieldLogger, game models.Game, created bool,
	profile models.BehaviorProfile, choice string, data TurnData, severity int, clientHistory []string) (TurnResult, error) {
	now := e.now().UTC()
	game.UpdatedAt = now
	credited := max(data.XPDelta, 0)
	if data.Phase == "" {
		data.Phase = defaultPhase
	}

	stored, err := e.store.RecordTurn(ctx, store.TurnCommit{
		Game: game,
		New:  created,
		Record: models.TurnRecord{
			GameID:        game.ID,
			Turn:          game.Turn,
			Choice:        choice,
			Phase:         data.Phase,
			PatientUpdate: data.PatientUpdate,
			Vitals:        data.Vitals,
			Outcome:       data.Outcome,
			RiskLevel:     data.RiskLevel,
			XPDelta:       credited,
			CreatedAt:     now,
		},
		Profile: profile,
		XPDelta: data.XPDelta,
	})
	if err != nil {
		log.WithError(err).Error("persist turn")
		return TurnResult{}, fmt.Errorf("persist turn: %w", err)
	}
	log.WithFields(logrus.Fields{
		"turn":    game.Turn,
		"outcome": data.Outcome,
		"risk":    data.RiskLevel,
		"xp":      stored.XP,
	}).Info("turn recorded")

	if game.Status == models.StatusTerminated {
		history, err := e.actionHistory(ctx, game.ID, clientHistory)
		if err != nil {
			return TurnResult{}, err
		}
		debrief, err := e.debriefer.Build(ctx, game.UserID, data, history)
		if err != nil {
			return TurnResult{}, fmt.Errorf("build debrief: %w", err)
		}
		debrief.GameID = game.ID
		return TurnResult{Debrief: &debrief}, nil
	}

	return TurnResult{Step: &models.StepResponse{
		Type:             models.ResponseTypeStep,
		GameID:           game.ID,
		Environment:      game.Environment,
		Turn:             game.Turn,
		AdaptiveSeverity: severity,
		Phase:            data.Phase,
		PatientUpdate:    data.PatientUpdate,
		Vitals:           data.Vitals,
		NewFindings:      data.NewFindings,
		AvailableActions: data.AvailableActions,
		Outcome:          models.OutcomeOngoing,
		XPDelta:          credited,
		RiskLevel:        data.RiskLevel,
	}}, nil
}

// actionHistory prefers the stored choices of the game; the client's list is
// used only when none are stored.
func (e *Engine) actionHistory(ctx context.Context, gameID string, clientHistory []string) ([]string, error) {
	turns, err := e.store.ListTurns(ctx, gameID, 0)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	var choices []string
	for _, t := range turns {
		if t.Choice != "" {
			choices = append(choices, t.Choice)
		}
	}
	if len(choices) > 0 {
		return choices, nil
	}
	return clientHistory, nil
}
