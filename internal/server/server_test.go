package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tatianab/clinical-sim/internal/engine"
	"github.com/tatianab/clinical-sim/internal/llm"
	"github.com/tatianab/clinical-sim/internal/models"
	"github.com/tatianab/clinical-sim/internal/quota"
	"github.com/tatianab/clinical-sim/internal/tutor"
)

type fakeSim struct {
	got engine.TurnRequest
	res engine.TurnResult
	err error
}

func (f *fakeSim) HandleTurn(_ context.Context, req engine.TurnRequest) (engine.TurnResult, error) {
	f.got = req
	return f.res, f.err
}

type fakeTutor struct {
	calls  int
	answer tutor.Answer
	proc   tutor.ProcedureAnswer
	err    error
}

func (f *fakeTutor) Ask(context.Context, string) (tutor.Answer, error) {
	f.calls++
	return f.answer, f.err
}

func (f *fakeTutor) Procedure(context.Context, string, string) (tutor.ProcedureAnswer, error) {
	f.calls++
	return f.proc, f.err
}

type fakeGuard struct {
	consumed   []string
	allowErr   error
	consumeErr error
	usage      quota.Usage
}

func (f *fakeGuard) CheckAllowed(context.Context, string) error { return f.allowErr }

func (f *fakeGuard) Consume(_ context.Context, userID string) (quota.Usage, error) {
	f.consumed = append(f.consumed, userID)
	return f.usage, f.consumeErr
}

func (f *fakeGuard) Usage(context.Context, string) (quota.Usage, error) { return f.usage, nil }

type fixture struct {
	sim   *fakeSim
	tutor *fakeTutor
	guard *fakeGuard
	h     http.Handler
}

func newFixture(rateLimit float64, burst int) *fixture {
	logger, _ := test.NewNullLogger()
	f := &fixture{sim: &fakeSim{}, tutor: &fakeTutor{}, guard: &fakeGuard{}}
	f.h = New(Config{
		Simulator: f.sim,
		Tutor:     f.tutor,
		Guard:     f.guard,
		Logger:    logger,
		RateLimit: rateLimit,
		RateBurst: burst,
	})
	return f
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m), rec.Body.String())
	return m
}

func TestSimulationStep(t *testing.T) {
	f := newFixture(0, 0)
	f.sim.res = engine.TurnResult{Step: &models.StepResponse{Type: models.ResponseTypeStep, GameID: "g1", Turn: 2}}

	rec := f.do(http.MethodPost, "/api/simulation", `{"action":"step","userId":"u1","gameId":"g1","choice":"Ossigeno"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, engine.TurnRequest{Action: "step", UserID: "u1", GameID: "g1", Choice: "Ossigeno"}, f.sim.got)

	body := decodeBody(t, rec)
	assert.Equal(t, "step", body["type"])
	assert.Equal(t, "g1", body["gameId"])
}

func TestSimulationDebrief(t *testing.T) {
	f := newFixture(0, 0)
	f.sim.res = engine.TurnResult{Debrief: &models.DebriefResponse{Type: models.ResponseTypeDebrief, Outcome: models.OutcomeImproved}}

	rec := f.do(http.MethodPost, "/api/simulation", `{"action":"step","userId":"u1","gameId":"g1","choice":"x"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "debrief", decodeBody(t, rec)["type"])
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"invalid input", fmt.Errorf("%w: missing userId", engine.ErrInvalidInput), http.StatusBadRequest},
		{"not found", fmt.Errorf("%w: g9", engine.ErrNotFound), http.StatusNotFound},
		{"game over", fmt.Errorf("%w: g1", engine.ErrGameOver), http.StatusConflict},
		{"transport", fmt.Errorf("simulation model: %w", &llm.TransportError{Provider: "openai", StatusCode: 500}), http.StatusBadGateway},
		{"other", errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(0, 0)
			f.sim.err = tt.err
			rec := f.do(http.MethodPost, "/api/simulation", `{"action":"start","userId":"u1"}`)
			assert.Equal(t, tt.status, rec.Code)
			assert.NotEmpty(t, decodeBody(t, rec)["error"])
		})
	}
}

func TestFormatErrorCarriesRaw(t *testing.T) {
	f := newFixture(0, 0)
	f.sim.err = fmt.Errorf("simulation model: %w", &llm.FormatError{Stage: llm.StageContent, Raw: "non è JSON", Err: errors.New("bad")})

	rec := f.do(http.MethodPost, "/api/simulation", `{"action":"start","userId":"u1"}`)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "non è JSON", decodeBody(t, rec)["raw"])
}

func TestInvalidJSON(t *testing.T) {
	f := newFixture(0, 0)
	rec := f.do(http.MethodPost, "/api/simulation", `{"action":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMethods(t *testing.T) {
	f := newFixture(0, 0)

	rec := f.do(http.MethodOptions, "/api/ask", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Content-Type", rec.Header().Get("Access-Control-Allow-Headers"))

	rec = f.do(http.MethodGet, "/api/simulation", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = f.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody(t, rec)["status"])
}

func TestAskForbiddenDoesNotConsumeQuota(t *testing.T) {
	f := newFixture(0, 0)
	rec := f.do(http.MethodPost, "/api/ask", `{"query":"Quando intubare?","userId":"u1"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, tutor.ErrForbiddenQuery.Error(), decodeBody(t, rec)["error"])
	assert.Empty(t, f.guard.consumed)
	assert.Equal(t, 0, f.tutor.calls)
}

func TestAskConsumesQuota(t *testing.T) {
	f := newFixture(0, 0)
	f.tutor.answer = tutor.Answer{Source: tutor.SourceLive, Category: "sepsis", Answer: "La sepsi..."}

	rec := f.do(http.MethodPost, "/api/ask", `{"query":"Sepsi","userId":"u1","userEmail":"a@b.it"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"u1"}, f.guard.consumed)
	body := decodeBody(t, rec)
	assert.Equal(t, "live", body["source"])
	assert.Equal(t, "La sepsi...", body["answer"])
}

func TestProcedureGuards(t *testing.T) {
	f := newFixture(0, 0)
	f.guard.allowErr = fmt.Errorf("%w: fuori lista", quota.ErrNotAllowed)
	rec := f.do(http.MethodPost, "/api/procedure", `{"query":"PEG","userId":"u1","userEmail":"x@y.it"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, 0, f.tutor.calls)

	f = newFixture(0, 0)
	f.guard.consumeErr = fmt.Errorf("%w: limite", quota.ErrQuotaExceeded)
	rec = f.do(http.MethodPost, "/api/procedure", `{"query":"PEG","userId":"u1"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, 0, f.tutor.calls)

	f = newFixture(0, 0)
	rec = f.do(http.MethodPost, "/api/procedure", `{"query":"  ","userId":"u1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, f.guard.consumed)
}

func TestProcedureAnswer(t *testing.T) {
	f := newFixture(0, 0)
	f.tutor.proc = tutor.ProcedureAnswer{Source: tutor.SourceCache, Category: "peg", Procedure: tutor.Procedure{Steps: []string{"Uno"}}}

	rec := f.do(http.MethodPost, "/api/procedure", `{"query":"PEG","category":"peg","userId":"u1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	answer, ok := decodeBody(t, rec)["answer"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []any{"Uno"}, answer["steps"])
}

func TestUsage(t *testing.T) {
	f := newFixture(0, 0)
	f.guard.usage = quota.Usage{Count: 4, Limit: 45, Remaining: 41}

	rec := f.do(http.MethodPost, "/api/usage", `{"userId":"u1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"count": 4.0, "limit": 45.0, "remaining": 41.0}, decodeBody(t, rec))
}

func TestRateLimit(t *testing.T) {
	f := newFixture(0.001, 2)
	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/health", "").Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, f.do(http.MethodGet, "/health", "").Code)

	// Another client has its own bucket.
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Forwarded-For", "10.0.0.9, 10.0.0.1")
	rec := httptest.NewRecorder()
	f.h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLimiterForgetsIdleClients(t *testing.T) {
	now := time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)
	l := newLimiter(1, 1, func() time.Time { return now })
	assert.True(t, l.allow("a"))
	assert.Len(t, l.buckets, 1)

	now = now.Add(idleTTL + time.Second)
	assert.True(t, l.allow("b"))
	assert.Len(t, l.buckets, 1)
}
