package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tatianab/clinical-sim/internal/engine"
	"github.com/tatianab/clinical-sim/internal/models"
	"github.com/tatianab/clinical-sim/internal/quota"
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

type fixedUsage quota.Usage

func (u fixedUsage) Usage(context.Context, string) (quota.Usage, error) { return quota.Usage(u), nil }

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, res.Content, 1)
	tc, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestStartTool(t *testing.T) {
	sim := &fakeSim{res: engine.TurnResult{Step: &models.StepResponse{Type: models.ResponseTypeStep, GameID: "g1", Turn: 1}}}
	res, _, err := startHandler(sim)(context.Background(), nil, startInput{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, engine.TurnRequest{Action: engine.ActionStart, UserID: "u1"}, sim.got)

	var step models.StepResponse
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &step))
	assert.Equal(t, "g1", step.GameID)
	assert.Equal(t, 1, step.Turn)
}

func TestStepToolError(t *testing.T) {
	sim := &fakeSim{err: fmt.Errorf("%w: g1", engine.ErrGameOver)}
	res, _, err := stepHandler(sim)(context.Background(), nil, stepInput{UserID: "u1", GameID: "g1", Choice: "Ossigeno"})
	require.NoError(t, err)
	assert.Equal(t, "error: game is over: g1", text(t, res))
	assert.Equal(t, engine.ActionStep, sim.got.Action)
	assert.Equal(t, "Ossigeno", sim.got.Choice)
}

func TestUsageTool(t *testing.T) {
	res, _, err := usageHandler(fixedUsage{Count: 2, Limit: 45, Remaining: 43})(context.Background(), nil, usageInput{UserID: "u1"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"count":2,"limit":45,"remaining":43}`, text(t, res))
}

func TestNewRegistersTools(t *testing.T) {
	assert.NotNil(t, New(&fakeSim{}, fixedUsage{}))
}
