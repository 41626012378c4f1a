// Package mcpserver exposes the simulation as Model Context Protocol tools.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tatianab/clinical-sim/internal/engine"
	"github.com/tatianab/clinical-sim/internal/quota"
)

const (
	serverName    = "clinical-sim"
	serverVersion = "1.0.0"
)

// Simulator runs simulation turns.
type Simulator interface {
	HandleTurn(ctx context.Context, req engine.TurnRequest) (engine.TurnResult, error)
}

// UsageReader reports tutor quota usage.
type UsageReader interface {
	Usage(ctx context.Context, userID string) (quota.Usage, error)
}

// New returns an MCP server with the simulation tools registered.
func New(sim Simulator, usage UsageReader) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    serverName,
		Version: serverVersion,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "simulation_start",
		Description: "Start a new clinical simulation for a student. Returns the first turn with patient update, vitals and available actions.",
	}, startHandler(sim))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "simulation_step",
		Description: "Apply the student's chosen action to a running simulation. Returns the next turn, or the debrief when the case ends.",
	}, stepHandler(sim))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "usage",
		Description: "Report how many tutor requests a user has made in the current period.",
	}, usageHandler(usage))

	return server
}

// Run serves the tools over stdio until ctx is done or the client leaves.
func Run(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

type startInput struct {
	UserID string `json:"user_id" jsonschema:"Student identifier"`
}

type stepInput struct {
	UserID string `json:"user_id" jsonschema:"Student identifier"`
	GameID string `json:"game_id" jsonschema:"Simulation identifier returned by simulation_start"`
	Choice string `json:"choice"  jsonschema:"Label of the chosen action"`
}

type usageInput struct {
	UserID string `json:"user_id" jsonschema:"Student identifier"`
}

func startHandler(sim Simulator) func(context.Context, *mcp.CallToolRequest, startInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input startInput) (*mcp.CallToolResult, any, error) {
		res, err := sim.HandleTurn(ctx, engine.TurnRequest{Action: engine.ActionStart, UserID: input.UserID})
		if err != nil {
			return textResult(fmt.Sprintf("error: %v", err)), nil, nil
		}
		return textResult(jsonString(res.Payload())), nil, nil
	}
}

func stepHandler(sim Simulator) func(context.Context, *mcp.CallToolRequest, stepInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input stepInput) (*mcp.CallToolResult, any, error) {
		res, err := sim.HandleTurn(ctx, engine.TurnRequest{
			Action: engine.ActionStep,
			UserID: input.UserID,
			GameID: input.GameID,
			Choice: input.Choice,
		})
		if err != nil {
			return textResult(fmt.Sprintf("error: %v", err)), nil, nil
		}
		return textResult(jsonString(res.Payload())), nil, nil
	}
}

func usageHandler(usage UsageReader) func(context.Context, *mcp.CallToolRequest, usageInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input usageInput) (*mcp.CallToolResult, any, error) {
		u, err := usage.Usage(ctx, input.UserID)
		if err != nil {
			return textResult(fmt.Sprintf("error: %v", err)), nil, nil
		}
		return textResult(jsonString(u)), nil, nil
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

func jsonString(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error": "marshal: %v"}`, err)
	}
	return string(data)
}
