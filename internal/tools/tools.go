// Package tools implements the MCP tool surface. Every tool is a thin
// transport shim: it decodes the request into an action, hands it to
// the dispatcher, and renders the result. No business logic lives here.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/atelierhq/atelier/internal/dispatch"
)

// ActionDispatcher is the slice of the dispatcher the tools need.
type ActionDispatcher interface {
	Dispatch(ctx context.Context, action dispatch.Action) dispatch.Result
}

// intArg extracts an integer argument from a tool request, returning
// defaultVal if the key is missing or not a number (JSON numbers are float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

// boolArg extracts a boolean argument from a tool request.
func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}

// dispatchAndRender runs one action and converts the terminal state
// into an MCP tool result. Denials and handler failures are reported as
// tool errors, not protocol errors, so the client always gets a
// readable message.
func dispatchAndRender(ctx context.Context, d ActionDispatcher, action dispatch.Action) (*mcp.CallToolResult, error) {
	res := d.Dispatch(ctx, action)

	switch res.Status {
	case dispatch.StatusSuccess:
		data, err := json.MarshalIndent(res.Payload, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("tools: encoding %s result: %w", action.Kind, err)
		}
		return mcp.NewToolResultText(string(data)), nil

	case dispatch.StatusDenied:
		var quotaErr *dispatch.QuotaExceededError
		if errors.As(res.Err, &quotaErr) {
			return mcp.NewToolResultError(quotaErr.Decision.Message()), nil
		}
		return mcp.NewToolResultError(res.Err.Error()), nil

	case dispatch.StatusNotFound:
		return mcp.NewToolResultError(res.Err.Error()), nil

	default:
		var handlerErr *dispatch.HandlerError
		if errors.As(res.Err, &handlerErr) && handlerErr.Retryable {
			return mcp.NewToolResultError(fmt.Sprintf("%v (transient — retry may succeed)", res.Err)), nil
		}
		return mcp.NewToolResultError(res.Err.Error()), nil
	}
}
