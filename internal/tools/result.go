package tools

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagnerlima/knowledgeflow/internal/ai"
	"github.com/wagnerlima/knowledgeflow/internal/storage"
)

func toolText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func toolError(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}

func toolJSON(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return toolError("Failed to marshal result: %v", err), nil, nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}

// failed turns a store or agent error into a tool error result. Bad input
// and missing ids are reported as such; anything else is a failure to act.
func failed(action string, err error) (*mcp.CallToolResult, any, error) {
	var verr *storage.ValidationError
	switch {
	case errors.As(err, &verr):
		return toolError("Invalid %s: %s", verr.Field, verr.Msg), nil, nil
	case errors.Is(err, storage.ErrNotFound):
		return toolError("Not found: %v", err), nil, nil
	case errors.Is(err, storage.ErrCorruptStore):
		return toolError("Store is corrupt, run `kflow repair`: %v", err), nil, nil
	case ai.IsKind(err, ai.KindConfig):
		return toolError("AI is not configured: %v", err), nil, nil
	}
	return toolError("Failed to %s: %v", action, err), nil, nil
}
