// Package llm defines the port interface for the language model gateway.
package llm

import (
	"context"

	"github.com/tariffsheriff/tradeassist/internal/domain/chat"
	"github.com/tariffsheriff/tradeassist/internal/domain/conversation"
)

// Gateway is the port for the two model calls in the pipeline: picking a
// tool for a query and composing the final user-facing answer.
type Gateway interface {
	// SelectTool asks the model to either answer directly or choose one
	// of the given tools for the query. History is supplied oldest first.
	SelectTool(ctx context.Context, query chat.Query, tools []chat.ToolDefinition, history []conversation.Message) (chat.Selection, error)

	// GenerateResponse asks the model to compose an answer from the
	// query and the data a tool returned.
	GenerateResponse(ctx context.Context, query chat.Query, result chat.ToolResult, history []conversation.Message) (string, error)
}
