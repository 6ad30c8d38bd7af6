// Package tool defines the port interface implemented by domain tools.
package tool

import (
	"context"

	"github.com/tariffsheriff/tradeassist/internal/domain/chat"
)

// Tool is a callable capability the model can select for a query.
// Execute returns a soft-failure ToolResult (Success=false) when the
// lookup ran but found nothing; errors are reserved for hard failures.
type Tool interface {
	Name() string
	Definition() chat.ToolDefinition
	Execute(ctx context.Context, call chat.ToolCall) (chat.ToolResult, error)
}
