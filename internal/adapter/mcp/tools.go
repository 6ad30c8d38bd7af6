package mcp

import (
	"context"
	"encoding/json"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/tariffsheriff/tradeassist/internal/domain/chat"
)

// registerTools registers all MCP tools on the server.
func (s *Server) registerTools() {
	s.mcpServer.AddTools(
		s.askAssistantTool(),
		s.listToolsTool(),
		s.conversationStatsTool(),
	)
}

func (s *Server) askAssistantTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("ask_assistant",
		mcplib.WithDescription("Ask the trade assistant a question about tariffs, HS codes, trade agreements or import compliance"),
		mcplib.WithString("query",
			mcplib.Required(),
			mcplib.Description("The question to ask"),
		),
		mcplib.WithString("user_id",
			mcplib.Description("Caller identity; enables conversation history and rate limiting"),
		),
		mcplib.WithString("conversation_id",
			mcplib.Description("Continue an existing conversation"),
		),
	)
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: s.handleAskAssistant,
	}
}

func (s *Server) listToolsTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("list_tools",
		mcplib.WithDescription("List the assistant's domain tools, their parameters and current health"),
	)
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: s.handleListTools,
	}
}

func (s *Server) conversationStatsTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("conversation_stats",
		mcplib.WithDescription("Get aggregate conversation store counters"),
	)
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: s.handleConversationStats,
	}
}

func (s *Server) handleAskAssistant(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Asker == nil {
		return mcplib.NewToolResultError("assistant not configured"), nil
	}
	args := req.GetArguments()
	query, ok := args["query"].(string)
	if !ok || query == "" {
		return mcplib.NewToolResultError("query is required"), nil
	}
	userID, _ := args["user_id"].(string)
	convID, _ := args["conversation_id"].(string)

	resp := s.deps.Asker.Process(ctx, chat.Query{
		Text:           query,
		UserID:         userID,
		ConversationID: convID,
	})
	data, err := json.Marshal(resp)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal response", err), nil
	}
	return toolResultJSON(string(data)), nil
}

func (s *Server) handleListTools(_ context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.ToolLister == nil {
		return mcplib.NewToolResultError("tool registry not configured"), nil
	}
	payload := map[string]any{
		"tools":  s.deps.ToolLister.Definitions(),
		"health": s.deps.ToolLister.Health(),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal tools", err), nil
	}
	return toolResultJSON(string(data)), nil
}

func (s *Server) handleConversationStats(_ context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.StatsReader == nil {
		return mcplib.NewToolResultError("stats reader not configured"), nil
	}
	data, err := json.Marshal(s.deps.StatsReader.Stats())
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal stats", err), nil
	}
	return toolResultJSON(string(data)), nil
}

// toolResultJSON wraps a JSON document as MCP text content.
func toolResultJSON(data string) *mcplib.CallToolResult {
	return mcplib.NewToolResultText(data)
}
