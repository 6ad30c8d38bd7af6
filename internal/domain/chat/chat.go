// Package chat holds the core request, response and tool types shared by
// the orchestrator, the LLM gateway and the tool registry.
package chat

import "time"

// Query is a single user request entering the pipeline.
type Query struct {
	Text           string `json:"message"`
	UserID         string `json:"userId,omitempty"`
	ConversationID string `json:"conversationId,omitempty"`
}

// Anonymous reports whether the query carries no user identity.
// Anonymous queries skip rate limiting and conversation persistence.
func (q Query) Anonymous() bool { return q.UserID == "" }

// Response is the pipeline's answer to a Query.
type Response struct {
	Text             string   `json:"response"`
	ConversationID   string   `json:"conversationId,omitempty"`
	ToolsUsed        []string `json:"toolsUsed"`
	Success          bool     `json:"success"`
	ProcessingTimeMs int64    `json:"processingTimeMs"`
	Cached           bool     `json:"cached,omitempty"`
}

// SelectionKind discriminates the two outcomes of tool selection.
type SelectionKind int

const (
	// SelectionDirect means the model answered without needing a tool.
	SelectionDirect SelectionKind = iota
	// SelectionInvoke means the model chose a tool to call.
	SelectionInvoke
)

// Selection is the LLM's decision for a query: either a direct textual
// answer or a tool invocation with arguments.
type Selection struct {
	Kind SelectionKind
	// Text is set when Kind is SelectionDirect.
	Text string
	// Call is set when Kind is SelectionInvoke.
	Call ToolCall
}

// ToolCall names a tool and the arguments the model chose for it.
type ToolCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"arguments"`
}

// ToolResult is the outcome of executing a tool.
//
// Success=false with a nil error is a soft failure: the tool ran but
// found no data. Hard failures are returned as errors instead.
type ToolResult struct {
	ToolName string         `json:"toolName"`
	Success  bool           `json:"success"`
	Data     map[string]any `json:"data,omitempty"`
	Message  string         `json:"message,omitempty"`
	Latency  time.Duration  `json:"-"`
}

// Parameter describes one argument in a tool's schema.
type Parameter struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// ToolDefinition is the model-facing description of a tool. The
// Description field carries usage guidance the model relies on for
// selection, so it should state when to use the tool, the arguments it
// requires and what it returns.
type ToolDefinition struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  []Parameter `json:"parameters"`
}

// Required returns the names of the definition's required parameters.
func (d ToolDefinition) Required() []string {
	var names []string
	for _, p := range d.Parameters {
		if p.Required {
			names = append(names, p.Name)
		}
	}
	return names
}

// Param looks up a parameter by name.
func (d ToolDefinition) Param(name string) (Parameter, bool) {
	for _, p := range d.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return Parameter{}, false
}
