// Package models holds the conversation data model shared by the session
// store, the orchestrator and the oracle client.
package models

// Role identifies who produced a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is one capability invocation requested by the oracle. The name
// must exist in the capability registry and the arguments must satisfy its
// schema before anything executes.
type ToolCall struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

// ResultStatus is the outcome of a capability invocation.
type ResultStatus string

const (
	ResultSuccess ResultStatus = "success"
	ResultError   ResultStatus = "error"
)

// ToolResult is the immutable outcome of one tool call.
type ToolResult struct {
	Name        string       `json:"name"`
	Status      ResultStatus `json:"status"`
	Content     string       `json:"content,omitempty"`
	ErrorDetail string       `json:"error_detail,omitempty"`
}

// Turn is one entry of a conversation. A tool-call turn is always followed
// immediately by the tool-result turn it produced.
type Turn struct {
	Role       Role        `json:"role"`
	Content    string      `json:"content,omitempty"`
	ToolCall   *ToolCall   `json:"tool_call,omitempty"`
	ToolResult *ToolResult `json:"tool_result,omitempty"`
}

// Decision is the oracle's verdict for one iteration: either a direct
// answer or a single tool call, never both.
type Decision struct {
	Answer string
	Call   *ToolCall
}

// IsAnswer reports whether the decision terminates the loop.
func (d Decision) IsAnswer() bool { return d.Call == nil }
