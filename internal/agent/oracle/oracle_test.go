package oracle

import (
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/guardline/guardline/internal/capability"
	"github.com/guardline/guardline/models"
)

func TestToMessagesMapping(t *testing.T) {
	turns := []models.Turn{
		{Role: models.RoleUser, Content: "is it safe out there?"},
		{Role: models.RoleAssistant, ToolCall: &models.ToolCall{
			ID: "call-1", Name: "assess_risk_level", Args: map[string]any{"situation": "walking"},
		}},
		{Role: models.RoleTool, ToolResult: &models.ToolResult{
			Name: "assess_risk_level", Status: models.ResultSuccess, Content: `{"level":"Low"}`,
		}},
		{Role: models.RoleAssistant, Content: "looks fine"},
	}

	msgs := toMessages(turns)
	// system prompt + four turns
	if len(msgs) != 5 {
		t.Fatalf("expected 5 messages, got %d", len(msgs))
	}
	if msgs[0].Role != openai.ChatMessageRoleSystem {
		t.Fatalf("first message must be the system prompt")
	}
	if msgs[1].Role != openai.ChatMessageRoleUser {
		t.Fatalf("expected user message, got %s", msgs[1].Role)
	}
	call := msgs[2]
	if call.Role != openai.ChatMessageRoleAssistant || len(call.ToolCalls) != 1 {
		t.Fatalf("expected assistant tool-call message, got %+v", call)
	}
	if call.ToolCalls[0].ID != "call-1" {
		t.Fatalf("tool call ID lost: %+v", call.ToolCalls[0])
	}
	result := msgs[3]
	if result.Role != openai.ChatMessageRoleTool {
		t.Fatalf("expected tool message, got %s", result.Role)
	}
	if result.ToolCallID != "call-1" {
		t.Fatalf("tool result must reference its call, got %q", result.ToolCallID)
	}
	if msgs[4].Role != openai.ChatMessageRoleAssistant || msgs[4].Content != "looks fine" {
		t.Fatalf("expected plain assistant message, got %+v", msgs[4])
	}
}

func TestToMessagesErrorResultPrefix(t *testing.T) {
	turns := []models.Turn{
		{Role: models.RoleAssistant, ToolCall: &models.ToolCall{ID: "c1", Name: "lookup"}},
		{Role: models.RoleTool, ToolResult: &models.ToolResult{
			Name: "lookup", Status: models.ResultError, ErrorDetail: "provider exploded",
		}},
	}
	msgs := toMessages(turns)
	got := msgs[2].Content
	if got != "error: provider exploded" {
		t.Fatalf("error results must be marked for the model, got %q", got)
	}
}

func TestToTools(t *testing.T) {
	specs := []capability.Spec{{
		Name:        "lookup",
		Description: "looks things up",
		Params: []capability.Param{
			{Name: "query", Type: capability.TypeString, Required: true},
		},
	}}
	tools := toTools(specs)
	if len(tools) != 1 {
		t.Fatalf("expected 1 tool, got %d", len(tools))
	}
	fn := tools[0].Function
	if fn.Name != "lookup" || fn.Description != "looks things up" {
		t.Fatalf("unexpected function declaration: %+v", fn)
	}
	schema, ok := fn.Parameters.(map[string]any)
	if !ok || schema["type"] != "object" {
		t.Fatalf("unexpected parameters schema: %+v", fn.Parameters)
	}
}
