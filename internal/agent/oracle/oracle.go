// Package oracle talks to the external LLM decision provider. The provider
// is an untrusted collaborator: its output is parsed into a closed Decision
// variant and validated by the orchestrator before anything executes.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"

	"github.com/guardline/guardline/config"
	"github.com/guardline/guardline/internal/capability"
	"github.com/guardline/guardline/models"
)

// Client asks the LLM for the next decision given the conversation so far.
type Client struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

// NewClient builds an oracle client. BaseURL makes it work against any
// OpenAI-compatible endpoint (OpenRouter by default).
func NewClient(cfg config.OracleConfig) *Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Client{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: float32(cfg.Temperature),
	}
}

const systemPrompt = `You are a crime-information and personal-safety assistant.
You help users assess risk, find emergency resources, get directions to safety, and file incident reports.

Principles:
- Always prioritize the user's immediate safety. For situations involving immediate danger, tell the user to call local emergency services (911/112) first.
- Use the provided tools for anything that needs current information, locations, maps, risk ratings or case filing; answer directly when no tool is needed.
- Offer to submit a police case when an incident warrants official reporting.
- Be concrete and actionable; avoid speculation.`

// Decide sends the conversation and the capability catalog to the model and
// parses its reply into a Decision.
func (c *Client) Decide(ctx context.Context, turns []models.Turn, specs []capability.Spec) (models.Decision, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		Messages:    toMessages(turns),
		Tools:       toTools(specs),
	}
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return models.Decision{}, fmt.Errorf("oracle request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return models.Decision{}, fmt.Errorf("oracle returned no choices")
	}
	msg := resp.Choices[0].Message
	if len(msg.ToolCalls) > 0 {
		tc := msg.ToolCalls[0]
		call := &models.ToolCall{ID: tc.ID, Name: tc.Function.Name}
		if call.ID == "" {
			call.ID = uuid.NewString()
		}
		if tc.Function.Arguments != "" {
			// Malformed argument JSON is left nil; registry validation
			// turns it into a schema-violation result downstream.
			var args map[string]any
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err == nil {
				call.Args = args
			}
		}
		return models.Decision{Call: call}, nil
	}
	if msg.Content == "" {
		return models.Decision{}, fmt.Errorf("oracle returned neither answer nor tool call")
	}
	return models.Decision{Answer: msg.Content}, nil
}

func toMessages(turns []models.Turn) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(turns)+1)
	out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: systemPrompt})
	lastCallID := ""
	for _, turn := range turns {
		switch {
		case turn.ToolCall != nil:
			lastCallID = turn.ToolCall.ID
			args, _ := json.Marshal(turn.ToolCall.Args)
			out = append(out, openai.ChatCompletionMessage{
				Role: openai.ChatMessageRoleAssistant,
				ToolCalls: []openai.ToolCall{{
					ID:   turn.ToolCall.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      turn.ToolCall.Name,
						Arguments: string(args),
					},
				}},
			})
		case turn.ToolResult != nil:
			// Tool results always directly follow their call, so the last
			// call ID is the one this result answers.
			content := turn.ToolResult.Content
			if turn.ToolResult.Status == models.ResultError {
				content = "error: " + turn.ToolResult.ErrorDetail
			}
			out = append(out, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    content,
				Name:       turn.ToolResult.Name,
				ToolCallID: lastCallID,
			})
		case turn.Role == models.RoleAssistant:
			out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: turn.Content})
		default:
			out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: turn.Content})
		}
	}
	return out
}

func toTools(specs []capability.Spec) []openai.Tool {
	out := make([]openai.Tool, 0, len(specs))
	for _, sp := range specs {
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        sp.Name,
				Description: sp.Description,
				Parameters:  sp.ParametersSchema(),
			},
		})
	}
	return out
}
