package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/guardline/guardline/config"
	"github.com/guardline/guardline/internal/agent/telemetry"
	"github.com/guardline/guardline/internal/capability"
	"github.com/guardline/guardline/models"
	"github.com/guardline/guardline/session"
)

// ErrEmptyMessage rejects blank user input before any oracle call.
var ErrEmptyMessage = errors.New("message must not be empty")

// Orchestrator runs the tool-dispatch loop: oracle decision, validation,
// capability execution, fold, repeat until a direct answer or the iteration
// bound. One loop per session at a time; sessions are independent.
type Orchestrator struct {
	cfg       *config.Config
	logger    *log.Logger
	telemetry *telemetry.Telemetry
	registry  *capability.Registry
	oracle    Oracle
	sessions  session.Store
}

// NewOrchestrator wires the dispatch loop.
func NewOrchestrator(cfg *config.Config, logger *log.Logger, tele *telemetry.Telemetry, registry *capability.Registry, oracle Oracle, sessions session.Store) *Orchestrator {
	if logger == nil {
		logger = log.New(log.Writer(), "[ORCH] ", log.LstdFlags)
	}
	return &Orchestrator{
		cfg:       cfg,
		logger:    logger,
		telemetry: tele,
		registry:  registry,
		oracle:    oracle,
		sessions:  sessions,
	}
}

// Registry exposes the capability registry (read-only after startup).
func (o *Orchestrator) Registry() *capability.Registry { return o.registry }

// Respond processes one user message within a session and returns the
// assistant's answer. Turns within a session are serialized: a message
// arriving while another is in flight fails with session.ErrBusy.
//
// Conversation state is committed only when the turn completes, so a
// cancelled turn leaves the session exactly as it was.
func (o *Orchestrator) Respond(ctx context.Context, sess *session.Session, message string) (string, error) {
	if message == "" {
		return "", ErrEmptyMessage
	}
	if !sess.TryAcquire() {
		return "", session.ErrBusy
	}
	defer sess.Release()

	start := time.Now()
	base := sess.Turns()
	pending := []models.Turn{{Role: models.RoleUser, Content: message}}
	execCtx := capability.WithSessionID(ctx, sess.ID())

	iterations := 0
	defer func() { o.telemetry.RecordTurn(iterations, time.Since(start)) }()

	for ; iterations < o.cfg.Oracle.MaxToolIterations; iterations++ {
		decision, err := o.decide(ctx, append(base, pending...))
		if err != nil {
			if ctx.Err() != nil {
				// Caller abandoned the turn: commit nothing.
				return "", ctx.Err()
			}
			o.logger.Printf("oracle failure on session %s: %v", sess.ID(), err)
			return o.finish(ctx, sess, pending, answerOracleUnavailable)
		}
		if decision.IsAnswer() {
			return o.finish(ctx, sess, pending, decision.Answer)
		}

		call := decision.Call
		if call.ID == "" {
			call.ID = uuid.NewString()
		}
		result := o.executeCall(execCtx, *call)
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		// Fold the call and its result adjacently; the oracle sees both on
		// the next iteration.
		pending = append(pending,
			models.Turn{Role: models.RoleAssistant, ToolCall: call},
			models.Turn{Role: models.RoleTool, ToolResult: &result},
		)
	}

	o.logger.Printf("iteration bound (%d) hit on session %s", o.cfg.Oracle.MaxToolIterations, sess.ID())
	return o.finish(ctx, sess, pending, answerIterationLimit)
}

func (o *Orchestrator) decide(ctx context.Context, turns []models.Turn) (models.Decision, error) {
	dctx, cancel := context.WithTimeout(ctx, o.cfg.Oracle.Timeout)
	defer cancel()
	decision, err := o.oracle.Decide(dctx, turns, o.registry.Specs())
	switch {
	case err != nil && errors.Is(err, context.DeadlineExceeded):
		o.telemetry.RecordOracleRequest("timeout")
	case err != nil:
		o.telemetry.RecordOracleRequest("error")
	case decision.IsAnswer():
		o.telemetry.RecordOracleRequest("answer")
	default:
		o.telemetry.RecordOracleRequest("tool_call")
	}
	return decision, err
}

// executeCall validates and runs one tool call. Invalid calls and provider
// failures become error results; they never abort the loop.
func (o *Orchestrator) executeCall(ctx context.Context, call models.ToolCall) models.ToolResult {
	if err := o.registry.Validate(call.Name, call.Args); err != nil {
		o.logger.Printf("rejected tool call %q: %v", call.Name, err)
		o.telemetry.RecordToolExecution(call.Name, "rejected")
		return models.ToolResult{Name: call.Name, Status: models.ResultError, ErrorDetail: err.Error()}
	}
	tctx, cancel := context.WithTimeout(ctx, o.cfg.General.DefaultTimeout)
	defer cancel()
	content, err := o.registry.Execute(tctx, call.Name, call.Args)
	if err != nil {
		o.logger.Printf("tool %q failed: %v", call.Name, err)
		o.telemetry.RecordToolExecution(call.Name, "error")
		return models.ToolResult{Name: call.Name, Status: models.ResultError, ErrorDetail: err.Error()}
	}
	o.telemetry.RecordToolExecution(call.Name, "success")
	return models.ToolResult{Name: call.Name, Status: models.ResultSuccess, Content: content}
}

// finish commits the turn (user message, tool exchanges, final answer) to
// the session and persists the snapshot.
func (o *Orchestrator) finish(ctx context.Context, sess *session.Session, pending []models.Turn, answer string) (string, error) {
	pending = append(pending, models.Turn{Role: models.RoleAssistant, Content: answer})
	sess.AppendTurns(pending...)
	if err := o.sessions.SaveSession(ctx, sess); err != nil {
		o.logger.Printf("persisting session %s failed: %v", sess.ID(), err)
	}
	return answer, nil
}

// Assess exposes the deterministic rating path used by the direct API
// endpoint and the CLI, bypassing the oracle entirely.
func (o *Orchestrator) Assess(ctx context.Context, args map[string]any) (string, error) {
	const name = "assess_risk_level"
	if err := o.registry.Validate(name, args); err != nil {
		return "", err
	}
	content, err := o.registry.Execute(ctx, name, args)
	if err != nil {
		return "", fmt.Errorf("assessment failed: %w", err)
	}
	return content, nil
}
