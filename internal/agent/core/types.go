package core

import (
	"context"

	"github.com/guardline/guardline/internal/capability"
	"github.com/guardline/guardline/models"
)

// Oracle is the external decision provider consulted each iteration of the
// dispatch loop. Implementations are expected to be non-deterministic; the
// orchestrator's handling of any returned decision is not.
type Oracle interface {
	Decide(ctx context.Context, turns []models.Turn, specs []capability.Spec) (models.Decision, error)
}

// Degraded terminal answers. The loop never surfaces raw provider faults to
// the user; it resolves every turn to an answer, possibly one of these.
const (
	answerOracleUnavailable = "I wasn't able to reach the decision service just now, so I can't complete that request. " +
		"If you are in immediate danger, call your local emergency number (911/112)."
	answerIterationLimit = "I wasn't able to complete that request: it needed more lookups than allowed in a single turn. " +
		"Please narrow the question, or if you are in immediate danger call your local emergency number (911/112)."
)
