// Package caseid issues unique case identifiers for incident reports.
package caseid

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Generator produces case IDs of the form CASE_<unix-seconds>_<16 hex>.
// The suffix carries enough randomness that collisions stay negligible
// across restarts, not just within one process. Stateless and safe under
// concurrent use.
type Generator struct{}

// NewGenerator returns a case ID generator.
func NewGenerator() *Generator { return &Generator{} }

// Next returns a fresh case ID. IDs are never reused.
func (g *Generator) Next() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	return fmt.Sprintf("CASE_%d_%s", time.Now().Unix(), strings.ToUpper(suffix))
}
