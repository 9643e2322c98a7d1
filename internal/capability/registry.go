package capability

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ParamType enumerates the argument types a capability may declare.
type ParamType string

const (
	TypeString  ParamType = "string"
	TypeNumber  ParamType = "number"
	TypeInteger ParamType = "integer"
	TypeBoolean ParamType = "boolean"
)

// Param declares one argument of a capability.
type Param struct {
	Name        string
	Type        ParamType
	Description string
	Required    bool
}

// RunFunc executes a capability against validated arguments. Provider
// failures come back as errors; they never escape as faults.
type RunFunc func(ctx context.Context, args map[string]any) (string, error)

// Spec describes one registered capability.
type Spec struct {
	Name        string
	Description string
	Params      []Param
	Transient   bool // network-backed, may fail transiently
	Run         RunFunc
}

// ErrUnavailable marks a capability whose provider is not configured.
var ErrUnavailable = errors.New("feature unavailable: provider not configured")

// UnavailableRun returns a RunFunc for capabilities whose optional provider
// credential is absent. The registry entry stays visible to the oracle so
// the loop degrades to a clean error result instead of crashing.
func UnavailableRun(feature string) RunFunc {
	return func(context.Context, map[string]any) (string, error) {
		return "", fmt.Errorf("%s: %w", feature, ErrUnavailable)
	}
}

// UnknownCapabilityError reports a tool call naming an unregistered capability.
type UnknownCapabilityError struct {
	Name string
}

func (e *UnknownCapabilityError) Error() string {
	return fmt.Sprintf("unknown capability %q", e.Name)
}

// SchemaViolationError reports arguments that fail a capability's schema.
type SchemaViolationError struct {
	Name    string
	Missing []string
	Invalid []string
}

func (e *SchemaViolationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid type: "+strings.Join(e.Invalid, ", "))
	}
	return fmt.Sprintf("capability %q arguments rejected (%s)", e.Name, strings.Join(parts, "; "))
}

// Registry maps capability names to their specs. Read-only after startup.
type Registry struct {
	specs map[string]Spec
}

// NewRegistry validates specs and builds the registry.
func NewRegistry(specs []Spec) (*Registry, error) {
	reg := &Registry{specs: make(map[string]Spec, len(specs))}
	for _, sp := range specs {
		if strings.TrimSpace(sp.Name) == "" {
			return nil, fmt.Errorf("capability with empty name")
		}
		if sp.Run == nil {
			return nil, fmt.Errorf("capability %q has no run function", sp.Name)
		}
		if _, dup := reg.specs[sp.Name]; dup {
			return nil, fmt.Errorf("capability %q registered twice", sp.Name)
		}
		for _, p := range sp.Params {
			switch p.Type {
			case TypeString, TypeNumber, TypeInteger, TypeBoolean:
			default:
				return nil, fmt.Errorf("capability %q param %q has unsupported type %q", sp.Name, p.Name, p.Type)
			}
		}
		reg.specs[sp.Name] = sp
	}
	return reg, nil
}

// Lookup returns the spec for a capability name.
func (r *Registry) Lookup(name string) (Spec, bool) {
	if r == nil {
		return Spec{}, false
	}
	sp, ok := r.specs[name]
	return sp, ok
}

// Names returns registered capability names, sorted.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.specs))
	for name := range r.specs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Specs returns all registered specs, ordered by name.
func (r *Registry) Specs() []Spec {
	out := make([]Spec, 0, len(r.specs))
	for _, name := range r.Names() {
		out = append(out, r.specs[name])
	}
	return out
}

// Validate checks a tool call against the capability's declared schema
// before anything executes. Unknown names and schema violations are the
// oracle's fault, never the provider's, so no provider call happens here.
func (r *Registry) Validate(name string, args map[string]any) error {
	sp, ok := r.Lookup(name)
	if !ok {
		return &UnknownCapabilityError{Name: name}
	}
	violation := &SchemaViolationError{Name: name}
	for _, p := range sp.Params {
		v, present := args[p.Name]
		if !present || v == nil {
			if p.Required {
				violation.Missing = append(violation.Missing, p.Name)
			}
			continue
		}
		if !typeMatches(p.Type, v) {
			violation.Invalid = append(violation.Invalid, p.Name)
		}
	}
	if len(violation.Missing) > 0 || len(violation.Invalid) > 0 {
		return violation
	}
	return nil
}

// Execute runs a validated capability. Panics in provider code are caught
// and surfaced as errors so a single tool call can never take down the
// orchestrator loop.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (content string, err error) {
	sp, ok := r.Lookup(name)
	if !ok {
		return "", &UnknownCapabilityError{Name: name}
	}
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("capability %q panicked: %v", name, rec)
		}
	}()
	return sp.Run(ctx, args)
}

// ParametersSchema renders the spec's parameters as a JSON-schema object
// for the oracle's tool declaration.
func (s Spec) ParametersSchema() map[string]any {
	props := make(map[string]any, len(s.Params))
	var required []string
	for _, p := range s.Params {
		props[p.Name] = map[string]any{
			"type":        string(p.Type),
			"description": p.Description,
		}
		if p.Required {
			required = append(required, p.Name)
		}
	}
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func typeMatches(t ParamType, v any) bool {
	switch t {
	case TypeString:
		_, ok := v.(string)
		return ok
	case TypeBoolean:
		_, ok := v.(bool)
		return ok
	case TypeNumber:
		switch v.(type) {
		case float64, float32, int, int32, int64:
			return true
		}
		return false
	case TypeInteger:
		switch n := v.(type) {
		case int, int32, int64:
			_ = n
			return true
		case float64:
			// JSON numbers decode as float64; accept integral values.
			return n == float64(int64(n))
		}
		return false
	}
	return false
}

// String extracts a string argument, empty when absent.
func String(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

// Int extracts an integer argument, defaulting when absent.
func Int(args map[string]any, key string, def int) int {
	switch n := args[key].(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return def
}
