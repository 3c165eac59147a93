// Package condexpr compiles boolean CEL conditions over a fixed set of typed
// variables, such as badge rules over user statistics.
package condexpr

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/cel-go/cel"
)

// ValueKind describes the type of a condition variable.
type ValueKind string

const (
	KindNumber ValueKind = "number"
	KindBool   ValueKind = "bool"
	KindString ValueKind = "string"
)

// ErrEmptyCondition is returned when compiling a blank expression.
var ErrEmptyCondition = errors.New("condition must not be empty")

// Env declares the variables conditions may reference.
type Env struct {
	env  *cel.Env
	vars map[string]ValueKind
}

// NewEnv builds an environment with the given variables. Numbers are doubles and
// compare freely against integer literals.
func NewEnv(vars map[string]ValueKind) (*Env, error) {
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)

	opts := make([]cel.EnvOption, 0, len(vars)+1)
	for _, name := range names {
		celType, err := celTypeForKind(vars[name])
		if err != nil {
			return nil, fmt.Errorf("variable %q: %w", name, err)
		}
		opts = append(opts, cel.Variable(name, celType))
	}
	opts = append(opts, cel.CrossTypeNumericComparisons(true))

	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("build cel env: %w", err)
	}
	return &Env{env: env, vars: vars}, nil
}

func celTypeForKind(kind ValueKind) (*cel.Type, error) {
	switch kind {
	case KindNumber:
		return cel.DoubleType, nil
	case KindBool:
		return cel.BoolType, nil
	case KindString:
		return cel.StringType, nil
	default:
		return nil, fmt.Errorf("unsupported kind %q", kind)
	}
}

// Condition is a compiled boolean expression.
type Condition struct {
	source string
	prg    cel.Program
}

// Compile parses and type-checks expr, which must evaluate to a bool.
func (e *Env) Compile(expr string) (*Condition, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, ErrEmptyCondition
	}
	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("invalid condition %q: %w", expr, issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("condition %q must be boolean, got %s", expr, ast.OutputType())
	}
	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("plan condition %q: %w", expr, err)
	}
	return &Condition{source: expr, prg: prg}, nil
}

// String returns the source expression.
func (c *Condition) String() string {
	return c.source
}

// Eval runs the condition. Every declared variable must be supplied.
func (c *Condition) Eval(vars map[string]any) (bool, error) {
	out, _, err := c.prg.Eval(vars)
	if err != nil {
		return false, fmt.Errorf("evaluate %q: %w", c.source, err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("condition %q produced %T", c.source, out.Value())
	}
	return result, nil
}
