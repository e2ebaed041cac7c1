package policy

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

// RiskRuleEvaluator evaluates configured CEL risk rules over report facts,
// with program caching.
type RiskRuleEvaluator struct {
	env      *cel.Env
	mu       sync.RWMutex
	prgCache map[string]cel.Program
}

// NewRiskRuleEvaluator creates an evaluator with the report fact environment.
func NewRiskRuleEvaluator() (*RiskRuleEvaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("report", cel.DynType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return &RiskRuleEvaluator{
		env:      env,
		prgCache: make(map[string]cel.Program),
	}, nil
}

// Evaluate runs one rule against report facts. A rule that does not produce
// a boolean is an evaluation error. Callers treat errors as fail-closed.
func (e *RiskRuleEvaluator) Evaluate(ctx context.Context, rule string, facts map[string]any) (bool, error) {
	_ = ctx
	prg, err := e.program(rule)
	if err != nil {
		return false, err
	}

	out, _, err := prg.Eval(map[string]any{"report": facts})
	if err != nil {
		return false, fmt.Errorf("risk rule %q: %w", rule, err)
	}
	fired, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("risk rule %q: non-boolean result %T", rule, out.Value())
	}
	return fired, nil
}

func (e *RiskRuleEvaluator) program(rule string) (cel.Program, error) {
	e.mu.RLock()
	prg, ok := e.prgCache[rule]
	e.mu.RUnlock()
	if ok {
		return prg, nil
	}

	ast, issues := e.env.Compile(rule)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile risk rule %q: %w", rule, issues.Err())
	}
	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program risk rule %q: %w", rule, err)
	}

	e.mu.Lock()
	e.prgCache[rule] = prg
	e.mu.Unlock()
	return prg, nil
}
