package rules

import (
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/modguard/modguard/internal/models"
)

// CELEngine evaluates custom module rules written as CEL expressions over
// a per-file input map.
type CELEngine struct {
	env *cel.Env
}

func NewCELEngine() (*CELEngine, error) {
	env, err := cel.NewEnv(
		cel.Variable("file", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return &CELEngine{env: env}, nil
}

// RuleResult is one custom rule outcome for one file.
type RuleResult struct {
	RuleName   string
	Passed     bool
	FailureMsg string
}

// EvaluateRules runs each rule against the input map. Compile and
// evaluation errors surface as failed results, never as panics.
func (e *CELEngine) EvaluateRules(ruleset []models.CustomRule, input map[string]any) []RuleResult {
	results := make([]RuleResult, 0, len(ruleset))
	for _, rule := range ruleset {
		results = append(results, e.evaluateRule(rule, input))
	}
	return results
}

func (e *CELEngine) evaluateRule(rule models.CustomRule, input map[string]any) RuleResult {
	ast, issues := e.env.Compile(rule.Expr)
	if issues != nil && issues.Err() != nil {
		return RuleResult{
			RuleName:   rule.Name,
			Passed:     false,
			FailureMsg: fmt.Sprintf("CEL compile error: %v", issues.Err()),
		}
	}

	prg, err := e.env.Program(ast)
	if err != nil {
		return RuleResult{
			RuleName:   rule.Name,
			Passed:     false,
			FailureMsg: fmt.Sprintf("CEL program error: %v", err),
		}
	}

	out, _, err := prg.Eval(map[string]any{"file": input})
	if err != nil {
		return RuleResult{
			RuleName:   rule.Name,
			Passed:     false,
			FailureMsg: fmt.Sprintf("CEL evaluation error: %v", err),
		}
	}

	passed, ok := out.Value().(bool)
	if !ok {
		return RuleResult{
			RuleName:   rule.Name,
			Passed:     false,
			FailureMsg: fmt.Sprintf("rule expression must return boolean, got %T", out.Value()),
		}
	}

	result := RuleResult{RuleName: rule.Name, Passed: passed}
	if !passed {
		result.FailureMsg = rule.FailureMsg
	}
	return result
}

// CompileAndValidate compiles every custom rule in the policy so malformed
// expressions are rejected at load time, not during a check run.
func (e *CELEngine) CompileAndValidate(p *models.Policy) error {
	var errs []string

	for _, id := range p.ModuleOrder {
		for _, rule := range p.Modules[id].CustomRules {
			_, issues := e.env.Compile(rule.Expr)
			if issues != nil && issues.Err() != nil {
				errs = append(errs, fmt.Sprintf("module %q rule %q: %v", id, rule.Name, issues.Err()))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("custom rule validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}
