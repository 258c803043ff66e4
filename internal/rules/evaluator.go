// Package rules decides edge legality and per-file requirements for a
// policy. The evaluator never raises for well-formed input: absence of a
// violation and absence of governance are both valid, error-free outcomes.
package rules

import (
	"fmt"
	"strings"

	"github.com/modguard/modguard/internal/models"
	"github.com/modguard/modguard/internal/pattern"
)

// Evaluator applies caller rules and declarative requirements.
type Evaluator struct {
	matcher *pattern.Matcher
}

// NewEvaluator sharing the checker's compiled-pattern cache.
func NewEvaluator(matcher *pattern.Matcher) *Evaluator {
	return &Evaluator{matcher: matcher}
}

// EvaluateEdge checks a (caller module, target module) import edge against
// the target's caller rules. Deny overrides allow: a caller matching both
// lists gets exactly one forbidden_caller violation. Returns nil when the
// edge is legal.
func (e *Evaluator) EvaluateEdge(file, caller, target string, targetPolicy *models.PolicyModule) *models.Violation {
	if pat, ok := e.matcher.MatchAny(targetPolicy.ForbiddenCallers, caller); ok {
		return &models.Violation{
			File:         file,
			Module:       caller,
			Type:         models.ViolationForbiddenCaller,
			Message:      fmt.Sprintf("module %q is forbidden from calling %q (matched pattern %q)", caller, target, pat),
			TargetModule: target,
		}
	}

	// Declaring any allowed_callers makes the list exhaustive.
	if len(targetPolicy.AllowedCallers) > 0 {
		if _, ok := e.matcher.MatchAny(targetPolicy.AllowedCallers, caller); !ok {
			return &models.Violation{
				File:         file,
				Module:       caller,
				Type:         models.ViolationMissingAllowedCaller,
				Message:      fmt.Sprintf("module %q is not in the allowed callers of %q", caller, target),
				Details:      fmt.Sprintf("allowed: %s", strings.Join(targetPolicy.AllowedCallers, ", ")),
				TargetModule: target,
			}
		}
	}

	return nil
}

// EvaluateRequirements checks a file's declarative requirements against
// its owning module: required feature flags, required permissions, and
// kill patterns (module-level plus policy-wide). One violation per
// requirement category, listing every missing item; one violation per
// matched kill pattern.
func (e *Evaluator) EvaluateRequirements(file *models.ScanFile, owner string, ownerPolicy *models.PolicyModule, global []models.KillPattern) []models.Violation {
	var violations []models.Violation

	if missing := missingItems(ownerPolicy.FeatureFlags, file.FeatureFlags); len(missing) > 0 {
		violations = append(violations, models.Violation{
			File:    file.Path,
			Module:  owner,
			Type:    models.ViolationFeatureFlag,
			Message: fmt.Sprintf("missing required feature flags: %s", strings.Join(missing, ", ")),
		})
	}

	if missing := missingItems(ownerPolicy.RequiresPermissions, file.Permissions); len(missing) > 0 {
		violations = append(violations, models.Violation{
			File:    file.Path,
			Module:  owner,
			Type:    models.ViolationPermission,
			Message: fmt.Sprintf("missing required permissions: %s", strings.Join(missing, ", ")),
		})
	}

	violations = append(violations, e.killPatternViolations(file, owner, ownerPolicy, global)...)

	return violations
}

// killPatternViolations trusts the scanner's warnings list as the sole
// evidence source; no source text is re-scanned here.
func (e *Evaluator) killPatternViolations(file *models.ScanFile, owner string, ownerPolicy *models.PolicyModule, global []models.KillPattern) []models.Violation {
	var violations []models.Violation

	check := func(name, description string) {
		for _, warning := range file.Warnings {
			if strings.Contains(warning, name) {
				v := models.Violation{
					File:    file.Path,
					Module:  owner,
					Type:    models.ViolationKillPattern,
					Message: fmt.Sprintf("kill pattern %q matched warning: %s", name, warning),
					Details: description,
				}
				violations = append(violations, v)
				return
			}
		}
	}

	for _, name := range ownerPolicy.KillPatterns {
		check(name, "")
	}
	for _, kp := range global {
		check(kp.Pattern, kp.Description)
	}

	return violations
}

// missingItems returns required entries absent from present, preserving
// the declared order.
func missingItems(required, present []string) []string {
	if len(required) == 0 {
		return nil
	}
	have := make(map[string]bool, len(present))
	for _, p := range present {
		have[p] = true
	}
	var missing []string
	for _, r := range required {
		if !have[r] {
			missing = append(missing, r)
		}
	}
	return missing
}
