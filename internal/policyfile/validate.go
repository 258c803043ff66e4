package policyfile

import (
	"strconv"

	"github.com/modguard/modguard/internal/models"
)

var validSeverities = map[string]bool{
	"":      true,
	"warn":  true,
	"error": true,
}

// validate applies the semantic schema checks that strict decoding cannot
// express. Returns one FieldError per offending field.
func validate(p *models.Policy) []FieldError {
	var errs []FieldError

	if len(p.Modules) == 0 {
		errs = append(errs, FieldError{Field: "modules", Msg: "at least one module is required"})
		return errs
	}

	for _, id := range p.ModuleOrder {
		mod := p.Modules[id]
		prefix := "modules." + id

		if id == "" {
			errs = append(errs, FieldError{Field: "modules", Msg: "empty module identifier"})
			continue
		}
		if mod == nil {
			errs = append(errs, FieldError{Field: prefix, Msg: "module body is required"})
			continue
		}
		if len(mod.OwnsPaths) == 0 {
			errs = append(errs, FieldError{Field: prefix + ".owns_paths", Msg: "at least one ownership glob is required"})
		}
		for i, g := range mod.OwnsPaths {
			if g == "" {
				errs = append(errs, FieldError{Field: fieldIndex(prefix+".owns_paths", i), Msg: "empty glob"})
			}
		}
		for i, g := range mod.AllowedCallers {
			if g == "" {
				errs = append(errs, FieldError{Field: fieldIndex(prefix+".allowed_callers", i), Msg: "empty glob"})
			}
		}
		for i, g := range mod.ForbiddenCallers {
			if g == "" {
				errs = append(errs, FieldError{Field: fieldIndex(prefix+".forbidden_callers", i), Msg: "empty glob"})
			}
		}
		for i, r := range mod.CustomRules {
			rulePrefix := fieldIndex(prefix+".custom_rules", i)
			if r.Name == "" {
				errs = append(errs, FieldError{Field: rulePrefix + ".name", Msg: "rule name is required"})
			}
			if r.Expr == "" {
				errs = append(errs, FieldError{Field: rulePrefix + ".expr", Msg: "rule expression is required"})
			}
			if !validSeverities[r.Severity] {
				errs = append(errs, FieldError{Field: rulePrefix + ".severity", Msg: "severity must be warn or error"})
			}
		}
	}

	for i, kp := range p.GlobalKillPatterns {
		if kp.Pattern == "" {
			errs = append(errs, FieldError{Field: fieldIndex("global_kill_patterns", i) + ".pattern", Msg: "pattern is required"})
		}
	}

	return errs
}

func fieldIndex(prefix string, i int) string {
	return prefix + "[" + strconv.Itoa(i) + "]"
}
