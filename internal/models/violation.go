package models

// ViolationType enum
type ViolationType string

const (
	ViolationForbiddenCaller      ViolationType = "forbidden_caller"
	ViolationMissingAllowedCaller ViolationType = "missing_allowed_caller"
	ViolationFeatureFlag          ViolationType = "feature_flag"
	ViolationPermission           ViolationType = "permission"
	ViolationKillPattern          ViolationType = "kill_pattern"
	ViolationCustomRule           ViolationType = "custom_rule"
)

// violationRank fixes the within-file ordering of the final report.
var violationRank = map[ViolationType]int{
	ViolationForbiddenCaller:      0,
	ViolationMissingAllowedCaller: 1,
	ViolationFeatureFlag:          2,
	ViolationPermission:           3,
	ViolationKillPattern:          4,
	ViolationCustomRule:           5,
}

// Rank returns the canonical sort position of a violation type.
func (t ViolationType) Rank() int {
	if r, ok := violationRank[t]; ok {
		return r
	}
	return len(violationRank)
}

// Violation is a single policy breach. Produced by the rule evaluator,
// consumed only by the reporter.
type Violation struct {
	File         string        `json:"file"`
	Module       string        `json:"module,omitempty"`
	Type         ViolationType `json:"type"`
	Message      string        `json:"message"`
	Details      string        `json:"details,omitempty"`
	TargetModule string        `json:"target_module,omitempty"`
}
