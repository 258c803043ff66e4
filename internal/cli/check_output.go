package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modguard/modguard/internal/models"
)

// CheckReport output structure
type CheckReport struct {
	Policy       string             `json:"policy"`
	Sources      []string           `json:"sources,omitempty"`
	FilesChecked int                `json:"filesChecked"`
	Summary      ViolationSummary   `json:"summary"`
	Violations   []models.Violation `json:"violations"`
	Warnings     []string           `json:"warnings,omitempty"`
	Suppressed   int                `json:"suppressed,omitempty"`
	Baseline     string             `json:"baseline,omitempty"`
	Outcome      string             `json:"outcome"` // "PASS" or "FAIL"
}

// ViolationSummary counts by type
type ViolationSummary struct {
	ForbiddenCaller      int `json:"forbiddenCaller"`
	MissingAllowedCaller int `json:"missingAllowedCaller"`
	FeatureFlag          int `json:"featureFlag"`
	Permission           int `json:"permission"`
	KillPattern          int `json:"killPattern"`
	CustomRule           int `json:"customRule"`
	Total                int `json:"total"`
}

// BuildCheckReport from a check run
func BuildCheckReport(
	policyName string,
	sources []string,
	filesChecked int,
	violations []models.Violation,
	warnings []string,
	suppressed int,
	baselinePath string,
) *CheckReport {
	if violations == nil {
		violations = []models.Violation{}
	}

	r := &CheckReport{
		Policy:       policyName,
		Sources:      sources,
		FilesChecked: filesChecked,
		Violations:   violations,
		Warnings:     warnings,
		Suppressed:   suppressed,
		Baseline:     baselinePath,
		Outcome:      "PASS",
	}

	for _, v := range violations {
		switch v.Type {
		case models.ViolationForbiddenCaller:
			r.Summary.ForbiddenCaller++
		case models.ViolationMissingAllowedCaller:
			r.Summary.MissingAllowedCaller++
		case models.ViolationFeatureFlag:
			r.Summary.FeatureFlag++
		case models.ViolationPermission:
			r.Summary.Permission++
		case models.ViolationKillPattern:
			r.Summary.KillPattern++
		case models.ViolationCustomRule:
			r.Summary.CustomRule++
		}
		r.Summary.Total++
	}

	if r.Summary.Total > 0 {
		r.Outcome = "FAIL"
	}

	return r
}

// FormatTextOutput human readable
func FormatTextOutput(result *CheckReport) string {
	var sb strings.Builder

	if result.Outcome == "PASS" {
		sb.WriteString(fmt.Sprintf("%smodguard check: PASS%s (policy=%s)\n",
			colorGreen, colorReset, result.Policy))
	} else {
		sb.WriteString(fmt.Sprintf("%smodguard check: FAIL%s (policy=%s)\n",
			colorRed, colorReset, result.Policy))
	}

	sb.WriteString(fmt.Sprintf("Files checked: %d", result.FilesChecked))
	if len(result.Sources) > 0 {
		sb.WriteString(fmt.Sprintf(" (scanners: %s)", strings.Join(result.Sources, ", ")))
	}
	sb.WriteString("\n")
	if result.Suppressed > 0 {
		sb.WriteString(fmt.Sprintf("Suppressed by baseline: %d (%s)\n", result.Suppressed, result.Baseline))
	}
	sb.WriteString("\n")

	if result.Summary.Total > 0 {
		sb.WriteString(fmt.Sprintf("%sVIOLATIONS (%d)%s\n", colorRed, result.Summary.Total, colorReset))
		// Violations arrive in canonical order; group consecutive runs by
		// file without re-sorting.
		lastFile := ""
		for _, v := range result.Violations {
			if v.File != lastFile {
				lastFile = v.File
				sb.WriteString(fmt.Sprintf("\n  %s (module: %s)\n", v.File, v.Module))
			}
			sb.WriteString(fmt.Sprintf("%s  - [%s] %s%s\n", colorRed, v.Type, v.Message, colorReset))
			if v.Details != "" {
				sb.WriteString(fmt.Sprintf("      %s\n", v.Details))
			}
		}
		sb.WriteString("\n")
	} else {
		sb.WriteString(fmt.Sprintf("%s✓ No violations%s\n\n", colorGreen, colorReset))
	}

	if len(result.Warnings) > 0 {
		sb.WriteString(fmt.Sprintf("%sWARNINGS (%d)%s\n", colorYellow, len(result.Warnings), colorReset))
		for _, w := range result.Warnings {
			sb.WriteString(fmt.Sprintf("%s- %s%s\n", colorYellow, w, colorReset))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// FormatJSONOutput raw json
func FormatJSONOutput(result *CheckReport) ([]byte, error) {
	return json.MarshalIndent(result, "", "  ")
}
