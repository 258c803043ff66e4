// Package report defines the persisted output of a check run. Reports are
// plain JSON so CI systems can archive, diff, and post-process them.
package report

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/modguard/modguard/internal/models"
)

const Version = "1"

// Report is one check run over one merged scan.
type Report struct {
	Version      string             `json:"version"`
	Policy       string             `json:"policy"`
	Sources      []string           `json:"sources,omitempty"`
	FilesChecked int                `json:"files_checked"`
	Violations   []models.Violation `json:"violations"`
	// Warnings carries non-fatal findings: ambiguous ownership and
	// warn-severity rule failures.
	Warnings   []string `json:"warnings,omitempty"`
	Suppressed int      `json:"suppressed,omitempty"`
}

// New assembles a report. Violations must already be in canonical order;
// the report never re-sorts.
func New(policyName string, sources []string, filesChecked int, violations []models.Violation) *Report {
	if violations == nil {
		violations = []models.Violation{}
	}
	return &Report{
		Version:      Version,
		Policy:       policyName,
		Sources:      sources,
		FilesChecked: filesChecked,
		Violations:   violations,
	}
}

// Save report as indented JSON with a trailing newline.
func Save(r *Report, path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// Load report
func Load(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}

	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse report %s: %w", path, err)
	}
	if r.Version == "" {
		return nil, fmt.Errorf("unable to determine report version: %s", path)
	}
	return &r, nil
}
