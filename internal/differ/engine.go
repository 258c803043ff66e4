// Package differ compares two check reports: which violations appeared,
// which were resolved, and what else about the run changed. Used by CI to
// gate on regressions instead of absolute violation counts.
package differ

import (
	"encoding/json"
	"fmt"

	"github.com/modguard/modguard/internal/baseline"
	"github.com/modguard/modguard/internal/models"
	"github.com/modguard/modguard/internal/report"
	"github.com/wI2L/jsondiff"
)

// DiffType indicates what kind of difference was detected
type DiffType string

const (
	DiffTypeAdded    DiffType = "added"
	DiffTypeRemoved  DiffType = "removed"
	DiffTypeNoChange DiffType = "no_change"
)

// ViolationDiff is one violation that appeared in or disappeared from
// the newer report.
type ViolationDiff struct {
	Fingerprint string
	DiffType    DiffType
	Violation   models.Violation
}

// Result contains the complete diff between two reports.
type Result struct {
	HasChanges bool
	// Added lists violations present only in the newer report, in the
	// newer report's order. Removed lists resolved ones, in the older
	// report's order.
	Added   []ViolationDiff
	Removed []ViolationDiff
	// Patches is the raw structural diff for machine consumers.
	Patches jsondiff.Patch
	// Translations are human-readable run-level change notes.
	Translations []string
}

// Engine performs diff operations
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// ComputeDiff loads two report files and compares newer against older.
func (e *Engine) ComputeDiff(oldPath, newPath string) (*Result, error) {
	oldReport, err := report.Load(oldPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load old report: %w", err)
	}
	newReport, err := report.Load(newPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load new report: %w", err)
	}
	return e.Compare(oldReport, newReport)
}

// Compare reports. Violation identity is the baseline fingerprint, so a
// violation that merely moved position in the report is no change.
func (e *Engine) Compare(oldReport, newReport *report.Report) (*Result, error) {
	oldSet := fingerprintSet(oldReport.Violations)
	newSet := fingerprintSet(newReport.Violations)

	result := &Result{}

	for _, v := range oldReport.Violations {
		fp := baseline.Fingerprint(v)
		if _, found := newSet[fp]; !found {
			result.Removed = append(result.Removed, ViolationDiff{
				Fingerprint: fp,
				DiffType:    DiffTypeRemoved,
				Violation:   v,
			})
		}
	}

	for _, v := range newReport.Violations {
		fp := baseline.Fingerprint(v)
		if _, found := oldSet[fp]; !found {
			result.Added = append(result.Added, ViolationDiff{
				Fingerprint: fp,
				DiffType:    DiffTypeAdded,
				Violation:   v,
			})
		}
	}

	patches, err := e.computePatches(oldReport, newReport)
	if err != nil {
		return nil, err
	}
	result.Patches = patches
	result.Translations = Translate(patches)

	result.HasChanges = len(result.Added) > 0 || len(result.Removed) > 0 || len(result.Translations) > 0

	return result, nil
}

func (e *Engine) computePatches(oldReport, newReport *report.Report) (jsondiff.Patch, error) {
	oldJSON, err := json.Marshal(oldReport)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal old report: %w", err)
	}
	newJSON, err := json.Marshal(newReport)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal new report: %w", err)
	}

	patches, err := jsondiff.CompareJSON(oldJSON, newJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to compute diff: %w", err)
	}
	return patches, nil
}

func fingerprintSet(violations []models.Violation) map[string]bool {
	set := make(map[string]bool, len(violations))
	for _, v := range violations {
		set[baseline.Fingerprint(v)] = true
	}
	return set
}
