// Package baseline records known violations so existing debt can be
// suppressed while new violations still fail a run. A baseline entry is a
// content fingerprint, so renaming a module or editing a message retires
// the old entry automatically.
package baseline

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/modguard/modguard/internal/models"
)

const Version = "1"

// Entry preserves enough context to review a suppressed violation without
// re-running the check that produced it.
type Entry struct {
	File    string               `json:"file"`
	Module  string               `json:"module"`
	Type    models.ViolationType `json:"type"`
	Message string               `json:"message"`
}

// Baseline is the on-disk suppression set.
type Baseline struct {
	Version string `json:"version"`
	Policy  string `json:"policy"`
	// Entries is keyed by fingerprint. Go's JSON encoder emits map keys
	// sorted, so saves are byte-stable for git diffs.
	Entries map[string]Entry `json:"entries"`
}

// Fingerprint hashes the identity of a violation: file, module, type and
// message, canonicalized with sorted keys.
func Fingerprint(v models.Violation) string {
	canonical, _ := json.Marshal(map[string]string{
		"file":    v.File,
		"module":  v.Module,
		"type":    string(v.Type),
		"message": v.Message,
		"target":  v.TargetModule,
	})
	hash := sha256.Sum256(canonical)
	return fmt.Sprintf("sha256:%x", hash)
}

// Build a baseline from a check run's violations.
func Build(policyName string, violations []models.Violation) *Baseline {
	b := &Baseline{
		Version: Version,
		Policy:  policyName,
		Entries: make(map[string]Entry, len(violations)),
	}
	for _, v := range violations {
		b.Entries[Fingerprint(v)] = Entry{
			File:    v.File,
			Module:  v.Module,
			Type:    v.Type,
			Message: v.Message,
		}
	}
	return b
}

// Filter splits violations into new ones and baseline-suppressed ones,
// preserving order within each split.
func Filter(violations []models.Violation, b *Baseline) (kept, suppressed []models.Violation) {
	if b == nil || len(b.Entries) == 0 {
		return violations, nil
	}
	for _, v := range violations {
		if _, ok := b.Entries[Fingerprint(v)]; ok {
			suppressed = append(suppressed, v)
		} else {
			kept = append(kept, v)
		}
	}
	return kept, suppressed
}

// Stale returns fingerprints recorded in the baseline that no current
// violation produces, sorted. These entries are fixed debt and can be
// pruned by rebuilding the baseline.
func Stale(b *Baseline, violations []models.Violation) []string {
	current := make(map[string]bool, len(violations))
	for _, v := range violations {
		current[Fingerprint(v)] = true
	}

	var stale []string
	for fp := range b.Entries {
		if !current[fp] {
			stale = append(stale, fp)
		}
	}
	sort.Strings(stale)
	return stale
}
