package differ

import (
	"path/filepath"
	"testing"

	"github.com/modguard/modguard/internal/models"
	"github.com/modguard/modguard/internal/report"
)

func reportWith(violations ...models.Violation) *report.Report {
	return report.New("web-app", []string{"typescript"}, 10, violations)
}

var (
	vForbidden = models.Violation{
		File:         "src/ui/admin/Panel.tsx",
		Module:       "ui/admin",
		Type:         models.ViolationForbiddenCaller,
		Message:      "forbidden",
		TargetModule: "services/auth-core",
	}
	vFlag = models.Violation{
		File:    "src/features/premium/Gate.ts",
		Module:  "features/premium",
		Type:    models.ViolationFeatureFlag,
		Message: "missing required feature flags: premium_enabled",
	}
)

func TestCompareNoChanges(t *testing.T) {
	e := NewEngine()

	result, err := e.Compare(reportWith(vForbidden), reportWith(vForbidden))
	if err != nil {
		t.Fatal(err)
	}
	if result.HasChanges {
		t.Errorf("unexpected changes: %+v", result)
	}
	if len(result.Added) != 0 || len(result.Removed) != 0 {
		t.Errorf("added = %v, removed = %v", result.Added, result.Removed)
	}
}

func TestCompareAddedAndRemoved(t *testing.T) {
	e := NewEngine()

	result, err := e.Compare(reportWith(vForbidden), reportWith(vFlag))
	if err != nil {
		t.Fatal(err)
	}
	if !result.HasChanges {
		t.Fatal("expected changes")
	}

	if len(result.Added) != 1 || result.Added[0].Violation.Type != models.ViolationFeatureFlag {
		t.Errorf("added = %+v", result.Added)
	}
	if result.Added[0].DiffType != DiffTypeAdded {
		t.Errorf("diff type = %q", result.Added[0].DiffType)
	}
	if len(result.Removed) != 1 || result.Removed[0].Violation.Type != models.ViolationForbiddenCaller {
		t.Errorf("removed = %+v", result.Removed)
	}
}

func TestCompareReorderIsNoChange(t *testing.T) {
	e := NewEngine()

	result, err := e.Compare(reportWith(vForbidden, vFlag), reportWith(vFlag, vForbidden))
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Added) != 0 || len(result.Removed) != 0 {
		t.Errorf("reorder must not count as added/removed: %+v", result)
	}
}

func TestCompareRunMetadata(t *testing.T) {
	e := NewEngine()

	old := reportWith()
	updated := reportWith()
	updated.FilesChecked = 12

	result, err := e.Compare(old, updated)
	if err != nil {
		t.Fatal(err)
	}
	if !result.HasChanges {
		t.Fatal("expected metadata change to register")
	}

	found := false
	for _, tr := range result.Translations {
		if tr == "Number of files checked changed." {
			found = true
		}
	}
	if !found {
		t.Errorf("translations = %v", result.Translations)
	}
}

func TestComputeDiffFromFiles(t *testing.T) {
	e := NewEngine()
	dir := t.TempDir()

	oldPath := filepath.Join(dir, "old.json")
	newPath := filepath.Join(dir, "new.json")
	if err := report.Save(reportWith(vForbidden), oldPath); err != nil {
		t.Fatal(err)
	}
	if err := report.Save(reportWith(), newPath); err != nil {
		t.Fatal(err)
	}

	result, err := e.ComputeDiff(oldPath, newPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Removed) != 1 {
		t.Errorf("removed = %+v", result.Removed)
	}

	if _, err := e.ComputeDiff(filepath.Join(dir, "missing.json"), newPath); err == nil {
		t.Error("expected error for missing report")
	}
}

func TestGetSeverity(t *testing.T) {
	tests := []struct {
		translation string
		want        SeverityLevel
	}{
		{"New violation introduced.", SeverityCritical},
		{"Violation resolved.", SeveritySafe},
		{"Warning cleared.", SeveritySafe},
		{"Number of files checked changed.", SeverityModerate},
	}
	for _, tt := range tests {
		if got := GetSeverity(tt.translation); got != tt.want {
			t.Errorf("GetSeverity(%q) = %d, want %d", tt.translation, got, tt.want)
		}
	}
}
