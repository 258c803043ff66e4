package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTempPolicy(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "modguard.yaml")
	content := `name: acme
modules:
  ui/admin:
    owns_paths:
      - "src/ui/admin/**"
  services/auth-core:
    owns_paths:
      - "src/services/auth/**"
    forbidden_callers:
      - "ui/**"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write policy: %v", err)
	}
	return path
}

func TestLoadPolicyWithPreset_PlainLoad(t *testing.T) {
	path := writeTempPolicy(t)

	policy, err := loadPolicyWithPreset(path, "")
	if err != nil {
		t.Fatalf("loadPolicyWithPreset failed: %v", err)
	}
	if policy.Name != "acme" {
		t.Errorf("name = %q, want acme", policy.Name)
	}
	if len(policy.GlobalKillPatterns) != 0 {
		t.Errorf("expected no kill patterns without a preset, got %d", len(policy.GlobalKillPatterns))
	}
}

func TestLoadPolicyWithPreset_MergesPreset(t *testing.T) {
	path := writeTempPolicy(t)

	policy, err := loadPolicyWithPreset(path, "baseline")
	if err != nil {
		t.Fatalf("loadPolicyWithPreset failed: %v", err)
	}
	if len(policy.GlobalKillPatterns) == 0 {
		t.Error("baseline preset should contribute global kill patterns")
	}
}

func TestLoadPolicyWithPreset_UnknownPreset(t *testing.T) {
	path := writeTempPolicy(t)

	_, err := loadPolicyWithPreset(path, "nonexistent")
	if err == nil {
		t.Fatal("expected error for unknown preset")
	}
	if !strings.Contains(err.Error(), "unknown preset") {
		t.Errorf("error should name the unknown preset, got: %v", err)
	}
	if !strings.Contains(err.Error(), "baseline") {
		t.Errorf("error should list available presets, got: %v", err)
	}
}

func TestLoadMergedScan_DirAndFiles(t *testing.T) {
	dir := t.TempDir()

	tsDoc := `{"language":"typescript","files":[{"path":"src/a.ts"}]}`
	pyDoc := `{"language":"python","files":[{"path":"src/b.py"}]}`
	if err := os.WriteFile(filepath.Join(dir, "ts.json"), []byte(tsDoc), 0644); err != nil {
		t.Fatal(err)
	}
	extra := filepath.Join(t.TempDir(), "py.json")
	if err := os.WriteFile(extra, []byte(pyDoc), 0644); err != nil {
		t.Fatal(err)
	}

	merged, err := loadMergedScan(dir, []string{extra})
	if err != nil {
		t.Fatalf("loadMergedScan failed: %v", err)
	}

	if len(merged.Files) != 2 {
		t.Fatalf("files = %d, want 2", len(merged.Files))
	}
	// Directory documents load before explicit paths.
	if merged.Files[0].Path != "src/a.ts" || merged.Files[1].Path != "src/b.py" {
		t.Errorf("unexpected order: %q, %q", merged.Files[0].Path, merged.Files[1].Path)
	}
	if len(merged.Sources) != 2 || merged.Sources[0] != "typescript" || merged.Sources[1] != "python" {
		t.Errorf("sources = %v", merged.Sources)
	}
}

func TestLoadMergedScan_MissingDir(t *testing.T) {
	if _, err := loadMergedScan(filepath.Join(t.TempDir(), "missing"), nil); err == nil {
		t.Fatal("expected error for missing scan directory")
	}
}
