package baseline

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/modguard/modguard/internal/models"
)

func sampleViolations() []models.Violation {
	return []models.Violation{
		{
			File:         "src/ui/admin/Panel.tsx",
			Module:       "ui/admin",
			Type:         models.ViolationForbiddenCaller,
			Message:      `module "ui/admin" is forbidden from calling "services/auth-core"`,
			TargetModule: "services/auth-core",
		},
		{
			File:    "src/features/premium/Gate.ts",
			Module:  "features/premium",
			Type:    models.ViolationFeatureFlag,
			Message: "missing required feature flags: premium_enabled",
		},
	}
}

func TestFingerprintStability(t *testing.T) {
	vs := sampleViolations()
	if Fingerprint(vs[0]) != Fingerprint(vs[0]) {
		t.Error("fingerprint not deterministic")
	}
	if Fingerprint(vs[0]) == Fingerprint(vs[1]) {
		t.Error("distinct violations share a fingerprint")
	}

	changed := vs[0]
	changed.Message = "different"
	if Fingerprint(changed) == Fingerprint(vs[0]) {
		t.Error("message change must change the fingerprint")
	}

	if !strings.HasPrefix(Fingerprint(vs[0]), "sha256:") {
		t.Errorf("fingerprint = %q", Fingerprint(vs[0]))
	}
}

func TestBuildAndFilter(t *testing.T) {
	vs := sampleViolations()
	b := Build("web-app", vs)

	if b.Policy != "web-app" || b.Version != Version {
		t.Errorf("baseline header = %+v", b)
	}
	if len(b.Entries) != 2 {
		t.Fatalf("entries = %d", len(b.Entries))
	}

	// everything recorded is suppressed
	kept, suppressed := Filter(vs, b)
	if len(kept) != 0 || len(suppressed) != 2 {
		t.Errorf("kept = %d, suppressed = %d", len(kept), len(suppressed))
	}

	// a new violation passes through
	fresh := models.Violation{File: "new.ts", Module: "m", Type: models.ViolationPermission, Message: "missing pii_read"}
	kept, suppressed = Filter(append(vs, fresh), b)
	if len(kept) != 1 || kept[0].File != "new.ts" {
		t.Errorf("kept = %+v", kept)
	}
	if len(suppressed) != 2 {
		t.Errorf("suppressed = %d", len(suppressed))
	}
}

func TestFilterNilBaseline(t *testing.T) {
	vs := sampleViolations()
	kept, suppressed := Filter(vs, nil)
	if len(kept) != 2 || suppressed != nil {
		t.Errorf("kept = %d, suppressed = %v", len(kept), suppressed)
	}
}

func TestStale(t *testing.T) {
	vs := sampleViolations()
	b := Build("web-app", vs)

	// first violation fixed
	stale := Stale(b, vs[1:])
	if len(stale) != 1 || stale[0] != Fingerprint(vs[0]) {
		t.Errorf("stale = %v", stale)
	}

	if got := Stale(b, vs); len(got) != 0 {
		t.Errorf("stale = %v", got)
	}
}

func TestManagerRoundTrip(t *testing.T) {
	m := NewManager()
	path := filepath.Join(t.TempDir(), "modguard-baseline.json")

	if m.Exists(path) {
		t.Fatal("Exists before save")
	}

	b := Build("web-app", sampleViolations())
	if err := m.Save(b, path); err != nil {
		t.Fatal(err)
	}
	if !m.Exists(path) {
		t.Fatal("Exists after save")
	}

	loaded, err := m.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Policy != b.Policy || len(loaded.Entries) != len(b.Entries) {
		t.Errorf("loaded = %+v", loaded)
	}

	// byte-stable saves
	first, _ := os.ReadFile(path)
	if err := m.Save(loaded, path); err != nil {
		t.Fatal(err)
	}
	second, _ := os.ReadFile(path)
	if string(first) != string(second) {
		t.Error("save is not byte-stable")
	}
	if !strings.HasSuffix(string(first), "\n") {
		t.Error("baseline file must end with a newline")
	}
}

func TestManagerLoadErrors(t *testing.T) {
	m := NewManager()

	if _, err := m.Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(t.TempDir(), "bad.json")
	os.WriteFile(bad, []byte("{}"), 0o644)
	if _, err := m.Load(bad); err == nil {
		t.Error("expected error for baseline without version")
	}
}
