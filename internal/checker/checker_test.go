package checker

import (
	"bytes"
	"context"
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/modguard/modguard/internal/models"
)

func testPolicy() *models.Policy {
	return &models.Policy{
		Name:        "web-app",
		ModuleOrder: []string{"ui/admin", "ui/components", "services/auth-core", "services/api", "features/premium"},
		Modules: map[string]*models.PolicyModule{
			"ui/admin": {
				OwnsPaths: []string{"src/ui/admin/**"},
			},
			"ui/components": {
				OwnsPaths: []string{"src/ui/components/**"},
			},
			"services/auth-core": {
				OwnsPaths:        []string{"src/services/auth-core/**"},
				ForbiddenCallers: []string{"ui/**"},
			},
			"services/api": {
				OwnsPaths:      []string{"src/services/api/**"},
				AllowedCallers: []string{"ui/**", "services/**"},
			},
			"features/premium": {
				OwnsPaths:    []string{"src/features/premium/**"},
				FeatureFlags: []string{"premium_enabled"},
			},
		},
	}
}

func mustChecker(t *testing.T, p *models.Policy, opts Options) *Checker {
	t.Helper()
	c, err := New(p, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestCheckForbiddenCaller(t *testing.T) {
	c := mustChecker(t, testPolicy(), Options{})

	scan := &models.MergedScan{Files: []models.ScanFile{{
		Path:     "src/ui/admin/Panel.tsx",
		Language: "typescript",
		Imports:  []models.Import{{From: "src/services/auth-core/Auth.ts", Type: "static"}},
	}}}

	res, err := c.Check(context.Background(), scan)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Violations) != 1 {
		t.Fatalf("got %d violations, want 1", len(res.Violations))
	}
	v := res.Violations[0]
	if v.Type != models.ViolationForbiddenCaller {
		t.Errorf("type = %q", v.Type)
	}
	if !strings.Contains(v.Message, "forbidden") {
		t.Errorf("message %q", v.Message)
	}
	if v.File != "src/ui/admin/Panel.tsx" || v.Module != "ui/admin" || v.TargetModule != "services/auth-core" {
		t.Errorf("violation = %+v", v)
	}
}

func TestCheckClean(t *testing.T) {
	c := mustChecker(t, testPolicy(), Options{})

	scan := &models.MergedScan{Files: []models.ScanFile{{
		Path:    "src/ui/components/Button.tsx",
		Imports: []models.Import{{From: "src/services/api/ButtonApi.ts", Type: "static"}},
	}}}

	res, err := c.Check(context.Background(), scan)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Violations) != 0 {
		t.Errorf("unexpected violations: %+v", res.Violations)
	}
	if res.FilesChecked != 1 {
		t.Errorf("FilesChecked = %d", res.FilesChecked)
	}
}

func TestCheckUngovernedFile(t *testing.T) {
	c := mustChecker(t, testPolicy(), Options{})

	scan := &models.MergedScan{Files: []models.ScanFile{{
		Path:     "scripts/build.sh",
		Warnings: []string{"runtime_eval at line 1"},
		Imports:  []models.Import{{From: "src/services/auth-core/Auth.ts"}},
	}}}

	res, err := c.Check(context.Background(), scan)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Violations) != 0 {
		t.Errorf("ungoverned file must produce nothing, got %+v", res.Violations)
	}
}

func TestCheckUngovernedImportSkipped(t *testing.T) {
	c := mustChecker(t, testPolicy(), Options{})

	scan := &models.MergedScan{Files: []models.ScanFile{{
		Path:    "src/ui/admin/Panel.tsx",
		Imports: []models.Import{{From: "node_modules/react/index.js"}},
	}}}

	res, err := c.Check(context.Background(), scan)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Violations) != 0 {
		t.Errorf("unexpected violations: %+v", res.Violations)
	}
}

func TestCheckSelfEdgeSkipped(t *testing.T) {
	c := mustChecker(t, testPolicy(), Options{})

	// auth-core forbids ui/** callers; an intra-module import is not an edge
	scan := &models.MergedScan{Files: []models.ScanFile{{
		Path:    "src/services/auth-core/session.ts",
		Imports: []models.Import{{From: "src/services/auth-core/token.ts"}},
	}}}

	res, err := c.Check(context.Background(), scan)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Violations) != 0 {
		t.Errorf("unexpected violations: %+v", res.Violations)
	}
}

func TestCheckMissingFeatureFlag(t *testing.T) {
	c := mustChecker(t, testPolicy(), Options{})

	scan := &models.MergedScan{Files: []models.ScanFile{{
		Path:         "src/features/premium/Gate.ts",
		FeatureFlags: []string{},
	}}}

	res, err := c.Check(context.Background(), scan)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Violations) != 1 {
		t.Fatalf("got %d violations", len(res.Violations))
	}
	if res.Violations[0].Type != models.ViolationFeatureFlag {
		t.Errorf("type = %q", res.Violations[0].Type)
	}
	if !strings.Contains(res.Violations[0].Message, "premium_enabled") {
		t.Errorf("message %q", res.Violations[0].Message)
	}
}

func TestCheckViolationOrderWithinFile(t *testing.T) {
	p := testPolicy()
	p.GlobalKillPatterns = []models.KillPattern{{Pattern: "runtime_eval"}}
	p.Modules["ui/admin"].FeatureFlags = []string{"admin_enabled"}
	c := mustChecker(t, p, Options{})

	// one file triggering kill_pattern, feature_flag, and forbidden_caller
	scan := &models.MergedScan{Files: []models.ScanFile{{
		Path:     "src/ui/admin/Panel.tsx",
		Imports:  []models.Import{{From: "src/services/auth-core/Auth.ts"}},
		Warnings: []string{"runtime_eval: eval() at line 9"},
	}}}

	res, err := c.Check(context.Background(), scan)
	if err != nil {
		t.Fatal(err)
	}

	var got []models.ViolationType
	for _, v := range res.Violations {
		got = append(got, v.Type)
	}
	want := []models.ViolationType{
		models.ViolationForbiddenCaller,
		models.ViolationFeatureFlag,
		models.ViolationKillPattern,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestCheckAmbiguousOwnership(t *testing.T) {
	p := testPolicy()
	p.ModuleOrder = append(p.ModuleOrder, "ui/admin-legacy")
	p.Modules["ui/admin-legacy"] = &models.PolicyModule{OwnsPaths: []string{"src/ui/admin/**"}}
	c := mustChecker(t, p, Options{})

	scan := &models.MergedScan{Files: []models.ScanFile{{Path: "src/ui/admin/Panel.tsx"}}}

	res, err := c.Check(context.Background(), scan)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.AmbiguousPaths) != 1 {
		t.Fatalf("AmbiguousPaths = %+v", res.AmbiguousPaths)
	}
	w := res.AmbiguousPaths[0]
	if w.Path != "src/ui/admin/Panel.tsx" {
		t.Errorf("path = %q", w.Path)
	}
	if !reflect.DeepEqual(w.Modules, []string{"ui/admin", "ui/admin-legacy"}) {
		t.Errorf("modules = %v", w.Modules)
	}
}

func TestCheckCustomRules(t *testing.T) {
	p := testPolicy()
	p.Modules["ui/admin"].CustomRules = []models.CustomRule{
		{
			Name:       "no-deep-warnings",
			Expr:       `size(file.warnings) == 0`,
			FailureMsg: "scanner warnings present",
			Severity:   "error",
		},
		{
			Name:       "prefer-static-imports",
			Expr:       `file.imports.all(i, i.type == "static")`,
			FailureMsg: "dynamic import found",
			Severity:   "warn",
		},
	}
	c := mustChecker(t, p, Options{})

	scan := &models.MergedScan{Files: []models.ScanFile{{
		Path:     "src/ui/admin/Panel.tsx",
		Imports:  []models.Import{{From: "src/services/api/x.ts", Type: "dynamic"}},
		Warnings: []string{"something"},
	}}}

	res, err := c.Check(context.Background(), scan)
	if err != nil {
		t.Fatal(err)
	}

	if len(res.Violations) != 1 {
		t.Fatalf("violations = %+v", res.Violations)
	}
	v := res.Violations[0]
	if v.Type != models.ViolationCustomRule || !strings.Contains(v.Message, "no-deep-warnings") {
		t.Errorf("violation = %+v", v)
	}

	if len(res.RuleWarnings) != 1 || !strings.Contains(res.RuleWarnings[0], "prefer-static-imports") {
		t.Errorf("RuleWarnings = %v", res.RuleWarnings)
	}
}

func TestCheckRejectsBadCustomRule(t *testing.T) {
	p := testPolicy()
	p.Modules["ui/admin"].CustomRules = []models.CustomRule{
		{Name: "broken", Expr: `file.path ==`},
	}
	if _, err := New(p, Options{}); err == nil {
		t.Fatal("expected construction to fail on malformed rule")
	}
}

func TestCheckParallelMatchesSerial(t *testing.T) {
	p := testPolicy()
	p.GlobalKillPatterns = []models.KillPattern{{Pattern: "deprecated_api"}}

	files := []models.ScanFile{
		{Path: "src/ui/admin/Panel.tsx", Imports: []models.Import{{From: "src/services/auth-core/Auth.ts"}}},
		{Path: "src/ui/components/Button.tsx", Imports: []models.Import{{From: "src/services/api/ButtonApi.ts"}}},
		{Path: "src/features/premium/Gate.ts"},
		{Path: "src/services/api/handler.ts", Warnings: []string{"deprecated_api: fetchLegacy"}},
		{Path: "untracked/notes.txt"},
	}
	scan := &models.MergedScan{Files: files}

	serial := mustChecker(t, p, Options{})
	parallel := mustChecker(t, p, Options{Workers: 4})

	want, err := serial.Check(context.Background(), scan)
	if err != nil {
		t.Fatal(err)
	}
	wantJSON, _ := json.Marshal(want.Violations)

	for i := 0; i < 10; i++ {
		got, err := parallel.Check(context.Background(), scan)
		if err != nil {
			t.Fatal(err)
		}
		gotJSON, _ := json.Marshal(got.Violations)
		if !bytes.Equal(gotJSON, wantJSON) {
			t.Fatalf("run %d: parallel output diverged:\n%s\nvs\n%s", i, gotJSON, wantJSON)
		}
	}
}

func TestCheckCancelled(t *testing.T) {
	c := mustChecker(t, testPolicy(), Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Check(ctx, &models.MergedScan{Files: []models.ScanFile{{Path: "a"}}})
	if err == nil {
		t.Fatal("expected cancellation error")
	}
}
