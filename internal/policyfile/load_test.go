package policyfile

import (
	"errors"
	"strings"
	"testing"
)

const validPolicy = `
name: web-app
modules:
  ui/admin:
    owns_paths:
      - src/ui/admin/**
  services/auth-core:
    owns_paths:
      - src/services/auth-core/**
    forbidden_callers:
      - ui/**
  services/api:
    owns_paths:
      - src/services/api/**
    allowed_callers:
      - ui/**
      - services/**
    feature_flags:
      - api_enabled
global_kill_patterns:
  - pattern: deprecated_api
    description: old API
`

func TestParseValidPolicy(t *testing.T) {
	p, err := Parse([]byte(validPolicy), "test.yaml")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if p.Name != "web-app" {
		t.Errorf("Name = %q, want web-app", p.Name)
	}
	if len(p.Modules) != 3 {
		t.Fatalf("got %d modules, want 3", len(p.Modules))
	}

	wantOrder := []string{"ui/admin", "services/auth-core", "services/api"}
	if len(p.ModuleOrder) != len(wantOrder) {
		t.Fatalf("ModuleOrder = %v, want %v", p.ModuleOrder, wantOrder)
	}
	for i, id := range wantOrder {
		if p.ModuleOrder[i] != id {
			t.Errorf("ModuleOrder[%d] = %q, want %q", i, p.ModuleOrder[i], id)
		}
	}

	auth := p.Modules["services/auth-core"]
	if len(auth.ForbiddenCallers) != 1 || auth.ForbiddenCallers[0] != "ui/**" {
		t.Errorf("forbidden_callers = %v", auth.ForbiddenCallers)
	}
	if len(p.GlobalKillPatterns) != 1 || p.GlobalKillPatterns[0].Pattern != "deprecated_api" {
		t.Errorf("global_kill_patterns = %v", p.GlobalKillPatterns)
	}
}

func TestParseJSONPolicy(t *testing.T) {
	// JSON is a YAML subset; the same loader must accept it.
	doc := `{"modules": {"core": {"owns_paths": ["src/core/**"]}}}`
	p, err := Parse([]byte(doc), "test.json")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if _, ok := p.Modules["core"]; !ok {
		t.Error("core module missing")
	}
}

func TestParseRejectsUnknownField(t *testing.T) {
	doc := `
modules:
  core:
    owns_paths: [src/core/**]
    owns_pathz: [typo/**]
`
	_, err := Parse([]byte(doc), "test.yaml")
	var invalid *InvalidError
	if !errors.As(err, &invalid) {
		t.Fatalf("want InvalidError, got %v", err)
	}
	if !strings.Contains(invalid.Error(), "owns_pathz") {
		t.Errorf("error does not identify offending field: %v", invalid)
	}
}

func TestParseRejectsMissingOwnsPaths(t *testing.T) {
	doc := `
modules:
  core:
    allowed_callers: [ui/**]
`
	_, err := Parse([]byte(doc), "test.yaml")
	var invalid *InvalidError
	if !errors.As(err, &invalid) {
		t.Fatalf("want InvalidError, got %v", err)
	}
	if !strings.Contains(invalid.Error(), "modules.core.owns_paths") {
		t.Errorf("error does not name field: %v", invalid)
	}
}

func TestParseRejectsNonListGlobs(t *testing.T) {
	doc := `
modules:
  core:
    owns_paths: src/core/**
`
	if _, err := Parse([]byte(doc), "test.yaml"); err == nil {
		t.Fatal("expected schema error for scalar owns_paths")
	}
}

func TestParseRejectsEmptyModules(t *testing.T) {
	_, err := Parse([]byte("modules: {}"), "test.yaml")
	var invalid *InvalidError
	if !errors.As(err, &invalid) {
		t.Fatalf("want InvalidError, got %v", err)
	}
}

func TestParseRejectsDuplicateModule(t *testing.T) {
	doc := `
modules:
  core:
    owns_paths: [src/core/**]
  core:
    owns_paths: [src/other/**]
`
	// yaml.v3 reports duplicate mapping keys at decode time; the node walk
	// catches anything that slips through. Either way this must not load.
	if _, err := Parse([]byte(doc), "test.yaml"); err == nil {
		t.Fatal("expected error for duplicate module identifier")
	}
}

func TestParseRejectsBadCustomRule(t *testing.T) {
	doc := `
modules:
  core:
    owns_paths: [src/core/**]
    custom_rules:
      - name: no-warnings
        expr: ""
        severity: fatal
`
	_, err := Parse([]byte(doc), "test.yaml")
	var invalid *InvalidError
	if !errors.As(err, &invalid) {
		t.Fatalf("want InvalidError, got %v", err)
	}
	msg := invalid.Error()
	if !strings.Contains(msg, "expr") || !strings.Contains(msg, "severity") {
		t.Errorf("error = %v, want expr and severity failures", msg)
	}
}

func TestGetPreset(t *testing.T) {
	for _, name := range []string{"baseline", "strict"} {
		t.Run(name, func(t *testing.T) {
			preset := GetPreset(name)
			if preset == nil {
				t.Fatalf("GetPreset(%q) returned nil", name)
			}
			if preset.Name != name {
				t.Errorf("preset name = %q, want %q", preset.Name, name)
			}
			if len(preset.GlobalKillPatterns) == 0 {
				t.Error("preset has no kill patterns")
			}
		})
	}

	if GetPreset("nope") != nil {
		t.Error("unknown preset should return nil")
	}
}

func TestApplyPreset(t *testing.T) {
	p, err := Parse([]byte(validPolicy), "test.yaml")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	ApplyPreset(p, MustGetPreset("baseline"))

	seen := map[string]int{}
	for _, kp := range p.GlobalKillPatterns {
		seen[kp.Pattern]++
	}
	// deprecated_api was declared by the policy; the preset must not duplicate it
	if seen["deprecated_api"] != 1 {
		t.Errorf("deprecated_api count = %d, want 1", seen["deprecated_api"])
	}
	if seen["circular_import"] != 1 {
		t.Errorf("circular_import count = %d, want 1", seen["circular_import"])
	}
}
