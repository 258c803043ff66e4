package policyfile

import (
	"embed"
	"fmt"
	"sort"

	"github.com/modguard/modguard/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed presets/*.yaml
var presetFS embed.FS

// Preset is a reusable fragment merged into a loaded policy: a named set
// of global kill patterns. Presets never declare modules.
type Preset struct {
	Name               string               `yaml:"name"`
	Description        string               `yaml:"description,omitempty"`
	GlobalKillPatterns []models.KillPattern `yaml:"global_kill_patterns"`
}

// presetCache holds loaded presets to avoid re-parsing
var presetCache = map[string]*Preset{}

// presetFiles maps preset names to embedded file paths
var presetFiles = map[string]string{
	"baseline": "presets/baseline.yaml",
	"strict":   "presets/strict.yaml",
}

// GetPreset returns a built-in preset by name, or nil if not found.
func GetPreset(name string) *Preset {
	if cached, ok := presetCache[name]; ok {
		return cached
	}

	path, ok := presetFiles[name]
	if !ok {
		return nil
	}

	data, err := presetFS.ReadFile(path)
	if err != nil {
		return nil
	}

	var preset Preset
	if err := yaml.Unmarshal(data, &preset); err != nil {
		return nil
	}

	presetCache[name] = &preset
	return &preset
}

// ListPresetNames returns the names of all built-in presets, sorted.
func ListPresetNames() []string {
	names := make([]string, 0, len(presetFiles))
	for name := range presetFiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MustGetPreset returns a preset or panics (for tests).
func MustGetPreset(name string) *Preset {
	p := GetPreset(name)
	if p == nil {
		panic(fmt.Sprintf("preset %q not found", name))
	}
	return p
}

// ApplyPreset merges a preset's global kill patterns into the policy.
// Patterns already declared by the policy win; the merge never removes.
func ApplyPreset(p *models.Policy, preset *Preset) {
	declared := map[string]bool{}
	for _, kp := range p.GlobalKillPatterns {
		declared[kp.Pattern] = true
	}
	for _, kp := range preset.GlobalKillPatterns {
		if !declared[kp.Pattern] {
			p.GlobalKillPatterns = append(p.GlobalKillPatterns, kp)
		}
	}
}
