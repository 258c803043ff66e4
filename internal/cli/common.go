package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/modguard/modguard/internal/models"
	"github.com/modguard/modguard/internal/policyfile"
)

// ANSI color codes for terminal output
const (
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorReset  = "\033[0m"
)

const (
	defaultPolicyPath   = "modguard.yaml"
	defaultBaselinePath = "modguard-baseline.json"
	defaultAliasesPath  = "modguard-aliases.yaml"
)

// loadPolicyWithPreset loads a policy file and merges a built-in preset
// into it when one is named. An empty preset name is a plain load.
func loadPolicyWithPreset(policyPath, presetName string) (*models.Policy, error) {
	policy, err := policyfile.Load(policyPath)
	if err != nil {
		return nil, err
	}

	if presetName != "" {
		preset := policyfile.GetPreset(presetName)
		if preset == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %s)",
				presetName, strings.Join(policyfile.ListPresetNames(), ", "))
		}
		policyfile.ApplyPreset(policy, preset)
	}

	return policy, nil
}

// requireFile is a friendlier stat check for CLI entry points.
func requireFile(path, hint string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("file not found: %s%s", path, hint)
		}
		return err
	}
	return nil
}
