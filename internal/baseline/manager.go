package baseline

import (
	"encoding/json"
	"fmt"
	"os"
)

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Save baseline
func (m *Manager) Save(b *Baseline, path string) error {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal baseline: %w", err)
	}

	// Ensure file ends with newline for clean git diffs
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write baseline: %w", err)
	}

	return nil
}

// Load baseline
func (m *Manager) Load(path string) (*Baseline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read baseline: %w", err)
	}

	var b Baseline
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to parse baseline: %w", err)
	}

	if b.Version == "" {
		return nil, fmt.Errorf("unable to determine baseline version")
	}
	if b.Entries == nil {
		b.Entries = map[string]Entry{}
	}

	return &b, nil
}

func (m *Manager) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
