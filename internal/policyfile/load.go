// Package policyfile loads and validates policy and preset documents.
// Policies are YAML or JSON (YAML is parsed as a superset); the schema is
// rejected at load time so the rule evaluator never sees a malformed policy.
package policyfile

import (
	"bytes"
	"fmt"
	"os"
	"sort"

	"github.com/modguard/modguard/internal/models"
	"gopkg.in/yaml.v3"
)

// rawPolicy mirrors the on-disk document.
type rawPolicy struct {
	Name               string                          `yaml:"name"`
	Modules            map[string]*models.PolicyModule `yaml:"modules"`
	GlobalKillPatterns []models.KillPattern            `yaml:"global_kill_patterns"`
}

// Load reads and validates a policy document from disk.
func Load(path string) (*models.Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy: %w", err)
	}
	return Parse(data, path)
}

// Parse validates a policy document. The source string is used in errors.
func Parse(data []byte, source string) (*models.Policy, error) {
	var raw rawPolicy
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		return nil, &InvalidError{
			Source: source,
			Fields: []FieldError{{Msg: err.Error()}},
		}
	}

	order, orderErrs := moduleOrder(data)
	if len(order) != len(raw.Modules) {
		// Node walk could not recover declaration order; fall back to a
		// stable sorted order so tie-breaking stays deterministic.
		order = order[:0]
		for id := range raw.Modules {
			order = append(order, id)
		}
		sort.Strings(order)
	}

	policy := &models.Policy{
		Name:               raw.Name,
		ModuleOrder:        order,
		Modules:            raw.Modules,
		GlobalKillPatterns: raw.GlobalKillPatterns,
	}

	errs := append(orderErrs, validate(policy)...)
	if len(errs) > 0 {
		return nil, &InvalidError{Source: source, Fields: errs}
	}

	return policy, nil
}

// moduleOrder walks the YAML document to recover the declaration order of
// the modules mapping, which plain map decoding discards. Duplicate module
// identifiers are a schema error, not a silent last-wins.
func moduleOrder(data []byte) ([]string, []FieldError) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil || len(doc.Content) == 0 {
		return nil, nil // strict decode already reported the parse error
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, nil
	}

	var modulesNode *yaml.Node
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value == "modules" {
			modulesNode = root.Content[i+1]
			break
		}
	}
	if modulesNode == nil || modulesNode.Kind != yaml.MappingNode {
		return nil, nil
	}

	var order []string
	var errs []FieldError
	seen := map[string]bool{}
	for i := 0; i+1 < len(modulesNode.Content); i += 2 {
		id := modulesNode.Content[i].Value
		if seen[id] {
			errs = append(errs, FieldError{
				Field: "modules." + id,
				Msg:   "duplicate module identifier",
			})
			continue
		}
		seen[id] = true
		order = append(order, id)
	}
	return order, errs
}
