package models

// Policy is the ownership/access policy for a check run. Immutable once
// loaded; ModuleOrder preserves declaration order for tie-breaking.
type Policy struct {
	Name               string
	ModuleOrder        []string
	Modules            map[string]*PolicyModule
	GlobalKillPatterns []KillPattern
}

// PolicyModule declares what a module owns and who may call it.
type PolicyModule struct {
	OwnsPaths           []string     `yaml:"owns_paths" json:"owns_paths"`
	OwnsNamespaces      []string     `yaml:"owns_namespaces,omitempty" json:"owns_namespaces,omitempty"`
	AllowedCallers      []string     `yaml:"allowed_callers,omitempty" json:"allowed_callers,omitempty"`
	ForbiddenCallers    []string     `yaml:"forbidden_callers,omitempty" json:"forbidden_callers,omitempty"`
	FeatureFlags        []string     `yaml:"feature_flags,omitempty" json:"feature_flags,omitempty"`
	RequiresPermissions []string     `yaml:"requires_permissions,omitempty" json:"requires_permissions,omitempty"`
	KillPatterns        []string     `yaml:"kill_patterns,omitempty" json:"kill_patterns,omitempty"`
	CustomRules         []CustomRule `yaml:"custom_rules,omitempty" json:"custom_rules,omitempty"`
}

// Module returns the module for a canonical identifier.
func (p *Policy) Module(id string) (*PolicyModule, bool) {
	m, ok := p.Modules[id]
	return m, ok
}

// KillPattern is a named forbidden code pattern. Its presence among a
// file's scanner warnings is itself a violation.
type KillPattern struct {
	Pattern     string `yaml:"pattern" json:"pattern"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// CustomRule is a CEL expression evaluated against every file a module owns.
type CustomRule struct {
	Name       string `yaml:"name" json:"name"`
	Expr       string `yaml:"expr" json:"expr"`
	FailureMsg string `yaml:"failure_msg" json:"failure_msg"`
	Severity   string `yaml:"severity,omitempty" json:"severity,omitempty"`
}

// AliasEntry maps a shorthand string to a canonical module identifier.
type AliasEntry struct {
	Canonical  string  `yaml:"canonical" json:"canonical"`
	Confidence float64 `yaml:"confidence,omitempty" json:"confidence,omitempty"`
	Reason     string  `yaml:"reason,omitempty" json:"reason,omitempty"`
}
