package models

// Import is a single import edge reported by a scanner.
type Import struct {
	From string `json:"from"`
	Type string `json:"type,omitempty"`
}

// ScanFile is one source file as reported by an external scanner.
// Immutable input to the checker.
type ScanFile struct {
	Path         string   `json:"path"`
	Language     string   `json:"language,omitempty"`
	Declarations []string `json:"declarations,omitempty"`
	Imports      []Import `json:"imports,omitempty"`
	FeatureFlags []string `json:"feature_flags,omitempty"`
	Permissions  []string `json:"permissions,omitempty"`
	Warnings     []string `json:"warnings,omitempty"`
}

// ScanDocument is the output of one scanner run for one language.
type ScanDocument struct {
	Language string     `json:"language"`
	Files    []ScanFile `json:"files"`
}

// MergedScan is the single corpus built from all scanner documents.
// Built once per check run; read-only afterward.
type MergedScan struct {
	Sources []string   `json:"sources"`
	Files   []ScanFile `json:"files"`
}
