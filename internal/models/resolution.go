package models

// ResolutionSource says which step of the precedence chain produced a result.
type ResolutionSource string

const (
	SourceExact     ResolutionSource = "exact"
	SourceAlias     ResolutionSource = "alias"
	SourceSubstring ResolutionSource = "substring"
	SourceFuzzy     ResolutionSource = "fuzzy"
	SourceNone      ResolutionSource = "none"
)

// ResolutionResult maps a raw identifier to its canonical form.
// Produced fresh per call; never mutated after construction.
type ResolutionResult struct {
	Original     string           `json:"original"`
	Canonical    string           `json:"canonical"`
	Confidence   float64          `json:"confidence"`
	Source       ResolutionSource `json:"source"`
	Warning      string           `json:"warning,omitempty"`
	EditDistance int              `json:"edit_distance,omitempty"`
}
