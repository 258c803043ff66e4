// Package receipt provides stable evidence artifacts for audit/compliance.
package receipt

// ReceiptSchemaVersion current
const ReceiptSchemaVersion = "1.0"

// Receipt structure
type Receipt struct {
	SchemaVersion string        `json:"schema_version"`
	OpID          string        `json:"op_id"`
	TsStart       string        `json:"ts_start"`
	TsEnd         string        `json:"ts_end"`
	Command       string        `json:"command"`
	Args          []string      `json:"args"`
	ArgsRedacted  bool          `json:"args_redacted,omitempty"`
	Result        Result        `json:"result"`
	Policy        *PolicyRef    `json:"policy,omitempty"`
	Check         *CheckSummary `json:"check,omitempty"`
	Baseline      *BaselineRef  `json:"baseline,omitempty"`
	Registry      *RegistryPin  `json:"registry,omitempty"`
}

// Result status
type Result struct {
	Status string `json:"status"` // "success" or "fail"
	Error  string `json:"error,omitempty"`
}

// PolicyRef detail
type PolicyRef struct {
	Path   string `json:"path"`
	SHA256 string `json:"sha256,omitempty"`
	Preset string `json:"preset,omitempty"`
}

// CheckSummary detail
type CheckSummary struct {
	FilesChecked int    `json:"files_checked"`
	Violations   int    `json:"violations"`
	Suppressed   int    `json:"suppressed,omitempty"`
	Warnings     int    `json:"warnings,omitempty"`
	Status       string `json:"status"` // pass|fail
}

// BaselineRef detail
type BaselineRef struct {
	Path    string `json:"path"`
	Entries int    `json:"entries"`
}

// RegistryPin detail
type RegistryPin struct {
	Ref    string `json:"ref"`
	Digest string `json:"digest,omitempty"`
}
