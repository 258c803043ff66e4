package differ

import (
	"strings"

	"github.com/wI2L/jsondiff"
)

// Translate patches to english
func Translate(patches jsondiff.Patch) []string {
	if len(patches) == 0 {
		return nil
	}

	var translations []string
	seen := make(map[string]bool)

	for _, op := range patches {
		translation := translateOperation(op)
		if translation != "" && !seen[translation] {
			seen[translation] = true
			translations = append(translations, translation)
		}
	}

	return translations
}

func translateOperation(op jsondiff.Operation) string {
	path := op.Path

	switch op.Type {
	case jsondiff.OperationAdd:
		if strings.Contains(path, "/violations") {
			return "New violation introduced."
		}
		if strings.Contains(path, "/warnings") {
			return "New warning reported."
		}
		return "Report field added."
	case jsondiff.OperationRemove:
		if strings.Contains(path, "/violations") {
			return "Violation resolved."
		}
		if strings.Contains(path, "/warnings") {
			return "Warning cleared."
		}
		return "Report field removed."
	case jsondiff.OperationReplace:
		switch {
		case strings.Contains(path, "/violations"):
			return "Violation details changed."
		case strings.HasSuffix(path, "/files_checked"):
			return "Number of files checked changed."
		case strings.Contains(path, "/sources"):
			return "Scanner sources changed."
		case strings.HasSuffix(path, "/policy"):
			return "Policy name changed."
		case strings.HasSuffix(path, "/suppressed"):
			return "Baseline suppression count changed."
		default:
			return "Report field modified."
		}
	default:
		return ""
	}
}

// SeverityLevel 0=safe, 1=mod, 2=crit
type SeverityLevel int

const (
	SeveritySafe SeverityLevel = iota
	SeverityModerate
	SeverityCritical
)

// GetSeverity classifies a translation for colored output. New
// violations are critical, resolved ones are safe, the rest moderate.
func GetSeverity(translation string) SeverityLevel {
	lowerMsg := strings.ToLower(translation)

	if strings.Contains(lowerMsg, "new violation") || strings.Contains(lowerMsg, "violation details") {
		return SeverityCritical
	}

	if strings.Contains(lowerMsg, "resolved") || strings.Contains(lowerMsg, "cleared") {
		return SeveritySafe
	}

	return SeverityModerate
}
