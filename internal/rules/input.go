package rules

import "github.com/modguard/modguard/internal/models"

// BuildFileInput converts a scan file into the deterministic map handed to
// custom CEL rules. resolvedImports are the import targets' owning modules
// in import declaration order; unresolved targets are omitted.
func BuildFileInput(file *models.ScanFile, owner string, resolvedImports []string) map[string]any {
	imports := make([]any, len(file.Imports))
	for i, imp := range file.Imports {
		imports[i] = map[string]any{
			"from": imp.From,
			"type": imp.Type,
		}
	}

	return map[string]any{
		"path":          file.Path,
		"language":      file.Language,
		"owner":         owner,
		"declarations":  stringSliceToAny(file.Declarations),
		"imports":       imports,
		"import_owners": stringSliceToAny(resolvedImports),
		"feature_flags": stringSliceToAny(file.FeatureFlags),
		"permissions":   stringSliceToAny(file.Permissions),
		"warnings":      stringSliceToAny(file.Warnings),
	}
}

func stringSliceToAny(s []string) []any {
	result := make([]any, len(s))
	for i, v := range s {
		result[i] = v
	}
	return result
}
