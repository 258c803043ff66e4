package scan

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/modguard/modguard/internal/models"
)

const tsDoc = `{
  "language": "typescript",
  "files": [
    {
      "path": "src/ui/admin/Panel.tsx",
      "imports": [{"from": "src/services/auth-core/Auth.ts", "type": "static"}],
      "warnings": ["deep_relative_import at line 3"]
    },
    {"path": "src/ui/components/Button.tsx", "language": "tsx"}
  ]
}`

func TestParseDocument(t *testing.T) {
	doc, err := ParseDocument([]byte(tsDoc), "ts.json")
	if err != nil {
		t.Fatal(err)
	}
	if doc.Language != "typescript" {
		t.Errorf("language = %q", doc.Language)
	}
	if len(doc.Files) != 2 {
		t.Fatalf("files = %d", len(doc.Files))
	}
	if doc.Files[0].Language != "typescript" {
		t.Errorf("per-file language default not applied: %q", doc.Files[0].Language)
	}
	if doc.Files[1].Language != "tsx" {
		t.Errorf("explicit per-file language overwritten: %q", doc.Files[1].Language)
	}
	if doc.Files[0].Imports[0].From != "src/services/auth-core/Auth.ts" {
		t.Errorf("imports = %+v", doc.Files[0].Imports)
	}
}

func TestParseDocumentErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"unknown field", `{"language": "go", "files": [], "extra": 1}`, "unknown field"},
		{"missing language", `{"files": []}`, "language is required"},
		{"missing path", `{"language": "go", "files": [{"language": "go"}]}`, "files[0]"},
		{"not json", `language: go`, "invalid scan document"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDocument([]byte(tt.data), "doc.json")
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not contain %q", err, tt.want)
			}
		})
	}
}

func TestLoadDirOrderAndMerge(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b-python.json", `{"language": "python", "files": [{"path": "svc/main.py"}]}`)
	writeFile(t, dir, "a-typescript.json", tsDoc)
	writeFile(t, dir, "notes.txt", "ignored")

	docs, err := LoadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 2 {
		t.Fatalf("docs = %d", len(docs))
	}
	// lexical filename order, not language order
	if docs[0].Language != "typescript" || docs[1].Language != "python" {
		t.Errorf("order = %q, %q", docs[0].Language, docs[1].Language)
	}

	merged := Merge(docs)
	if !reflect.DeepEqual(merged.Sources, []string{"typescript", "python"}) {
		t.Errorf("sources = %v", merged.Sources)
	}
	var paths []string
	for _, f := range merged.Files {
		paths = append(paths, f.Path)
	}
	want := []string{"src/ui/admin/Panel.tsx", "src/ui/components/Button.tsx", "svc/main.py"}
	if !reflect.DeepEqual(paths, want) {
		t.Errorf("paths = %v", paths)
	}
}

func TestLoadDirEmpty(t *testing.T) {
	if _, err := LoadDir(t.TempDir()); err == nil {
		t.Fatal("expected error for directory without documents")
	}
}

func TestMergeDuplicateLanguages(t *testing.T) {
	merged := Merge([]*models.ScanDocument{
		{Language: "go", Files: []models.ScanFile{{Path: "a.go"}}},
		{Language: "go", Files: []models.ScanFile{{Path: "b.go"}}},
	})
	if !reflect.DeepEqual(merged.Sources, []string{"go"}) {
		t.Errorf("sources = %v", merged.Sources)
	}
	if len(merged.Files) != 2 {
		t.Errorf("files = %d", len(merged.Files))
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
