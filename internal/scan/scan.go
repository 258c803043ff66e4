// Package scan loads scanner output documents and merges them into the
// single corpus the checker evaluates. Scanners for each language run out
// of process and emit JSON; this package only validates shape, it never
// parses source text.
package scan

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/modguard/modguard/internal/models"
)

// LoadDocument reads and validates one scanner document.
func LoadDocument(path string) (*models.ScanDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scan document: %w", err)
	}
	return ParseDocument(data, path)
}

// ParseDocument decodes a scanner document, rejecting unknown fields so
// scanner/engine schema drift surfaces immediately.
func ParseDocument(data []byte, source string) (*models.ScanDocument, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var doc models.ScanDocument
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("invalid scan document %s: %w", source, err)
	}

	if doc.Language == "" {
		return nil, fmt.Errorf("invalid scan document %s: language is required", source)
	}
	for i, f := range doc.Files {
		if f.Path == "" {
			return nil, fmt.Errorf("invalid scan document %s: files[%d]: path is required", source, i)
		}
		// Per-file language defaults to the document's.
		if f.Language == "" {
			doc.Files[i].Language = doc.Language
		}
	}

	return &doc, nil
}

// LoadDir loads every .json document under dir, in lexical filename order
// so merge output is stable across filesystems.
func LoadDir(dir string) ([]*models.ScanDocument, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scan directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".json" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	if len(names) == 0 {
		return nil, fmt.Errorf("no scan documents found in %s", dir)
	}

	docs := make([]*models.ScanDocument, 0, len(names))
	for _, name := range names {
		doc, err := LoadDocument(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Merge concatenates scanner documents into one corpus, preserving the
// order files were received in. No ordering guarantee is required from
// scanners; whatever order they emit is the order the checker sees.
func Merge(docs []*models.ScanDocument) *models.MergedScan {
	merged := &models.MergedScan{}
	seen := make(map[string]bool)

	for _, doc := range docs {
		if !seen[doc.Language] {
			seen[doc.Language] = true
			merged.Sources = append(merged.Sources, doc.Language)
		}
		merged.Files = append(merged.Files, doc.Files...)
	}

	return merged
}
