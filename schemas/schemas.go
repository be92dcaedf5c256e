// Package schemas embeds the JSON Schemas for structured artifacts exchanged
// with LLM providers and written to the artifact store.
package schemas

import (
	"embed"
	"fmt"
)

// Schema file names
const (
	KeywordBuckets = "keyword_buckets.schema.json"
	AuditRecord    = "audit_record.schema.json"
)

//go:embed *.schema.json
var schemaFiles embed.FS

// Get returns the raw schema document for name
func Get(name string) (string, error) {
	data, err := schemaFiles.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("failed to read schema %s: %w", name, err)
	}
	return string(data), nil
}

// List returns the names of every embedded schema
func List() ([]string, error) {
	entries, err := schemaFiles.ReadDir(".")
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}
