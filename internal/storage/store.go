// Package storage persists run artifacts such as rendered PDFs and audit records.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Artifact names written for every generate run
const (
	DocumentName = "resume.pdf"
	AuditName    = "audit.json"
)

// ErrNotFound is returned when an artifact does not exist
var ErrNotFound = errors.New("artifact not found")

// ArtifactStore saves and loads artifacts grouped by namespace (usually a run id).
// Locators returned by Save are opaque to callers and accepted by Get.
type ArtifactStore interface {
	Save(ctx context.Context, namespace, name string, data []byte) (string, error)
	SaveJSON(ctx context.Context, namespace, name string, v any) (string, error)
	Get(ctx context.Context, locator string) ([]byte, error)
	List(ctx context.Context, namespace string) ([]string, error)
	Delete(ctx context.Context, namespace, name string) error
	Locate(namespace, name string) string
}

// KeyError reports an unusable namespace, name or locator
type KeyError struct {
	Key     string
	Message string
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("invalid artifact key %q: %s", e.Key, e.Message)
}

// validateKey rejects empty keys and anything that could escape a namespace
func validateKey(key string) error {
	switch {
	case key == "":
		return &KeyError{Key: key, Message: "must not be empty"}
	case key == "." || key == "..":
		return &KeyError{Key: key, Message: "reserved name"}
	case strings.ContainsAny(key, `/\`):
		return &KeyError{Key: key, Message: "must not contain path separators"}
	}
	return nil
}

func validateKeys(namespace, name string) error {
	if err := validateKey(namespace); err != nil {
		return err
	}
	return validateKey(name)
}

func marshalArtifact(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal artifact: %w", err)
	}
	return data, nil
}
