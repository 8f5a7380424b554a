// Package envfile renders and writes the generated key-value configuration
// artifact consumed by the downstream telemetry services.
//
// The artifact is an ordered, sectioned dotenv-style file. It is always
// regenerated in full so it never carries values from a previous deployment
// topology.
package envfile

import (
	"bytes"
	"fmt"
	"os"
)

// Pair is a single key-value entry.
type Pair struct {
	Key   string
	Value string
}

// Section groups related entries under a comment header.
type Section struct {
	Name  string
	Pairs []Pair
}

// Artifact is an ordered collection of sections with globally unique keys.
type Artifact struct {
	sections []*Section
	keys     map[string]bool
}

// New creates an empty artifact.
func New() *Artifact {
	return &Artifact{keys: make(map[string]bool)}
}

// Add appends a key-value pair to the named section, creating the section
// on first use. Duplicate keys are rejected.
func (a *Artifact) Add(section, key, value string) error {
	if key == "" {
		return fmt.Errorf("empty key in section %q", section)
	}
	if a.keys[key] {
		return fmt.Errorf("duplicate key %q", key)
	}
	a.keys[key] = true

	for _, s := range a.sections {
		if s.Name == section {
			s.Pairs = append(s.Pairs, Pair{Key: key, Value: value})
			return nil
		}
	}
	a.sections = append(a.sections, &Section{Name: section, Pairs: []Pair{{Key: key, Value: value}}})
	return nil
}

// Get returns the value for a key and whether it is present.
func (a *Artifact) Get(key string) (string, bool) {
	for _, s := range a.sections {
		for _, p := range s.Pairs {
			if p.Key == key {
				return p.Value, true
			}
		}
	}
	return "", false
}

// Render produces the artifact's file content. Output is deterministic:
// sections and keys appear in insertion order.
func (a *Artifact) Render() []byte {
	var buf bytes.Buffer
	for i, s := range a.sections {
		if i > 0 {
			buf.WriteByte('\n')
		}
		fmt.Fprintf(&buf, "# %s\n", s.Name)
		for _, p := range s.Pairs {
			fmt.Fprintf(&buf, "%s=%s\n", p.Key, p.Value)
		}
	}
	return buf.Bytes()
}

// Write renders the artifact and replaces any existing file at path. After
// writing it confirms the file exists on disk; a missing file after a
// successful write is an error.
func (a *Artifact) Write(path string) error {
	if err := os.WriteFile(path, a.Render(), 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%s missing after write: %w", path, err)
	}
	return nil
}
