package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads, validates and applies defaults to the glob manifest at path.
// Read failures wrap the os error, so errors.Is(err, fs.ErrNotExist) holds
// for a missing file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("glob manifest not found: %s: %w", path, err)
		case errors.Is(err, fs.ErrPermission):
			return nil, fmt.Errorf("permission denied reading glob manifest %s: %w", path, err)
		}
		return nil, fmt.Errorf("read glob manifest %s: %w", path, err)
	}
	return LoadFromBytes(data, path)
}

// LoadFromReader is LoadFromBytes on the contents of r.
func LoadFromReader(r io.Reader, path string) (*Manifest, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read glob manifest %s: %w", describe(path), err)
	}
	return LoadFromBytes(data, path)
}

// LoadFromBytes decodes and validates a glob manifest. path picks the
// decoder (".json" is strict JSON, anything else YAML, which also reads
// JSON) and names the source in errors.
//
// The document is checked against the schema before it is decoded, so
// unknown fields are rejected instead of dropped. Locators and filters are
// then compiled once here; a manifest that loads cleanly cannot fail a run
// on a malformed pattern.
func LoadFromBytes(data []byte, path string) (*Manifest, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("glob manifest %s is empty", describe(path))
	}

	doc, err := canonicalJSON(data, path)
	if err != nil {
		return nil, err
	}
	if err := ValidateRaw(doc); err != nil {
		return nil, fmt.Errorf("glob manifest %s: %w", describe(path), err)
	}

	var m Manifest
	if err := json.Unmarshal(doc, &m); err != nil {
		return nil, fmt.Errorf("decode glob manifest %s: %w", describe(path), err)
	}
	m.ApplyDefaults()

	if err := checkEntries(&m); err != nil {
		return nil, fmt.Errorf("glob manifest %s: %w", describe(path), err)
	}
	return &m, nil
}

// canonicalJSON returns the manifest as JSON, the form the schema and the
// struct decoder both read.
func canonicalJSON(data []byte, path string) ([]byte, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		if !json.Valid(data) {
			var raw any
			err := json.Unmarshal(data, &raw)
			return nil, fmt.Errorf("invalid JSON in glob manifest %s: %w", describe(path), err)
		}
		return data, nil
	}

	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid YAML in glob manifest %s: %w", describe(path), err)
	}
	doc, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("convert glob manifest %s to JSON: %w", describe(path), err)
	}
	return doc, nil
}

func describe(path string) string {
	if path == "" {
		return "<input>"
	}
	return path
}
