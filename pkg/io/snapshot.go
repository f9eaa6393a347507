package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/lanemap/pkg/process"
)

// Format is a snapshot file encoding.
type Format string

// Supported formats.
const (
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the format for a file name by extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unsupported snapshot extension %q (want .json, .toml, .yaml)", filepath.Ext(path))
}

// jsonSnapshot is the JSON file shape. Steps stay raw records so that
// string-encoded connection lists are accepted.
type jsonSnapshot struct {
	Workflow process.Workflow     `json:"workflow"`
	Rows     []process.RowRecord  `json:"rows"`
	Steps    []process.StepRecord `json:"steps"`
}

// ReadSnapshot decodes a snapshot from r.
func ReadSnapshot(r io.Reader, format Format) (process.Snapshot, []process.Issue, error) {
	switch format {
	case FormatJSON:
		var data jsonSnapshot
		if err := json.NewDecoder(r).Decode(&data); err != nil {
			return process.Snapshot{}, nil, fmt.Errorf("decode: %w", err)
		}
		snap, issues := process.FromRecords(data.Workflow, data.Steps, data.Rows)
		return snap, issues, nil

	case FormatTOML:
		var snap process.Snapshot
		if _, err := toml.NewDecoder(r).Decode(&snap); err != nil {
			return process.Snapshot{}, nil, fmt.Errorf("decode: %w", err)
		}
		return normalize(snap), nil, nil

	case FormatYAML:
		var snap process.Snapshot
		if err := yaml.NewDecoder(r).Decode(&snap); err != nil && err != io.EOF {
			return process.Snapshot{}, nil, fmt.Errorf("decode: %w", err)
		}
		return normalize(snap), nil, nil
	}
	return process.Snapshot{}, nil, fmt.Errorf("unsupported format %q", format)
}

// normalize applies the same cleanup FromRecords does for typed decoders.
func normalize(snap process.Snapshot) process.Snapshot {
	for i, st := range snap.Steps {
		snap.Steps[i].Kind = process.ParseKind(string(st.Kind))
		snap.Steps[i].Address = strings.TrimSpace(st.Address)
	}
	for i, r := range snap.Rows {
		snap.Rows[i] = process.RowRecord{Letter: r.Letter, Name: r.Name}.ToRow()
	}
	return snap
}

// WriteSnapshot encodes a snapshot to w.
func WriteSnapshot(snap process.Snapshot, w io.Writer, format Format) error {
	var err error
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		err = enc.Encode(snap)
	case FormatTOML:
		err = toml.NewEncoder(w).Encode(snap)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err = enc.Encode(snap); err == nil {
			err = enc.Close()
		}
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ImportSnapshot reads a snapshot file, picking the format by extension.
func ImportSnapshot(path string) (process.Snapshot, []process.Issue, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return process.Snapshot{}, nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return process.Snapshot{}, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadSnapshot(f, format)
}

// ExportSnapshot writes a snapshot file, picking the format by extension.
// The file is written to a temporary sibling first and renamed into place.
func ExportSnapshot(snap process.Snapshot, path string) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteSnapshot(snap, tmp, format); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename to %s: %w", path, err)
	}
	return nil
}
