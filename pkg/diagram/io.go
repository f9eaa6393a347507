package diagram

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Marshal serializes a diagram to indented JSON.
func Marshal(d *Diagram) ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// Unmarshal parses a diagram and checks its format version.
func Unmarshal(data []byte) (*Diagram, error) {
	var d Diagram
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("unmarshal diagram: %w", err)
	}
	if d.Version == 0 {
		d.Version = FormatVersion
	}
	if d.Version > FormatVersion {
		return nil, fmt.Errorf("diagram format version %d is newer than supported %d", d.Version, FormatVersion)
	}
	return &d, nil
}

// Write writes a diagram as JSON.
func Write(d *Diagram, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(d)
}

// Read reads a JSON diagram.
func Read(r io.Reader) (*Diagram, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read diagram: %w", err)
	}
	return Unmarshal(data)
}

// WriteFile writes a diagram to a JSON file.
func WriteFile(d *Diagram, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return Write(d, f)
}

// ReadFile reads a diagram from a JSON file.
func ReadFile(path string) (*Diagram, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f)
}
