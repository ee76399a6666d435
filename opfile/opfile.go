// Package opfile reads batch operations from JSON, YAML and TOML files.
//
// A file holds a top-level "operations" list:
//
//	operations:
//	  - id: parent
//	    type: create
//	    endpoint: /users
//	    data:
//	      name: ann
//	  - type: create
//	    endpoint: /users/$parent.id/posts
//	    dependsOn: [parent]
//
// JSON and YAML files may also hold the bare list.
package opfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/smartcontractkit/batchops/batch"
)

// Format is the encoding of an operations file.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// ErrNoOperations is returned when a file holds no operation.
var ErrNoOperations = errors.New("no operations found")

// FormatFromPath picks the format of a file from its extension.
func FormatFromPath(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("unsupported operations file extension %q: use .json, .yaml, .yml or .toml", ext)
	}
}

// file is the shape of an operations file.
type file struct {
	Operations []batch.Operation `json:"operations" yaml:"operations"`
}

// Load reads the operations of the file at path.
func Load(path string) ([]batch.Operation, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open operations file: %w", err)
	}
	defer f.Close()

	ops, err := Decode(f, format)
	if err != nil {
		return nil, fmt.Errorf("failed to parse operations file %s: %w", path, err)
	}

	return ops, nil
}

// Decode reads operations encoded in format from r.
func Decode(r io.Reader, format Format) ([]batch.Operation, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var ops []batch.Operation
	switch format {
	case FormatJSON:
		ops, err = decodeJSON(b)
	case FormatYAML:
		ops, err = decodeYAML(b)
	case FormatTOML:
		ops, err = decodeTOML(b)
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
	if err != nil {
		return nil, err
	}

	if len(ops) == 0 {
		return nil, ErrNoOperations
	}
	for i, op := range ops {
		if op.Type == "" {
			return nil, fmt.Errorf("operation %d: type is required", i)
		}
	}

	return ops, nil
}

func decodeJSON(b []byte) ([]batch.Operation, error) {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var ops []batch.Operation
		if err := json.Unmarshal(trimmed, &ops); err != nil {
			return nil, err
		}

		return ops, nil
	}

	var f file
	if err := json.Unmarshal(trimmed, &f); err != nil {
		return nil, err
	}

	return f.Operations, nil
}

func decodeYAML(b []byte) ([]batch.Operation, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(b, &root); err != nil {
		return nil, err
	}
	// An empty document has no content.
	if len(root.Content) == 0 {
		return nil, nil
	}

	doc := root.Content[0]
	if doc.Kind == yaml.SequenceNode {
		var ops []batch.Operation
		if err := doc.Decode(&ops); err != nil {
			return nil, err
		}

		return ops, nil
	}

	var f file
	if err := doc.Decode(&f); err != nil {
		return nil, err
	}

	return f.Operations, nil
}

// decodeTOML goes through JSON so that operation data is decoded by the same rules as the
// other formats.
func decodeTOML(b []byte) ([]batch.Operation, error) {
	var tree map[string]any
	if err := toml.Unmarshal(b, &tree); err != nil {
		return nil, err
	}

	j, err := json.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("failed to convert TOML to JSON: %w", err)
	}

	return decodeJSON(j)
}
