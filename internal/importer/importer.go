// ABOUTME: Reads bulk parameter files for import into a plugin record.
// ABOUTME: Accepts JSON or YAML documents carrying a top-level params array.

package importer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/2389/pluginadmin/internal/wire"
	"gopkg.in/yaml.v3"
)

// Format is the encoding of a parameter file.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

var ErrUnsupportedFormat = errors.New("unsupported parameter file format")

// FormatFor picks the format from the file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// LoadFile reads the parameters listed in the file at path.
func LoadFile(path string) ([]wire.Parameter, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f, format)
}

// Read decodes a parameter document. A document without a params array
// returns wire.ErrMissingParams; an empty array is valid.
func Read(r io.Reader, format Format) ([]wire.Parameter, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatJSON:
	case FormatYAML:
		raw, err = yamlToJSON(raw)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	var doc struct {
		Params *[]wire.Parameter `json:"params"`
	}
	if err := wire.Decode(bytes.NewReader(raw), &doc); err != nil {
		return nil, fmt.Errorf("failed to parse parameter file: %w", err)
	}
	if doc.Params == nil {
		return nil, wire.ErrMissingParams
	}
	return *doc.Params, nil
}

// yamlToJSON re-encodes a YAML document so the wire types' JSON decoding
// (opaque ids, untyped defaults) applies unchanged.
func yamlToJSON(raw []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse parameter file: %w", err)
	}
	if doc == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(doc)
}
