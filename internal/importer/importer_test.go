// ABOUTME: Tests for parameter file import.
// ABOUTME: Covers JSON and YAML documents, missing params and unknown extensions.

package importer

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/2389/pluginadmin/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead_JSON(t *testing.T) {
	doc := `{"params":[
		{"parameter_key":"city","parameter_type":"string","is_mandatory":true,"is_read_only":false},
		{"id":7,"parameter_key":"days","parameter_type":"integer","is_mandatory":false,"is_read_only":true,"default_value":3}
	]}`

	params, err := Read(strings.NewReader(doc), FormatJSON)
	require.NoError(t, err)
	require.Len(t, params, 2)
	assert.Equal(t, "city", params[0].Key)
	assert.True(t, params[0].Mandatory)
	assert.Nil(t, params[0].ID)
	assert.Equal(t, "7", params[1].ID.String())
	assert.Equal(t, json.Number("3"), params[1].DefaultValue)
	assert.True(t, params[1].ReadOnly)
}

func TestRead_YAML(t *testing.T) {
	doc := `
params:
  - parameter_key: city
    parameter_type: string
    is_mandatory: true
    default_value: Oslo
  - parameter_key: days
    parameter_type: integer
    default_value: 3
`
	params, err := Read(strings.NewReader(doc), FormatYAML)
	require.NoError(t, err)
	require.Len(t, params, 2)
	assert.Equal(t, "Oslo", params[0].DefaultValue)
	assert.Equal(t, "integer", params[1].Type)
	assert.Equal(t, json.Number("3"), params[1].DefaultValue)
}

func TestRead_MissingParams(t *testing.T) {
	tests := []struct {
		name   string
		doc    string
		format Format
	}{
		{"json object without params", `{"parameters":[]}`, FormatJSON},
		{"json null params", `{"params":null}`, FormatJSON},
		{"yaml without params", "other: 1\n", FormatYAML},
		{"empty yaml", "", FormatYAML},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.doc), tt.format)
			assert.ErrorIs(t, err, wire.ErrMissingParams)
		})
	}
}

func TestRead_EmptyParamsIsValid(t *testing.T) {
	params, err := Read(strings.NewReader(`{"params":[]}`), FormatJSON)
	require.NoError(t, err)
	assert.Empty(t, params)
}

func TestRead_Malformed(t *testing.T) {
	_, err := Read(strings.NewReader(`{"params":`), FormatJSON)
	assert.Error(t, err)
	_, err = Read(strings.NewReader("params: [\n"), FormatYAML)
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "weather.yml")
	require.NoError(t, os.WriteFile(path, []byte("params:\n  - parameter_key: unit\n    parameter_type: string\n"), 0o644))

	params, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, params, 1)
	assert.Equal(t, "unit", params[0].Key)

	_, err = LoadFile(filepath.Join(dir, "weather.toml"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestFormatFor(t *testing.T) {
	for path, want := range map[string]Format{
		"a.json": FormatJSON,
		"a.JSON": FormatJSON,
		"a.yaml": FormatYAML,
		"b.yml":  FormatYAML,
	} {
		got, err := FormatFor(path)
		require.NoError(t, err, path)
		assert.Equal(t, want, got, path)
	}
}
