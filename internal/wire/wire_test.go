// ABOUTME: Tests for wire ID encoding and envelope shapes.
// ABOUTME: Covers numeric/string identity forms and default_value omission.

package wire

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestID_KeepsWireForm(t *testing.T) {
	tests := []struct {
		name string
		in   string
		out  string
	}{
		{"number", `{"id":42,"plugin_name":"a","plugin_url":"u","parameters":[]}`, `42`},
		{"string", `{"id":"abc","plugin_name":"a","plugin_url":"u","parameters":[]}`, `"abc"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p Plugin
			require.NoError(t, json.Unmarshal([]byte(tt.in), &p))
			require.NotNil(t, p.ID)

			b, err := json.Marshal(p.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.out, string(b))
		})
	}
}

func TestID_RejectsOtherLiterals(t *testing.T) {
	var id ID
	assert.Error(t, json.Unmarshal([]byte(`true`), &id))
	assert.NoError(t, json.Unmarshal([]byte(`null`), &id))
	assert.True(t, id.IsZero())
}

func TestNumericID(t *testing.T) {
	id := NumericID(42)
	n, ok := id.Int64()
	assert.True(t, ok)
	assert.Equal(t, int64(42), n)
	assert.Equal(t, "42", id.String())

	_, ok = StringID("abc").Int64()
	assert.False(t, ok)
}

func TestPlugin_OmitsAbsentFields(t *testing.T) {
	p := Plugin{
		Name: "p1",
		URL:  "http://x",
		Parameters: []Parameter{
			{Key: "k1", Type: "string"},
			{Key: "k2", Type: "string", DefaultValue: ""},
		},
	}
	b, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"plugin_name": "p1",
		"plugin_url": "http://x",
		"parameters": [
			{"parameter_key": "k1", "parameter_type": "string", "is_mandatory": false, "is_read_only": false},
			{"parameter_key": "k2", "parameter_type": "string", "is_mandatory": false, "is_read_only": false, "default_value": ""}
		]
	}`, string(b))
}

func TestList(t *testing.T) {
	l := NewList(nil)
	b, err := json.Marshal(l)
	require.NoError(t, err)
	assert.JSONEq(t, `{"plugins": []}`, string(b))

	l = NewList([]Plugin{{Name: "a"}, {Name: "b"}})
	recs := l.Records()
	require.Len(t, recs, 2)
	assert.Equal(t, "b", recs[1].Key())
}
