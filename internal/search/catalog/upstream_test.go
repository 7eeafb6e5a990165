package catalog

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionalString_Unmarshal(t *testing.T) {
	tests := []struct {
		raw       string
		wantValid bool
		wantValue string
	}{
		{raw: `"abc"`, wantValid: true, wantValue: "abc"},
		{raw: `""`, wantValid: true, wantValue: ""},
		{raw: `42`, wantValid: true, wantValue: "42"},
		{raw: `1.5`, wantValid: true, wantValue: "1.5"},
		{raw: `true`, wantValid: true, wantValue: "true"},
		{raw: `null`, wantValid: false},
		{raw: `{"a":1}`, wantValid: false},
		{raw: `[1,2]`, wantValid: false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			var o optionalString
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &o))
			assert.Equal(t, tt.wantValid, o.valid)
			assert.Equal(t, tt.wantValue, o.value)
		})
	}
}

func TestDecodeRestrictions(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{name: "missing", raw: ``, want: nil},
		{name: "null", raw: `null`, want: nil},
		{name: "single string", raw: `"Authority required"`, want: []string{"Authority required"}},
		{name: "blank string", raw: `"  "`, want: nil},
		{name: "string list", raw: `["A","","B"]`, want: []string{"A", "B"}},
		{name: "object list", raw: `[{"text":"Streamlined"},{"code":1234},{"other":"x"}]`, want: []string{"Streamlined", "1234"}},
		{name: "wrong type", raw: `42`, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, decodeRestrictions(json.RawMessage(tt.raw)))
		})
	}
}

func TestAmtItem_ToRecordRequiresName(t *testing.T) {
	var it amtItem
	require.NoError(t, json.Unmarshal([]byte(`{"medicine_name":"","generic_name":null}`), &it))

	_, ok := it.toRecord()
	assert.False(t, ok)
}
