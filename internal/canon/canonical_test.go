package canon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"string", "hello", `"hello"`},
		{"empty string", "", `""`},
		{"int", 42, "42"},
		{"negative int64", int64(-100), "-100"},
		{"min int64", int64(-9223372036854775808), "-9223372036854775808"},
		{"bool true", true, "true"},
		{"bool false", false, "false"},
		{"empty array", []any{}, "[]"},
		{"string slice", []string{"a", "b"}, `["a","b"]`},
		{"empty object", Object{}, "{}"},
		{"mixed array", []any{1, "x", true}, `[1,"x",true]`},
		{"map", map[string]any{"a": 1}, `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Marshal(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(got))
		})
	}
}

func TestMarshalSortedKeys(t *testing.T) {
	obj := Object{
		"zebra": 1,
		"alpha": 2,
		"nested": Object{
			"b": 1,
			"a": 2,
		},
	}
	got, err := Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":2,"nested":{"a":2,"b":1},"zebra":1}`, string(got))
}

func TestMarshalUTF16Ordering(t *testing.T) {
	// U+10000 encodes as the surrogate pair D800 DC00, which sorts before
	// U+E000 in UTF-16 but after it in UTF-8.
	obj := Object{
		"\ue000":     1,
		"\U00010000": 2,
	}
	got, err := Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"`+"\U00010000"+`":2,"`+"\ue000"+`":1}`, string(got))
}

func TestMarshalNoHTMLEscape(t *testing.T) {
	got, err := Marshal("a<b && c>d")
	require.NoError(t, err)
	assert.Equal(t, `"a<b && c>d"`, string(got))
}

func TestMarshalRejects(t *testing.T) {
	tests := []struct {
		name  string
		input any
	}{
		{"null", nil},
		{"float", 1.5},
		{"nested float", Object{"x": []any{float32(2)}}},
		{"unsupported", struct{}{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Marshal(tt.input)
			assert.Error(t, err)
		})
	}
}

func TestMarshalNFCNormalization(t *testing.T) {
	// "e" followed by a combining acute accent composes to U+00E9.
	decomposed := "caf" + "e\u0301"
	got, err := Marshal(Object{decomposed: decomposed})
	require.NoError(t, err)
	assert.Equal(t, "{\"caf\u00e9\":\"caf\u00e9\"}", string(got))
}

func TestMarshalLineSeparators(t *testing.T) {
	got, err := Marshal("a\u2028b\u2029c")
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\u2029c\"", string(got))

	// A literal backslash followed by the text u2028 stays escaped.
	got, err = Marshal(`x\u2028`)
	require.NoError(t, err)
	assert.Equal(t, `"x\\u2028"`, string(got))
}

func TestMarshalControlCharacters(t *testing.T) {
	got, err := Marshal("tab\tquote\"slash\\")
	require.NoError(t, err)
	assert.Equal(t, `"tab\tquote\"slash\\"`, string(got))
}
