package obs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical_SortsKeys(t *testing.T) {
	got, err := MarshalCanonical(map[string]any{
		"zebra": 1,
		"alpha": 2,
		"mike":  3,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":2,"mike":3,"zebra":1}`, string(got))
}

func TestMarshalCanonical_NestedObjects(t *testing.T) {
	got, err := MarshalCanonical(map[string]any{
		"outer": map[string]any{
			"b": []any{1, "two", true},
			"a": nil,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"outer":{"a":null,"b":[1,"two",true]}}`, string(got))
}

func TestMarshalCanonical_NoHTMLEscaping(t *testing.T) {
	got, err := MarshalCanonical(map[string]any{"html": "<a href=\"x\">&</a>"})
	require.NoError(t, err)
	assert.Equal(t, `{"html":"<a href=\"x\">&</a>"}`, string(got))
}

func TestMarshalCanonical_IntegralFloatMatchesInt(t *testing.T) {
	fromInt, err := MarshalCanonical(map[string]any{"count": 3})
	require.NoError(t, err)
	fromFloat, err := MarshalCanonical(map[string]any{"count": 3.0})
	require.NoError(t, err)
	assert.Equal(t, string(fromInt), string(fromFloat),
		"json-decoded integers arrive as float64 and must hash like ints")
}

func TestMarshalCanonical_FractionalFloat(t *testing.T) {
	got, err := MarshalCanonical(map[string]any{"ratio": 0.5})
	require.NoError(t, err)
	assert.Equal(t, `{"ratio":0.5}`, string(got))
}

func TestMarshalCanonical_RejectsNaN(t *testing.T) {
	_, err := MarshalCanonical(map[string]any{"bad": nan()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-finite")
}

func TestMarshalCanonical_RejectsUnsupportedType(t *testing.T) {
	_, err := MarshalCanonical(map[string]any{"ch": make(chan int)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported type")
}

func TestMarshalCanonical_NFCNormalization(t *testing.T) {
	// "é" as a single code point vs "e" + combining acute accent.
	composed, err := MarshalCanonical("café")
	require.NoError(t, err)
	decomposed, err := MarshalCanonical("café")
	require.NoError(t, err)
	assert.Equal(t, string(composed), string(decomposed))
}

func nan() float64 {
	zero := 0.0
	return zero / zero
}
