package schema_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wkalt/ulog/schema"
)

func TestParseField(t *testing.T) {
	cases := []struct {
		assertion   string
		input       string
		typeName    string
		name        string
		arrayLength int
	}{
		{
			"scalar",
			"uint64_t timestamp",
			"uint64_t",
			"timestamp",
			-1,
		},
		{
			"array",
			"uint32_t[3] array",
			"uint32_t",
			"array",
			3,
		},
		{
			"char array",
			"char[17] string",
			"char",
			"string",
			17,
		},
		{
			"zero length array",
			"uint8_t[0] empty",
			"uint8_t",
			"empty",
			0,
		},
		{
			"nested type",
			"child_1_type child_1",
			"child_1_type",
			"child_1",
			-1,
		},
		{
			"nested array",
			"child_1_2_type[3] child_1_2",
			"child_1_2_type",
			"child_1_2",
			3,
		},
	}
	for _, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			field, err := schema.ParseField(c.input)
			require.NoError(t, err)
			require.Equal(t, c.typeName, field.TypeName)
			require.Equal(t, c.name, field.Name)
			require.Equal(t, c.arrayLength, field.ArrayLength)
			require.Equal(t, c.input, field.Encode())
		})
	}
}

func TestParseFieldErrors(t *testing.T) {
	cases := []struct {
		assertion string
		input     string
	}{
		{"no space between type and name", "uint64_ttimestamp"},
		{"missing closing bracket", "char[17 string"},
		{"unclosed bracket without length", "char[ string"},
		{"missing space after bracket", "char[17]string"},
		{"negative array length", "char[-3] string"},
		{"empty array length", "char[] string"},
		{"trailing garbage", "uint64_t timestamp extra"},
		{"empty input", ""},
	}
	for _, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			_, err := schema.ParseField(c.input)
			require.Error(t, err)
		})
	}
}

func TestParseFormat(t *testing.T) {
	t.Run("simple format", func(t *testing.T) {
		format, err := schema.ParseFormat(
			[]byte("other_message:uint64_t timestamp;uint32_t[3] array;uint16_t x;"))
		require.NoError(t, err)
		require.Equal(t, "other_message", format.Name())
		require.Equal(t, []string{"timestamp", "array", "x"}, format.FieldNames())
		require.Equal(t,
			"other_message:uint64_t timestamp;uint32_t[3] array;uint16_t x;",
			format.Encode())
	})

	t.Run("empty field list", func(t *testing.T) {
		format, err := schema.ParseFormat([]byte("empty_message:"))
		require.NoError(t, err)
		require.Empty(t, format.Fields())
	})

	t.Run("format name with slash and dash", func(t *testing.T) {
		format, err := schema.ParseFormat([]byte("vehicle/local-position:uint64_t timestamp;"))
		require.NoError(t, err)
		require.Equal(t, "vehicle/local-position", format.Name())
	})
}

func TestParseFormatErrors(t *testing.T) {
	cases := []struct {
		assertion string
		input     string
	}{
		{"missing colon", "other_message uint64_t timestamp;"},
		{"missing field terminator", "other_message:uint64_t timestamp"},
		{"missing terminator on second field", "other_message:uint64_t timestamp;uint16_t x"},
		{"malformed field", "other_message:uint64_t;"},
		{"empty input", ""},
	}
	for _, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			_, err := schema.ParseFormat([]byte(c.input))
			require.Error(t, err)
		})
	}
}

func TestFormatEquality(t *testing.T) {
	a, err := schema.ParseFormat([]byte("m:uint64_t timestamp;uint16_t x;"))
	require.NoError(t, err)
	b, err := schema.ParseFormat([]byte("m:uint64_t timestamp;uint16_t x;"))
	require.NoError(t, err)
	c, err := schema.ParseFormat([]byte("m:uint64_t timestamp;uint32_t x;"))
	require.NoError(t, err)

	require.True(t, a.Equal(b))
	require.False(t, a.Equal(c))
}
