package assessment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAsList(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected []any
	}{
		{name: "nil is empty", input: nil, expected: nil},
		{name: "empty string is empty", input: "", expected: nil},
		{name: "scalar string wraps", input: "GB-1", expected: []any{"GB-1"}},
		{name: "scalar number wraps", input: 2.0, expected: []any{2.0}},
		{name: "generic list passes through", input: []any{"a", "b"}, expected: []any{"a", "b"}},
		{name: "typed string slice converts", input: []string{"a", "b"}, expected: []any{"a", "b"}},
		{name: "typed float slice converts", input: []float64{60, 40}, expected: []any{60.0, 40.0}},
		{name: "empty list stays empty", input: []any{}, expected: []any{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, AsList(tt.input))
		})
	}
}

func TestRecordAccessors(t *testing.T) {
	r := Record{
		FieldIdentifier: "GB-GOV-1-300001",
		FieldTitle:      []any{"First narrative", "Second narrative"},
		FieldSectorCode: []any{15170.0, "15110"},
	}

	assert.Equal(t, "GB-GOV-1-300001", r.Identifier())
	assert.Equal(t, "First narrative", r.First(FieldTitle))
	assert.Equal(t, []string{"15170", "15110"}, r.Strings(FieldSectorCode))
	assert.Empty(t, r.First(FieldDescription))
	assert.Nil(t, r.Strings(FieldDescription))
}

func TestRecordHierarchy(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		expected int
	}{
		{name: "missing defaults to project", value: nil, expected: 2},
		{name: "numeric programme", value: 1.0, expected: 1},
		{name: "integer programme", value: 1, expected: 1},
		{name: "string programme", value: "1", expected: 1},
		{name: "project", value: 2.0, expected: 2},
		{name: "deeper levels count as projects", value: 3.0, expected: 2},
		{name: "garbage defaults to project", value: "top", expected: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Record{}
			if tt.value != nil {
				r[FieldHierarchy] = tt.value
			}
			assert.Equal(t, tt.expected, r.Hierarchy())
		})
	}
}

func TestParseISODate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "date only", input: "2020-01-15", want: "2020-01-15T00:00:00Z"},
		{name: "zulu suffix", input: "2020-01-15T10:30:00Z", want: "2020-01-15T10:30:00Z"},
		{name: "explicit offset", input: "2020-01-15T10:30:00+02:00", want: "2020-01-15T08:30:00Z"},
		{name: "naive datetime is UTC", input: "2020-01-15T10:30:00", want: "2020-01-15T10:30:00Z"},
		{name: "fractional seconds", input: "2020-01-15T10:30:00.123Z", want: "2020-01-15T10:30:00.123Z"},
		{name: "surrounding whitespace", input: " 2020-01-15 ", want: "2020-01-15T00:00:00Z"},
		{name: "empty", input: "", wantErr: true},
		{name: "not a date", input: "not-a-date", wantErr: true},
		{name: "impossible day", input: "2020-02-30", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseISODate(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got.UTC().Format("2006-01-02T15:04:05.999999999Z07:00"))
		})
	}
}
