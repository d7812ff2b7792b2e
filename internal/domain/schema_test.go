package domain

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePropertyID(t *testing.T) {
	cases := []struct {
		in   interface{}
		want int64
		ok   bool
	}{
		{float64(9), 9, true},
		{int64(4), 4, true},
		{"12", 12, true},
		{" 7 ", 7, true},
		{"7.0", 7, true},
		{json.Number("15"), 15, true},
		{2.5, 0, false},
		{"abc", 0, false},
		{nil, 0, false},
		{1e20, 0, false},
		{-1e20, 0, false},
		{"1e20", 0, false},
		{json.Number("1e20"), 0, false},
		{uint64(math.MaxUint64), 0, false},
		{uint64(math.MaxInt64), math.MaxInt64, true},
		{float64(1 << 53), 1 << 53, true},
	}
	for _, c := range cases {
		got, ok := ParsePropertyID(c.in)
		assert.Equal(t, c.ok, ok, "%v", c.in)
		assert.Equal(t, c.want, got, "%v", c.in)
	}
}

func TestStringValue(t *testing.T) {
	assert.Equal(t, "", StringValue(nil))
	assert.Equal(t, "10", StringValue(float64(10)))
	assert.Equal(t, "2.5", StringValue(2.5))
	assert.Equal(t, "true", StringValue(true))
	assert.Equal(t, "Angeles", StringValue("Angeles"))
}

func TestNumericValue(t *testing.T) {
	assert.Equal(t, float64(0), NumericValue("n/a"))
	assert.Equal(t, float64(0), NumericValue(nil))
	assert.Equal(t, float64(12), NumericValue("12"))
	assert.Equal(t, 3.5, NumericValue(3.5))
}

func TestParseSchema(t *testing.T) {
	doc := []byte(`
fields:
  - name: Status
    type: enum
    options: [Draft, Active]
  - name: Village
    required: true
  - name: Lot Area
    type: number
`)
	s, err := ParseSchema(doc)
	require.NoError(t, err)
	assert.Equal(t, []string{PropertyIDField, "Status", "Village", "Lot Area"}, s.Names())
	f, ok := s.Field("Village")
	require.True(t, ok)
	assert.Equal(t, FieldText, f.Type)
	assert.True(t, f.Required)
}

func TestParseSchema_Rejects(t *testing.T) {
	_, err := ParseSchema([]byte("fields: []"))
	assert.Error(t, err)
	_, err = ParseSchema([]byte("fields:\n  - name: A\n  - name: A\n"))
	assert.Error(t, err)
	_, err = ParseSchema([]byte("fields:\n  - name: A\n    type: enum\n"))
	assert.Error(t, err)
	_, err = ParseSchema([]byte("fields:\n  - name: A\n    type: money\n"))
	assert.Error(t, err)
}

func TestLoadSchema_EmptyPathUsesDefault(t *testing.T) {
	s, err := LoadSchema("")
	require.NoError(t, err)
	assert.Equal(t, DefaultSchema().Names(), s.Names())
}

func TestColumns_AppendsExtraKeysSorted(t *testing.T) {
	s := &Schema{Fields: []FieldDescriptor{{Name: PropertyIDField, Type: FieldID}, {Name: "Village"}}}
	rows := []Record{
		{PropertyIDField: 1, "Village": "A", "Zeta": "z"},
		{PropertyIDField: 2, "Photo 2": "x"},
	}
	assert.Equal(t, []string{PropertyIDField, "Village", "Photo 2", "Zeta"}, s.Columns(rows))
}

func TestDefaults(t *testing.T) {
	d := DefaultSchema().Defaults()
	assert.Equal(t, "Active", d["Status"])
	assert.Equal(t, "Residential", d["Type"])
	assert.Equal(t, "Seller", d["CGT"])
	assert.Equal(t, "Buyer", d["Transfer Title"])
	assert.Equal(t, "100", d["Lot Area"])
	assert.Equal(t, "100", d["Floor Area"])
	assert.Equal(t, "City of San Fernando", d["Location"])
	_, hasID := d[PropertyIDField]
	assert.False(t, hasID)
}

func TestValidate(t *testing.T) {
	s := DefaultSchema()

	err := s.Validate(Record{"Village": "Sta. Lucia"}, true)
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Location is required", verr.Fields["Location"])

	assert.NoError(t, s.Validate(Record{"Village": "Sta. Lucia"}, false))
	assert.Error(t, s.Validate(Record{"Village": "  "}, false))
	assert.Error(t, s.Validate(Record{"Status": "Sold"}, false))
	assert.Error(t, s.Validate(Record{"Lot Area": "big"}, false))
	assert.NoError(t, s.Validate(Record{"Lot Area": "120.5", "Custom": "anything"}, false))
	assert.NoError(t, s.Validate(Record{"Village": "V", "Location": "L", "Status": "Draft"}, true))
}

func TestNormalize(t *testing.T) {
	out := DefaultSchema().Normalize(Record{PropertyIDField: "42", "Village": "  Dau  "})
	assert.Equal(t, int64(42), out[PropertyIDField])
	assert.Equal(t, "Dau", out["Village"])
}

func TestListingRowRoundTrip(t *testing.T) {
	row, err := NewListingRow(5, Record{PropertyIDField: 5, "Village": "V"})
	require.NoError(t, err)
	assert.NotContains(t, string(row.Fields), PropertyIDField)
	rec, err := row.Record()
	require.NoError(t, err)
	assert.Equal(t, int64(5), rec[PropertyIDField])
	assert.Equal(t, "V", rec["Village"])
}
