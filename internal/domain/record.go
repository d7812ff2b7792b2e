package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// PropertyIDField is the field every listing is keyed by.
const PropertyIDField = "Property ID"

// Record is one listing row as stored remotely: field name to value.
type Record map[string]interface{}

// PropertyID returns the record's id when it holds a whole number.
func (r Record) PropertyID() (int64, bool) {
	return ParsePropertyID(r[PropertyIDField])
}

// String returns the string form of a field ("" when absent).
func (r Record) String(field string) string {
	return StringValue(r[field])
}

// Clone returns a shallow copy.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// ParsePropertyID accepts the shapes an id arrives in: JSON numbers,
// Go integers and numeric strings.
func ParsePropertyID(v interface{}) (int64, bool) {
	switch t := v.(type) {
	case int:
		return int64(t), true
	case int32:
		return int64(t), true
	case int64:
		return t, true
	case uint:
		return uintID(uint64(t))
	case uint32:
		return int64(t), true
	case uint64:
		return uintID(t)
	case float32:
		return floatID(float64(t))
	case float64:
		return floatID(t)
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i, true
		}
		f, err := t.Float64()
		if err != nil {
			return 0, false
		}
		return floatID(f)
	case string:
		s := strings.TrimSpace(t)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, true
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return floatID(f)
	}
	return 0, false
}

func uintID(u uint64) (int64, bool) {
	if u > math.MaxInt64 {
		return 0, false
	}
	return int64(u), true
}

// floatID accepts whole floats inside the int64 range. 2^63 itself is the
// first float64 above MaxInt64, so the upper bound is exclusive.
func floatID(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

// NumericValue mirrors a lenient number coercion: anything that does not
// parse as a finite number is 0.
func NumericValue(v interface{}) float64 {
	switch t := v.(type) {
	case nil:
		return 0
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0
		}
		return t
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0
		}
		return f
	case bool:
		if t {
			return 1
		}
		return 0
	}
	s := strings.TrimSpace(StringValue(v))
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// StringValue is the string form used by search, filters and share text.
// Whole floats print without a fractional part; nil is the empty string.
func StringValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return t.String()
	case fmt.Stringer:
		return t.String()
	}
	return fmt.Sprint(v)
}
