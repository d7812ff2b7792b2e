package domain

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// FieldType selects validation and the editor widget for a field.
type FieldType string

const (
	FieldID       FieldType = "id"
	FieldText     FieldType = "text"
	FieldTextarea FieldType = "textarea"
	FieldNumber   FieldType = "number"
	FieldEnum     FieldType = "enum"
	FieldURL      FieldType = "url"
)

// FieldDescriptor describes one listing field.
type FieldDescriptor struct {
	Name     string    `yaml:"name" json:"name"`
	Type     FieldType `yaml:"type" json:"type"`
	Options  []string  `yaml:"options,omitempty" json:"options,omitempty"`
	Required bool      `yaml:"required,omitempty" json:"required"`
	Default  string    `yaml:"default,omitempty" json:"default,omitempty"`
}

// Schema is the ordered field list records are validated against.
type Schema struct {
	Fields []FieldDescriptor `yaml:"fields" json:"fields"`
}

// DefaultSchema returns the listing fields used when no schema file is configured.
func DefaultSchema() *Schema {
	return &Schema{Fields: []FieldDescriptor{
		{Name: PropertyIDField, Type: FieldID},
		{Name: "Status", Type: FieldEnum, Options: []string{"Draft", "Active"}, Default: "Active"},
		{Name: "Type", Type: FieldEnum, Options: []string{"Residential", "Lot"}, Default: "Residential"},
		{Name: "Village", Type: FieldText, Required: true},
		{Name: "Location", Type: FieldText, Required: true, Default: "City of San Fernando"},
		{Name: "Listing Agent", Type: FieldText},
		{Name: "Listing Price", Type: FieldText},
		{Name: "Lot Area", Type: FieldNumber, Default: "100"},
		{Name: "Floor Area", Type: FieldNumber, Default: "100"},
		{Name: "CGT", Type: FieldEnum, Options: []string{"Seller", "Buyer"}, Default: "Seller"},
		{Name: "Transfer Title", Type: FieldEnum, Options: []string{"Buyer", "Seller"}, Default: "Buyer"},
		{Name: "Negotiable", Type: FieldEnum, Options: []string{"Yes", "No"}},
		{Name: "Notes", Type: FieldTextarea},
		{Name: "Photos", Type: FieldURL},
		{Name: "Video", Type: FieldURL},
	}}
}

// LoadSchema reads a YAML schema file. An empty path yields DefaultSchema.
func LoadSchema(path string) (*Schema, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultSchema(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	return ParseSchema(data)
}

// ParseSchema decodes and checks a YAML schema document. The id field is
// prepended when the document omits it.
func ParseSchema(data []byte) (*Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	if len(s.Fields) == 0 {
		return nil, errors.New("schema has no fields")
	}
	seen := make(map[string]bool, len(s.Fields))
	hasID := false
	for i := range s.Fields {
		f := &s.Fields[i]
		f.Name = strings.TrimSpace(f.Name)
		if f.Name == "" {
			return nil, fmt.Errorf("schema field %d has no name", i)
		}
		if seen[f.Name] {
			return nil, fmt.Errorf("schema field %q declared twice", f.Name)
		}
		seen[f.Name] = true
		if f.Type == "" {
			f.Type = FieldText
		}
		switch f.Type {
		case FieldID, FieldText, FieldTextarea, FieldNumber, FieldURL:
		case FieldEnum:
			if len(f.Options) == 0 {
				return nil, fmt.Errorf("enum field %q has no options", f.Name)
			}
		default:
			return nil, fmt.Errorf("schema field %q has unknown type %q", f.Name, f.Type)
		}
		if f.Name == PropertyIDField {
			f.Type = FieldID
			hasID = true
		}
	}
	if !hasID {
		s.Fields = append([]FieldDescriptor{{Name: PropertyIDField, Type: FieldID}}, s.Fields...)
	}
	return &s, nil
}

// Field looks up a descriptor by exact name.
func (s *Schema) Field(name string) (FieldDescriptor, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDescriptor{}, false
}

// Names returns the field names in schema order.
func (s *Schema) Names() []string {
	out := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		out[i] = f.Name
	}
	return out
}

// Columns is the schema order followed by any extra keys present in rows,
// sorted by name.
func (s *Schema) Columns(rows []Record) []string {
	cols := s.Names()
	known := make(map[string]bool, len(cols))
	for _, c := range cols {
		known[c] = true
	}
	var extra []string
	for _, r := range rows {
		for k := range r {
			if !known[k] {
				known[k] = true
				extra = append(extra, k)
			}
		}
	}
	sort.Strings(extra)
	return append(cols, extra...)
}

// Defaults returns a record holding every non-id field that declares a default.
func (s *Schema) Defaults() Record {
	rec := Record{}
	for _, f := range s.Fields {
		if f.Type == FieldID {
			continue
		}
		if f.Default != "" {
			rec[f.Name] = f.Default
		}
	}
	return rec
}

// Normalize trims string values and coerces the id field to int64.
func (s *Schema) Normalize(rec Record) Record {
	out := make(Record, len(rec))
	for k, v := range rec {
		if str, ok := v.(string); ok {
			v = strings.TrimSpace(str)
		}
		out[k] = v
	}
	if raw, ok := out[PropertyIDField]; ok {
		if id, ok := ParsePropertyID(raw); ok {
			out[PropertyIDField] = id
		}
	}
	return out
}

// ValidationError maps field names to problems.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = e.Fields[k]
	}
	return strings.Join(parts, "; ")
}

// Validate checks rec against the descriptors. Enum values must be one of
// the options and numbers must parse. Required fields that are present must
// be non-blank; with requireAll they must also be present. Unknown fields
// pass unchecked.
func (s *Schema) Validate(rec Record, requireAll bool) error {
	problems := map[string]string{}
	for _, f := range s.Fields {
		raw, present := rec[f.Name]
		val := strings.TrimSpace(StringValue(raw))
		if f.Required && val == "" && (present || requireAll) {
			problems[f.Name] = f.Name + " is required"
			continue
		}
		if !present || val == "" {
			continue
		}
		switch f.Type {
		case FieldID:
			if _, ok := ParsePropertyID(raw); !ok {
				problems[f.Name] = f.Name + " must be a whole number"
			}
		case FieldNumber:
			if _, err := strconv.ParseFloat(val, 64); err != nil {
				problems[f.Name] = f.Name + " must be a number"
			}
		case FieldEnum:
			if !contains(f.Options, val) {
				problems[f.Name] = fmt.Sprintf("%s must be one of %s", f.Name, strings.Join(f.Options, ", "))
			}
		}
	}
	if len(problems) > 0 {
		return &ValidationError{Fields: problems}
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
