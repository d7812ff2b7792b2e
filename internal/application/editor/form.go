package editor

import (
	"errors"

	"mliang-listings/internal/domain"
)

// Widget is the input control rendered for a field.
type Widget string

const (
	WidgetReadonly Widget = "readonly"
	WidgetSelect   Widget = "select"
	WidgetNumber   Widget = "number"
	WidgetTextarea Widget = "textarea"
	WidgetURL      Widget = "url"
	WidgetText     Widget = "text"
)

// Mode of the editor dialog.
type Mode string

const (
	ModeCreate Mode = "create"
	ModeEdit   Mode = "edit"
)

var ErrEditNeedsID = errors.New("Editing requires a listing with a Property ID")

// FormField is one input of the editor.
type FormField struct {
	Name     string      `json:"name"`
	Widget   Widget      `json:"widget"`
	Options  []string    `json:"options,omitempty"`
	Step     int         `json:"step,omitempty"`
	Required bool        `json:"required"`
	Value    interface{} `json:"value"`
}

// Form is the editor model for one record.
type Form struct {
	Mode       Mode        `json:"mode"`
	PropertyID int64       `json:"property_id"`
	Fields     []FormField `json:"fields"`
}

// BuildForm lays out one input per column. The widget comes from the
// field's descriptor, matched by exact name; unknown fields get a text input.
func BuildForm(schema *domain.Schema, rec domain.Record, columns []string, mode Mode) (*Form, error) {
	id, hasID := rec.PropertyID()
	if mode == ModeEdit && !hasID {
		return nil, ErrEditNeedsID
	}
	form := &Form{Mode: mode, PropertyID: id, Fields: make([]FormField, 0, len(columns))}
	for _, col := range columns {
		desc, known := schema.Field(col)
		field := FormField{Name: col, Widget: WidgetText, Value: rec[col]}
		if known {
			field.Widget = widgetFor(desc)
			field.Required = desc.Required
			if desc.Type == domain.FieldEnum {
				field.Options = desc.Options
			}
			if desc.Type == domain.FieldNumber {
				field.Step = 1
			}
			if _, set := rec[col]; !set && mode == ModeCreate && desc.Default != "" {
				field.Value = desc.Default
			}
		}
		if col == domain.PropertyIDField {
			field.Widget = WidgetReadonly
		}
		if field.Value == nil {
			field.Value = ""
		}
		form.Fields = append(form.Fields, field)
	}
	return form, nil
}

func widgetFor(d domain.FieldDescriptor) Widget {
	switch d.Type {
	case domain.FieldID:
		return WidgetReadonly
	case domain.FieldEnum:
		return WidgetSelect
	case domain.FieldNumber:
		return WidgetNumber
	case domain.FieldTextarea:
		return WidgetTextarea
	case domain.FieldURL:
		return WidgetURL
	}
	return WidgetText
}
