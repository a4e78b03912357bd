// Package fields validates object payloads against field definitions and
// coerces accepted values into the typed slot their field type selects.
package fields

import (
	"encoding/json"
	"strings"

	"github.com/mesh-intelligence/typegraph/pkg/types"
)

// Value slots. Exactly one is used per field type.
const (
	SlotText    = "value_text"
	SlotNumber  = "value_number"
	SlotDate    = "value_date"
	SlotBoolean = "value_boolean"
	SlotJSON    = "value_json"
)

// DateLayout is the stored form of date values. Datetimes are truncated to
// their date.
const DateLayout = "2006-01-02"

// SlotFor returns the value slot a field type stores into.
func SlotFor(fieldType string) string {
	switch fieldType {
	case types.FieldTypeNumber:
		return SlotNumber
	case types.FieldTypeDate:
		return SlotDate
	case types.FieldTypeBoolean:
		return SlotBoolean
	case types.FieldTypeFile:
		return SlotJSON
	default:
		return SlotText
	}
}

// Value is a coerced field value. At most one slot is set; a Value with no
// slot set is empty.
type Value struct {
	Text    *string
	Number  *float64
	Date    *string
	Boolean *bool
	JSON    *string
}

// IsEmpty reports whether no slot is set.
func (v Value) IsEmpty() bool {
	return v.Text == nil && v.Number == nil && v.Date == nil && v.Boolean == nil && v.JSON == nil
}

// Columns returns the five slot values in storage column order. Unset slots
// are nil so that every write clears the slots of the other types.
func (v Value) Columns() []any {
	return []any{ptrArg(v.Text), ptrArg(v.Number), ptrArg(v.Date), ptrArg(v.Boolean), ptrArg(v.JSON)}
}

func ptrArg[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

// Interface returns the value in its read form.
func (v Value) Interface() any {
	switch {
	case v.Number != nil:
		return *v.Number
	case v.Date != nil:
		return *v.Date
	case v.Boolean != nil:
		return *v.Boolean
	case v.JSON != nil:
		var decoded any
		if err := json.Unmarshal([]byte(*v.JSON), &decoded); err != nil {
			return *v.JSON
		}
		return decoded
	case v.Text != nil:
		return *v.Text
	default:
		return nil
	}
}

// IsEmpty reports whether a raw payload value counts as absent: nil, a
// whitespace-only string, or an empty list or map.
func IsEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []any:
		return len(t) == 0
	case []string:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	default:
		return false
	}
}
