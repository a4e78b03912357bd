package fields

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/mesh-intelligence/typegraph/pkg/types"
)

// dateLayouts are the ISO-8601 forms accepted for date fields.
var dateLayouts = []string{
	DateLayout,
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
}

// Coerce converts a non-empty raw value into the slot its field type uses.
// The returned message is empty on success.
func Coerce(f *types.ObjectField, raw any) (Value, string) {
	switch f.FieldType {
	case types.FieldTypeNumber:
		n, ok := toNumber(raw)
		if !ok {
			return Value{}, "must be a number"
		}
		return Value{Number: &n}, ""
	case types.FieldTypeDate:
		d, ok := toDate(raw)
		if !ok {
			return Value{}, "must be an ISO-8601 date"
		}
		return Value{Date: &d}, ""
	case types.FieldTypeBoolean:
		b, ok := toBoolean(raw)
		if !ok {
			return Value{}, "must be a boolean"
		}
		return Value{Boolean: &b}, ""
	case types.FieldTypeFile:
		data, err := json.Marshal(raw)
		if err != nil {
			return Value{}, "must be JSON encodable"
		}
		s := string(data)
		return Value{JSON: &s}, ""
	case types.FieldTypeSelect:
		s, ok := toText(raw)
		if !ok {
			return Value{}, "must be a single option"
		}
		opts, err := ParseOptions(f.FieldOptions)
		if err != nil {
			return Value{}, "has unreadable options"
		}
		if !opts.Accepts(s) {
			return Value{}, "must be one of: " + strings.Join(opts.Values, ", ")
		}
		return Value{Text: &s}, ""
	default:
		s, ok := toText(raw)
		if !ok {
			return Value{}, "must be text"
		}
		return Value{Text: &s}, ""
	}
}

func toNumber(raw any) (float64, bool) {
	var n float64
	switch t := raw.(type) {
	case float64:
		n = t
	case float32:
		n = float64(t)
	case int:
		n = float64(t)
	case int64:
		n = float64(t)
	case int32:
		n = float64(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, false
		}
		n = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		n = f
	default:
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

// toDate accepts a date or an ISO-8601 datetime and keeps only the calendar
// date, read in the value's own offset. Date fields store days, so the time
// of day is dropped: "2024-03-01T23:30:00+02:00" becomes "2024-03-01".
func toDate(raw any) (string, bool) {
	switch t := raw.(type) {
	case time.Time:
		return t.Format(DateLayout), true
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range dateLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed.Format(DateLayout), true
			}
		}
	}
	return "", false
}

func toBoolean(raw any) (bool, bool) {
	switch t := raw.(type) {
	case bool:
		return t, true
	case string:
		switch t {
		case "true", "1":
			return true, true
		case "false", "0":
			return false, true
		}
	case float64:
		if t == 0 || t == 1 {
			return t == 1, true
		}
	case int:
		if t == 0 || t == 1 {
			return t == 1, true
		}
	case int64:
		if t == 0 || t == 1 {
			return t == 1, true
		}
	}
	return false, false
}

func toText(raw any) (string, bool) {
	switch t := raw.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int, int64, int32, bool, json.Number:
		return fmt.Sprint(t), true
	default:
		return "", false
	}
}
