package fields

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/mesh-intelligence/typegraph/errors"
	"github.com/mesh-intelligence/typegraph/pkg/types"
)

// Options is the parsed form of a select field's field_options. Options
// backed by a dynamic source are accepted without local validation.
type Options struct {
	Values  []string
	Dynamic bool
}

// Accepts reports whether v is a legal selection.
func (o Options) Accepts(v string) bool {
	if o.Dynamic || len(o.Values) == 0 {
		return true
	}
	for _, opt := range o.Values {
		if opt == v {
			return true
		}
	}
	return false
}

// ParseOptions reads field_options in any of its stored shapes: a JSON list
// of literals, an object with a "values" list, an object naming a dynamic
// "source", or a comma-separated string.
func ParseOptions(raw json.RawMessage) (Options, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Options{}, nil
	}

	switch raw[0] {
	case '[':
		var list []any
		if err := json.Unmarshal(raw, &list); err != nil {
			return Options{}, errors.Wrap(types.ErrInvalidFieldOptions, err.Error())
		}
		return Options{Values: literals(list)}, nil
	case '{':
		var obj map[string]any
		if err := json.Unmarshal(raw, &obj); err != nil {
			return Options{}, errors.Wrap(types.ErrInvalidFieldOptions, err.Error())
		}
		if list, ok := obj["values"].([]any); ok {
			return Options{Values: literals(list)}, nil
		}
		// Any other object references an external source.
		return Options{Dynamic: true}, nil
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Options{}, errors.Wrap(types.ErrInvalidFieldOptions, err.Error())
		}
		return Options{Values: splitComma(s)}, nil
	default:
		return Options{}, errors.Wrapf(types.ErrInvalidFieldOptions, "unsupported options %s", raw)
	}
}

// NormalizeOptions accepts options given as JSON or as a bare
// comma-separated string and returns them as JSON.
func NormalizeOptions(s string) (json.RawMessage, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if json.Valid([]byte(s)) {
		if _, err := ParseOptions(json.RawMessage(s)); err != nil {
			return nil, err
		}
		return json.RawMessage(s), nil
	}
	list := splitComma(s)
	data, err := json.Marshal(list)
	if err != nil {
		return nil, errors.Wrap(err, "encode options")
	}
	return data, nil
}

func literals(list []any) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		switch t := v.(type) {
		case string:
			out = append(out, t)
		case float64:
			out = append(out, strconv.FormatFloat(t, 'f', -1, 64))
		case nil:
		default:
			out = append(out, fmt.Sprint(t))
		}
	}
	return out
}

func splitComma(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
