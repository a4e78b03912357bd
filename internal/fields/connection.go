package fields

import (
	"strings"

	"github.com/mesh-intelligence/typegraph/pkg/types"
)

// ConnectionName joins the two endpoint descriptions as "{lesser} - {greater}"
// ordered case-insensitively. Both must be non-empty.
func ConnectionName(a, b string) (string, bool) {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == "" || b == "" {
		return "", false
	}
	la, lb := strings.ToLower(a), strings.ToLower(b)
	if lb < la || (lb == la && b < a) {
		a, b = b, a
	}
	return a + " - " + b, true
}

// ApplyConnectionName returns a copy of values whose namn entry is computed
// from the Del A and Del B values of a connection type. Any caller-supplied
// namn is replaced. Missing endpoints are reported as violations.
func ApplyConnectionName(fields []*types.ObjectField, values map[string]any) (map[string]any, []types.Violation) {
	var nameField, partA, partB *types.ObjectField
	for _, f := range fields {
		switch {
		case f.IsNameField():
			nameField = f
		case types.IsConnectionPartA(f.FieldName):
			partA = f
		case types.IsConnectionPartB(f.FieldName):
			partB = f
		}
	}

	out := make(map[string]any, len(values)+1)
	for k, v := range values {
		if types.NormalizeFieldName(k) == types.NameFieldName {
			continue
		}
		out[k] = v
	}

	var violations []types.Violation
	a, okA := endpointValue(partA, values)
	if !okA {
		violations = append(violations, endpointViolation(partA, "Del A"))
	}
	b, okB := endpointValue(partB, values)
	if !okB {
		violations = append(violations, endpointViolation(partB, "Del B"))
	}
	if len(violations) > 0 {
		return out, violations
	}

	name, _ := ConnectionName(a, b)
	key := types.NameFieldName
	if nameField != nil {
		key = nameField.FieldName
	}
	out[key] = name
	return out, nil
}

func endpointValue(f *types.ObjectField, values map[string]any) (string, bool) {
	if f == nil {
		return "", false
	}
	want := types.NormalizeFieldName(f.FieldName)
	for k, v := range values {
		if types.NormalizeFieldName(k) != want || IsEmpty(v) {
			continue
		}
		s, ok := toText(v)
		if !ok || strings.TrimSpace(s) == "" {
			return "", false
		}
		return s, true
	}
	return "", false
}

func endpointViolation(f *types.ObjectField, label string) types.Violation {
	if f == nil {
		return types.Violation{Field: label, Message: "connection types need a " + label + " field to compute namn"}
	}
	return types.Violation{Field: f.FieldName, Message: "is required to compute the connection name"}
}
