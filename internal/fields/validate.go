package fields

import (
	"sort"

	"github.com/mesh-intelligence/typegraph/errors"
	"github.com/mesh-intelligence/typegraph/pkg/types"
)

// IsRequired resolves whether f is required for one object. An override
// only applies while the field's lock_required_setting is off.
func IsRequired(f *types.ObjectField, overrides map[string]bool) bool {
	if f.LockRequiredSetting {
		return f.IsRequired
	}
	if v, ok := overrides[f.ID]; ok {
		return v
	}
	return f.IsRequired
}

// Validate checks values against fields and returns the coerced value of
// every field keyed by field ID; fields without a value map to an empty
// Value. Keys in values match fields by normalized name. Every violation is
// collected before the returned *types.ValidationError is built.
func Validate(fields []*types.ObjectField, values map[string]any, overrides map[string]bool) (map[string]Value, error) {
	byKey := make(map[string]*types.ObjectField, len(fields))
	for _, f := range fields {
		byKey[types.NormalizeFieldName(f.FieldName)] = f
	}

	var violations []types.Violation
	raw := make(map[string]any, len(values))
	seen := make(map[string]string, len(values))

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		f, ok := byKey[types.NormalizeFieldName(k)]
		if !ok {
			violations = append(violations, types.Violation{Field: k, Message: "is not a field of this object type"})
			continue
		}
		if prev, dup := seen[f.ID]; dup {
			violations = append(violations, types.Violation{Field: k, Message: "is given more than once (also as " + prev + ")"})
			continue
		}
		seen[f.ID] = k
		raw[f.ID] = values[k]
	}

	out := make(map[string]Value, len(fields))
	for _, f := range fields {
		v := raw[f.ID]
		if IsEmpty(v) {
			if IsRequired(f, overrides) {
				violations = append(violations, types.Violation{Field: f.FieldName, Message: "is required"})
			}
			out[f.ID] = Value{}
			continue
		}
		coerced, msg := Coerce(f, v)
		if msg != "" {
			violations = append(violations, types.Violation{Field: f.FieldName, Message: msg})
			continue
		}
		out[f.ID] = coerced
	}

	if err := types.NewValidationError(violations); err != nil {
		return nil, err
	}
	return out, nil
}

// ValidateObject validates a payload for an object of the named type. For
// connection types the namn value is computed from the endpoint fields
// first, and endpoint violations replace the namn violation they cause.
func ValidateObject(typeName string, fields []*types.ObjectField, values map[string]any, overrides map[string]bool) (map[string]Value, error) {
	if !types.IsConnectionType(typeName) {
		return Validate(fields, values, overrides)
	}

	computed, connViolations := ApplyConnectionName(fields, values)
	out, err := Validate(fields, computed, overrides)
	if len(connViolations) == 0 {
		return out, err
	}

	violations := connViolations
	var verr *types.ValidationError
	if errors.As(err, &verr) {
		for _, v := range verr.Violations {
			if types.NormalizeFieldName(v.Field) == types.NameFieldName {
				continue
			}
			if containsViolation(violations, v) {
				continue
			}
			violations = append(violations, v)
		}
	}
	return nil, types.NewValidationError(violations)
}

func containsViolation(list []types.Violation, v types.Violation) bool {
	for _, x := range list {
		if x.Field == v.Field {
			return true
		}
	}
	return false
}
