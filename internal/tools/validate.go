package tools

import "fmt"

// Validation is the outcome of a shallow parameter check.
type Validation struct {
	Valid  bool
	Errors []string
}

// ValidateParams checks an argument bag against a tool's declared
// required fields and basic type tags. It is deliberately shallow:
// nested schemas are not walked and unknown extra fields are tolerated.
func (r *Registry) ValidateParams(name string, args map[string]any) Validation {
	r.mu.RLock()
	tool, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return Validation{Valid: false, Errors: []string{fmt.Sprintf("unknown tool: %s", name)}}
	}

	schema := tool.Parameters()
	v := Validation{Valid: true}

	props, _ := schema["properties"].(map[string]any)

	// Required fields must be present.
	if required, ok := schema["required"].([]string); ok {
		for _, field := range required {
			if _, present := args[field]; !present {
				v.Valid = false
				v.Errors = append(v.Errors, fmt.Sprintf("missing required parameter: %s", field))
			}
		}
	} else if required, ok := schema["required"].([]any); ok {
		for _, f := range required {
			field, _ := f.(string)
			if field == "" {
				continue
			}
			if _, present := args[field]; !present {
				v.Valid = false
				v.Errors = append(v.Errors, fmt.Sprintf("missing required parameter: %s", field))
			}
		}
	}

	// Present fields with a declared type tag must match it.
	for key, val := range args {
		spec, ok := props[key].(map[string]any)
		if !ok {
			continue // undeclared fields are tolerated
		}
		typeTag, _ := spec["type"].(string)
		if typeTag == "" || val == nil {
			continue
		}
		if !matchesType(typeTag, val) {
			v.Valid = false
			v.Errors = append(v.Errors, fmt.Sprintf("parameter %s: expected %s, got %T", key, typeTag, val))
		}
	}

	return v
}

// matchesType checks a value against a JSON Schema primitive type tag.
// JSON decoding yields float64 for all numbers, so integer accepts
// whole-valued floats.
func matchesType(typeTag string, val any) bool {
	switch typeTag {
	case "string":
		_, ok := val.(string)
		return ok
	case "number":
		switch val.(type) {
		case float64, int:
			return true
		}
		return false
	case "integer":
		switch n := val.(type) {
		case int:
			return true
		case float64:
			return n == float64(int64(n))
		}
		return false
	case "boolean":
		_, ok := val.(bool)
		return ok
	case "array":
		switch val.(type) {
		case []any, []string:
			return true
		}
		return false
	case "object":
		_, ok := val.(map[string]any)
		return ok
	}
	return true // unknown tags are not enforced
}
