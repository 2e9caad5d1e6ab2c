package schema

// JSONSchema renders s as the strict JSON Schema used as a provider response
// contract. Strict structured output requires every property to be listed as
// required, so optional properties are expressed as a union with null; the
// validator treats null the same as a missing field.
func JSONSchema(s *Schema) map[string]any {
	if s == nil {
		return nil
	}
	out := map[string]any{}
	switch s.Kind {
	case KindString:
		out["type"] = "string"
	case KindNumber:
		out["type"] = "number"
	case KindInteger:
		out["type"] = "integer"
	case KindBoolean:
		out["type"] = "boolean"
	case KindEnum:
		out["type"] = "string"
		values := make([]any, 0, len(s.Values)+1)
		for _, v := range s.Values {
			values = append(values, v)
		}
		if s.Optional {
			values = append(values, nil)
		}
		out["enum"] = values
	case KindMedia:
		out["type"] = "string"
		if s.Description == "" {
			out["description"] = "A data URI: data:<mediatype>;base64,<payload>."
		}
	case KindArray:
		out["type"] = "array"
		out["items"] = JSONSchema(s.Items)
		if s.MinItems > 0 {
			out["minItems"] = s.MinItems
		}
		if s.MaxItems > 0 {
			out["maxItems"] = s.MaxItems
		}
	case KindObject:
		props := make(map[string]any, len(s.Properties))
		required := make([]string, 0, len(s.Properties))
		for _, p := range s.Properties {
			props[p.Name] = JSONSchema(p.Schema)
			required = append(required, p.Name)
		}
		out["type"] = "object"
		out["properties"] = props
		out["required"] = required
		out["additionalProperties"] = false
	}
	if s.Minimum != nil {
		out["minimum"] = *s.Minimum
	}
	if s.Maximum != nil {
		out["maximum"] = *s.Maximum
	}
	if s.Description != "" {
		out["description"] = s.Description
	}
	if s.Optional {
		if t, ok := out["type"].(string); ok {
			out["type"] = []any{t, "null"}
		}
	}
	return out
}
