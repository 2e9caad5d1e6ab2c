package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
)

// Violation is one reason a value does not conform to a schema.
type Violation struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

func (v Violation) String() string {
	return displayPath(v.Path) + ": " + v.Reason
}

// Violations is the ordered list of everything wrong with a value.
type Violations []Violation

func (vs Violations) Error() string {
	parts := make([]string, 0, len(vs))
	for _, v := range vs {
		parts = append(parts, v.String())
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Validate checks v against s. On success it returns a normalised copy of v:
// objects become map[string]any, arrays []any, integers int64, numbers float64,
// and missing optional fields with a default are filled in.
//
// A shape mismatch returns Violations. A malformed schema returns *SchemaError.
func Validate(s *Schema, v any) (any, error) {
	if err := Check(s); err != nil {
		return nil, err
	}
	tree, err := toTree(v)
	if err != nil {
		return nil, Violations{{Reason: "value is not JSON representable: " + err.Error()}}
	}
	out, vs := validate(s, tree, "")
	if len(vs) > 0 {
		return nil, vs
	}
	return out, nil
}

func validate(s *Schema, v any, path string) (any, Violations) {
	if v == nil {
		if s.Default != nil {
			return defaultValue(s, path)
		}
		if s.Optional {
			return nil, nil
		}
		return nil, Violations{{Path: path, Reason: "required"}}
	}

	switch s.Kind {
	case KindString:
		str, ok := v.(string)
		if !ok {
			return nil, mismatch(path, "string", v)
		}
		if s.NonBlank && strings.TrimSpace(str) == "" {
			return nil, Violations{{Path: path, Reason: "must not be blank"}}
		}
		return str, nil

	case KindNumber:
		f, ok := toFloat(v)
		if !ok {
			return nil, mismatch(path, "number", v)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, Violations{{Path: path, Reason: "must be finite"}}
		}
		if vs := checkRange(s, f, path); vs != nil {
			return nil, vs
		}
		return f, nil

	case KindInteger:
		n, ok := toInt(v)
		if !ok {
			return nil, mismatch(path, "integer", v)
		}
		if vs := checkRange(s, float64(n), path); vs != nil {
			return nil, vs
		}
		return n, nil

	case KindBoolean:
		b, ok := v.(bool)
		if !ok {
			return nil, mismatch(path, "boolean", v)
		}
		return b, nil

	case KindEnum:
		str, ok := v.(string)
		if !ok {
			return nil, mismatch(path, "string", v)
		}
		for _, allowed := range s.Values {
			if str == allowed {
				return str, nil
			}
		}
		return nil, Violations{{Path: path, Reason: "must be one of " + strings.Join(s.Values, ", ")}}

	case KindMedia:
		str, ok := v.(string)
		if !ok {
			return nil, mismatch(path, "media reference", v)
		}
		ref, err := ParseMedia(str)
		if err != nil {
			return nil, Violations{{Path: path, Reason: err.Error()}}
		}
		if !mediaAllowed(s.MediaTypes, ref.MediaType) {
			return nil, Violations{{Path: path, Reason: fmt.Sprintf("media type %q not allowed", ref.MediaType)}}
		}
		return str, nil

	case KindArray:
		items, ok := v.([]any)
		if !ok {
			return nil, mismatch(path, "array", v)
		}
		var vs Violations
		if len(items) < s.MinItems {
			vs = append(vs, Violation{Path: path, Reason: fmt.Sprintf("must have at least %d items", s.MinItems)})
		}
		if s.MaxItems > 0 && len(items) > s.MaxItems {
			vs = append(vs, Violation{Path: path, Reason: fmt.Sprintf("must have at most %d items", s.MaxItems)})
		}
		out := make([]any, 0, len(items))
		for i, item := range items {
			iv, ivs := validate(s.Items, item, indexPath(path, i))
			vs = append(vs, ivs...)
			out = append(out, iv)
		}
		if len(vs) > 0 {
			return nil, vs
		}
		return out, nil

	case KindObject:
		m, ok := v.(map[string]any)
		if !ok {
			return nil, mismatch(path, "object", v)
		}
		var vs Violations
		out := make(map[string]any, len(s.Properties))
		known := make(map[string]bool, len(s.Properties))
		for _, p := range s.Properties {
			known[p.Name] = true
			pv, pvs := validate(p.Schema, m[p.Name], joinPath(path, p.Name))
			vs = append(vs, pvs...)
			if pv != nil {
				out[p.Name] = pv
			}
		}
		extra := make([]string, 0)
		for k := range m {
			if !known[k] {
				extra = append(extra, k)
			}
		}
		sort.Strings(extra)
		for _, k := range extra {
			vs = append(vs, Violation{Path: joinPath(path, k), Reason: "unexpected field"})
		}
		if len(vs) > 0 {
			return nil, vs
		}
		return out, nil
	}
	return nil, Violations{{Path: path, Reason: "unsupported schema kind " + s.Kind.String()}}
}

func defaultValue(s *Schema, path string) (any, Violations) {
	tree, err := toTree(s.Default)
	if err != nil {
		return nil, Violations{{Path: path, Reason: "default is not JSON representable"}}
	}
	bare := *s
	bare.Default = nil
	return validate(&bare, tree, path)
}

func checkRange(s *Schema, f float64, path string) Violations {
	if s.Minimum != nil && f < *s.Minimum {
		return Violations{{Path: path, Reason: fmt.Sprintf("must be >= %s", trimFloat(*s.Minimum))}}
	}
	if s.Maximum != nil && f > *s.Maximum {
		return Violations{{Path: path, Reason: fmt.Sprintf("must be <= %s", trimFloat(*s.Maximum))}}
	}
	return nil
}

func mismatch(path, want string, got any) Violations {
	return Violations{{Path: path, Reason: fmt.Sprintf("expected %s, got %s", want, jsonType(got))}}
}

func jsonType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	default:
		if _, ok := toFloat(v); ok {
			return "number"
		}
		return fmt.Sprintf("%T", v)
	}
}

func trimFloat(f float64) string {
	if f == math.Trunc(f) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func toInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
	}
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f > math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}

// toTree converts v into the generic JSON tree the validator walks. Values that
// are already generic are copied structurally; anything else takes one
// encoding/json round trip.
func toTree(v any) (any, error) {
	switch t := v.(type) {
	case nil, bool, string, float64, float32, json.Number,
		int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return t, nil
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, inner := range t {
			c, err := toTree(inner)
			if err != nil {
				return nil, err
			}
			out[k] = c
		}
		return out, nil
	case []any:
		out := make([]any, 0, len(t))
		for _, inner := range t {
			c, err := toTree(inner)
			if err != nil {
				return nil, err
			}
			out = append(out, c)
		}
		return out, nil
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var out any
		if err := dec.Decode(&out); err != nil {
			return nil, err
		}
		return out, nil
	}
}
