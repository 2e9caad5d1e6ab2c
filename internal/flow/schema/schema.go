// Package schema describes and validates the shapes exchanged with prompt flows.
//
// A Schema is built once at process start and is read-only afterwards, so a single
// value can be shared by every goroutine running the flow that owns it.
package schema

import (
	"fmt"
	"strings"
)

type Kind int

const (
	KindString Kind = iota + 1
	KindNumber
	KindInteger
	KindBoolean
	KindEnum
	KindArray
	KindObject
	// KindMedia is a binary content reference: data:<type>;base64,<payload>.
	KindMedia
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindInteger:
		return "integer"
	case KindBoolean:
		return "boolean"
	case KindEnum:
		return "enum"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	case KindMedia:
		return "media"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

type Property struct {
	Name   string
	Schema *Schema
}

type Schema struct {
	Kind        Kind
	Description string
	Optional    bool
	Default     any

	// string
	NonBlank bool
	// enum
	Values []string
	// number, integer
	Minimum *float64
	Maximum *float64
	// array
	Items    *Schema
	MinItems int
	MaxItems int
	// object
	Properties []Property
	// media; empty allows any type
	MediaTypes []string
}

func String() *Schema  { return &Schema{Kind: KindString} }
func Number() *Schema  { return &Schema{Kind: KindNumber} }
func Integer() *Schema { return &Schema{Kind: KindInteger} }
func Boolean() *Schema { return &Schema{Kind: KindBoolean} }

func Enum(values ...string) *Schema {
	return &Schema{Kind: KindEnum, Values: append([]string(nil), values...)}
}

func Array(items *Schema) *Schema { return &Schema{Kind: KindArray, Items: items} }

func Object(props ...Property) *Schema {
	return &Schema{Kind: KindObject, Properties: append([]Property(nil), props...)}
}

func Media(types ...string) *Schema {
	return &Schema{Kind: KindMedia, MediaTypes: append([]string(nil), types...)}
}

func Field(name string, s *Schema) Property { return Property{Name: name, Schema: s} }

// Opt marks the schema optional when used as an object property.
func (s *Schema) Opt() *Schema { s.Optional = true; return s }

// WithDefault makes the property optional and fills v when it is missing.
func (s *Schema) WithDefault(v any) *Schema {
	s.Optional = true
	s.Default = v
	return s
}

func (s *Schema) Describe(d string) *Schema { s.Description = strings.TrimSpace(d); return s }

// NonEmpty requires a non-blank string, or at least one array item.
func (s *Schema) NonEmpty() *Schema {
	switch s.Kind {
	case KindArray:
		if s.MinItems < 1 {
			s.MinItems = 1
		}
	default:
		s.NonBlank = true
	}
	return s
}

// Len bounds the number of array items. max <= 0 leaves the upper bound open.
func (s *Schema) Len(min, max int) *Schema {
	s.MinItems = min
	s.MaxItems = max
	return s
}

// Range bounds a number or integer, inclusive.
func (s *Schema) Range(min, max float64) *Schema {
	s.Minimum = &min
	s.Maximum = &max
	return s
}

// Property returns the named property schema of an object, or nil.
func (s *Schema) Property(name string) *Schema {
	if s == nil {
		return nil
	}
	for _, p := range s.Properties {
		if p.Name == name {
			return p.Schema
		}
	}
	return nil
}

// SchemaError reports a malformed schema. It is a programmer error, not a
// validation result.
type SchemaError struct {
	Path   string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema %s: %s", displayPath(e.Path), e.Reason)
}

// Check reports whether s is well formed.
func Check(s *Schema) error {
	return check(s, "")
}

func check(s *Schema, path string) error {
	if s == nil {
		return &SchemaError{Path: path, Reason: "nil schema"}
	}
	switch s.Kind {
	case KindString, KindBoolean, KindMedia:
	case KindNumber, KindInteger:
		if s.Minimum != nil && s.Maximum != nil && *s.Minimum > *s.Maximum {
			return &SchemaError{Path: path, Reason: "minimum greater than maximum"}
		}
	case KindEnum:
		if len(s.Values) == 0 {
			return &SchemaError{Path: path, Reason: "enum without values"}
		}
		seen := map[string]bool{}
		for _, v := range s.Values {
			if seen[v] {
				return &SchemaError{Path: path, Reason: fmt.Sprintf("duplicate enum value %q", v)}
			}
			seen[v] = true
		}
	case KindArray:
		if s.Items == nil {
			return &SchemaError{Path: path, Reason: "array without items"}
		}
		if s.MinItems < 0 || (s.MaxItems > 0 && s.MinItems > s.MaxItems) {
			return &SchemaError{Path: path, Reason: "invalid item bounds"}
		}
		if err := check(s.Items, path+"[]"); err != nil {
			return err
		}
	case KindObject:
		seen := map[string]bool{}
		for _, p := range s.Properties {
			name := strings.TrimSpace(p.Name)
			if name == "" {
				return &SchemaError{Path: path, Reason: "property without name"}
			}
			if seen[name] {
				return &SchemaError{Path: path, Reason: fmt.Sprintf("duplicate property %q", name)}
			}
			seen[name] = true
			if err := check(p.Schema, joinPath(path, name)); err != nil {
				return err
			}
		}
	default:
		return &SchemaError{Path: path, Reason: fmt.Sprintf("unknown kind %s", s.Kind)}
	}
	if s.Default != nil {
		bare := *s
		bare.Default = nil
		if _, vs := validate(&bare, s.Default, path); len(vs) > 0 {
			return &SchemaError{Path: path, Reason: fmt.Sprintf("default does not validate: %s", vs[0].Reason)}
		}
	}
	return nil
}

func joinPath(base, name string) string {
	if base == "" {
		return name
	}
	return base + "." + name
}

func indexPath(base string, i int) string {
	return fmt.Sprintf("%s[%d]", base, i)
}

func displayPath(p string) string {
	if p == "" {
		return "(root)"
	}
	return p
}
