// Package template renders prompt templates written with handlebars-style
// directives on top of text/template.
//
// Supported directives:
//
//	{{field}} {{a.b}}          escaped interpolation
//	{{{field}}}                raw interpolation
//	{{#each list}}…{{/each}}   one block per element; {{this}} and {{@index}} inside
//	{{#if field}}…{{else}}…{{/if}}
//	{{media url=field}}        attach a binary content reference
//	{{! comment }}
//
// Missing fields render as the empty string.
package template

import (
	"fmt"
	"regexp"
	"strings"
	"text/template"
)

// Ref is a field reference found while compiling. Scope is the list path of
// the innermost enclosing each block, or "" at the top level.
type Ref struct {
	Path  string
	Scope string
}

type Template struct {
	name   string
	source string
	tmpl   *template.Template
	refs   []Ref
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type block struct {
	kind    string // "each" | "if"
	path    string
	hasElse bool
}

// Compile translates source into an executable template.
func Compile(name, source string) (*Template, error) {
	c := &compiler{name: name}
	translated, err := c.translate(source)
	if err != nil {
		return nil, err
	}
	tmpl, err := template.New(name).
		Option("missingkey=zero").
		Funcs(baseFuncs()).
		Parse(translated)
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", name, err)
	}
	return &Template{name: name, source: source, tmpl: tmpl, refs: c.refs}, nil
}

// MustCompile is Compile for package-level definitions.
func MustCompile(name, source string) *Template {
	t, err := Compile(name, source)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Template) Name() string   { return t.name }
func (t *Template) Source() string { return t.source }

// Refs returns every field reference in source order.
func (t *Template) Refs() []Ref { return append([]Ref(nil), t.refs...) }

// Fields returns the distinct top-level field names referenced outside any loop.
func (t *Template) Fields() []string {
	seen := map[string]bool{}
	out := []string{}
	for _, r := range t.refs {
		if r.Scope != "" {
			continue
		}
		head, _, _ := strings.Cut(r.Path, ".")
		if !seen[head] {
			seen[head] = true
			out = append(out, head)
		}
	}
	return out
}

type compiler struct {
	name  string
	stack []block
	refs  []Ref
	out   strings.Builder
}

func (c *compiler) errorf(format string, args ...any) error {
	return fmt.Errorf("template %s: %s", c.name, fmt.Sprintf(format, args...))
}

func (c *compiler) scopeVar() string {
	if d := c.eachDepth(); d > 0 {
		return fmt.Sprintf("$e%d", d)
	}
	return "$"
}

func (c *compiler) eachDepth() int {
	n := 0
	for _, b := range c.stack {
		if b.kind == "each" {
			n++
		}
	}
	return n
}

func (c *compiler) scopePath() string {
	for i := len(c.stack) - 1; i >= 0; i-- {
		if c.stack[i].kind == "each" {
			return c.stack[i].path
		}
	}
	return ""
}

func (c *compiler) translate(src string) (string, error) {
	rest := src
	for {
		i := strings.Index(rest, "{{")
		if i < 0 {
			c.out.WriteString(rest)
			break
		}
		c.out.WriteString(rest[:i])
		rest = rest[i:]

		raw := strings.HasPrefix(rest, "{{{")
		open, close := "{{", "}}"
		if raw {
			open, close = "{{{", "}}}"
		}
		j := strings.Index(rest[len(open):], close)
		if j < 0 {
			return "", c.errorf("unclosed tag near %q", clip(rest))
		}
		expr := strings.TrimSpace(rest[len(open) : len(open)+j])
		rest = rest[len(open)+j+len(close):]

		if raw {
			if err := c.emitValue(expr, "raw"); err != nil {
				return "", err
			}
			continue
		}
		if err := c.directive(expr); err != nil {
			return "", err
		}
	}
	if len(c.stack) > 0 {
		return "", c.errorf("unclosed {{#%s %s}}", c.stack[len(c.stack)-1].kind, c.stack[len(c.stack)-1].path)
	}
	return c.out.String(), nil
}

func (c *compiler) directive(expr string) error {
	switch {
	case expr == "":
		return c.errorf("empty tag")
	case strings.HasPrefix(expr, "!"):
		return nil
	case strings.HasPrefix(expr, "#each "):
		path := strings.TrimSpace(strings.TrimPrefix(expr, "#each "))
		lookup, err := c.lookupExpr(path)
		if err != nil {
			return err
		}
		c.ref(path)
		d := c.eachDepth() + 1
		c.stack = append(c.stack, block{kind: "each", path: path})
		fmt.Fprintf(&c.out, "{{range $i%d, $e%d := list %s}}", d, d, lookup)
		return nil
	case strings.HasPrefix(expr, "#if "):
		path := strings.TrimSpace(strings.TrimPrefix(expr, "#if "))
		lookup, err := c.lookupExpr(path)
		if err != nil {
			return err
		}
		c.ref(path)
		c.stack = append(c.stack, block{kind: "if", path: path})
		fmt.Fprintf(&c.out, "{{if truthy %s}}", lookup)
		return nil
	case expr == "else":
		if len(c.stack) == 0 {
			return c.errorf("{{else}} outside a block")
		}
		top := &c.stack[len(c.stack)-1]
		if top.hasElse {
			return c.errorf("duplicate {{else}} in {{#%s %s}}", top.kind, top.path)
		}
		top.hasElse = true
		c.out.WriteString("{{else}}")
		return nil
	case expr == "/each" || expr == "/if":
		kind := expr[1:]
		if len(c.stack) == 0 || c.stack[len(c.stack)-1].kind != kind {
			return c.errorf("unexpected {{%s}}", expr)
		}
		c.stack = c.stack[:len(c.stack)-1]
		c.out.WriteString("{{end}}")
		return nil
	case strings.HasPrefix(expr, "#") || strings.HasPrefix(expr, "/"):
		return c.errorf("unknown block %q", expr)
	case strings.HasPrefix(expr, "media ") || expr == "media":
		arg := strings.TrimSpace(strings.TrimPrefix(expr, "media"))
		path, ok := strings.CutPrefix(arg, "url=")
		if !ok || strings.TrimSpace(path) == "" {
			return c.errorf("media requires url=<field>, got %q", expr)
		}
		lookup, err := c.lookupExpr(strings.TrimSpace(path))
		if err != nil {
			return err
		}
		c.ref(strings.TrimSpace(path))
		fmt.Fprintf(&c.out, "{{media %s}}", lookup)
		return nil
	default:
		return c.emitValue(expr, "esc")
	}
}

func (c *compiler) emitValue(expr, fn string) error {
	if expr == "@index" {
		if c.eachDepth() == 0 {
			return c.errorf("@index outside {{#each}}")
		}
		fmt.Fprintf(&c.out, "{{$i%d}}", c.eachDepth())
		return nil
	}
	lookup, err := c.lookupExpr(expr)
	if err != nil {
		return err
	}
	c.ref(expr)
	fmt.Fprintf(&c.out, "{{%s %s}}", fn, lookup)
	return nil
}

// lookupExpr returns the text/template expression that resolves path in the
// current scope.
func (c *compiler) lookupExpr(path string) (string, error) {
	if path == "this" {
		return c.scopeVar(), nil
	}
	if strings.Contains(path, " ") {
		return "", c.errorf("unsupported expression %q", path)
	}
	local, thisScoped := strings.CutPrefix(path, "this.")
	for _, seg := range strings.Split(local, ".") {
		if !identRe.MatchString(seg) {
			return "", c.errorf("invalid field path %q", path)
		}
	}
	switch {
	case thisScoped:
		return fmt.Sprintf("(get %s %q)", c.scopeVar(), local), nil
	case c.eachDepth() == 0:
		return fmt.Sprintf("(get $ %q)", local), nil
	default:
		return fmt.Sprintf("(resolve %s $ %q)", c.scopeVar(), local), nil
	}
}

func (c *compiler) ref(path string) {
	if path == "this" || path == "@index" {
		return
	}
	path = strings.TrimPrefix(path, "this.")
	c.refs = append(c.refs, Ref{Path: path, Scope: c.scopePath()})
}

func clip(s string) string {
	if len(s) > 24 {
		return s[:24] + "…"
	}
	return s
}
