package template

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/yungbote/careerprep-backend/internal/flow/schema"
)

type PartKind string

const (
	PartText  PartKind = "text"
	PartMedia PartKind = "media"
)

// Part is one ordered piece of a rendered prompt.
type Part struct {
	Kind  PartKind
	Text  string
	Media schema.MediaRef
}

// Prompt is the result of rendering. Text holds the text parts joined and
// trimmed, which is all a text-only provider needs.
type Prompt struct {
	Text  string
	Parts []Part
}

// HasMedia reports whether any media part was attached.
func (p Prompt) HasMedia() bool {
	for _, part := range p.Parts {
		if part.Kind == PartMedia {
			return true
		}
	}
	return false
}

const markerOpen, markerClose = "\x00\x01media:", "\x01\x00"

var markerRe = regexp.MustCompile("\x00\x01media:([0-9]+)\x01\x00")

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#x27;",
	"`", "&#x60;",
	"=", "&#x3D;",
)

// Render executes the template against data. data is normally the validated
// input map; other values are converted through encoding/json first.
func (t *Template) Render(data any) (Prompt, error) {
	tree, err := normalise(data)
	if err != nil {
		return Prompt{}, fmt.Errorf("template %s: %w", t.name, err)
	}

	var media []schema.MediaRef
	clone, err := t.tmpl.Clone()
	if err != nil {
		return Prompt{}, fmt.Errorf("template %s: %w", t.name, err)
	}
	clone.Funcs(map[string]any{
		"media": func(v any) (string, error) {
			uri, _ := v.(string)
			if strings.TrimSpace(uri) == "" {
				return "", nil
			}
			ref, err := schema.ParseMedia(uri)
			if err != nil {
				return "", err
			}
			media = append(media, ref)
			return markerOpen + strconv.Itoa(len(media)-1) + markerClose, nil
		},
	})

	var buf bytes.Buffer
	if err := clone.Execute(&buf, tree); err != nil {
		return Prompt{}, fmt.Errorf("template %s: %w", t.name, err)
	}
	return split(buf.String(), media), nil
}

func split(out string, media []schema.MediaRef) Prompt {
	var parts []Part
	var text strings.Builder
	addText := func(s string) {
		if strings.TrimSpace(s) == "" {
			return
		}
		parts = append(parts, Part{Kind: PartText, Text: s})
		text.WriteString(s)
	}
	last := 0
	for _, loc := range markerRe.FindAllStringSubmatchIndex(out, -1) {
		addText(out[last:loc[0]])
		idx, _ := strconv.Atoi(out[loc[2]:loc[3]])
		if idx >= 0 && idx < len(media) {
			parts = append(parts, Part{Kind: PartMedia, Media: media[idx]})
		}
		last = loc[1]
	}
	addText(out[last:])
	return Prompt{Text: strings.TrimSpace(text.String()), Parts: parts}
}

func baseFuncs() map[string]any {
	return map[string]any{
		"get":     get,
		"resolve": resolve,
		"list":    list,
		"truthy":  truthy,
		"esc":     func(v any) string { return htmlEscaper.Replace(stringify(v)) },
		"raw":     stringify,
		"media":   func(any) (string, error) { return "", nil },
	}
}

// get walks a dotted path from v. Missing segments yield nil.
func get(v any, path string) any {
	val, _ := lookup(v, path)
	return val
}

// resolve looks path up on the current element first, then on the root.
func resolve(scope, root any, path string) any {
	if val, ok := lookup(scope, path); ok {
		return val
	}
	return get(root, path)
}

func lookup(v any, path string) (any, bool) {
	cur := v
	for _, seg := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func list(v any) []any {
	if items, ok := v.([]any); ok {
		return items
	}
	return nil
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case json.Number:
		f, err := t.Float64()
		return err == nil && f != 0
	default:
		if f, ok := number(v); ok {
			return f != 0 && !math.IsNaN(f)
		}
		return true
	}
}

func stringify(v any) string {
	var s string
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		s = t
	case bool:
		s = strconv.FormatBool(t)
	case int64:
		s = strconv.FormatInt(t, 10)
	case int:
		s = strconv.Itoa(t)
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		s = t.String()
	case []any:
		items := make([]string, 0, len(t))
		for _, item := range t {
			items = append(items, stringify(item))
		}
		s = strings.Join(items, ",")
	default:
		raw, err := json.Marshal(t)
		if err != nil {
			s = fmt.Sprint(t)
		} else {
			s = string(raw)
		}
	}
	return strings.ReplaceAll(s, "\x00", "")
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}

func normalise(data any) (any, error) {
	switch data.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return data, nil
	}
	raw, err := json.Marshal(data)
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
