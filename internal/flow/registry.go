package flow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/yungbote/careerprep-backend/internal/flow/schema"
	"github.com/yungbote/careerprep-backend/internal/flow/template"
	"github.com/yungbote/careerprep-backend/internal/llm"
)

// Runner is a type-erased flow.
type Runner interface {
	Name() string
	Version() string
	Description() string
	InputSchema() *schema.Schema
	OutputSchema() *schema.Schema
	Template() *template.Template
	RunJSON(ctx context.Context, model llm.Model, raw json.RawMessage) (json.RawMessage, Record, error)
}

// RunJSON decodes raw input through the input schema, runs the flow, and
// encodes the typed output.
func (f *Flow[In, Out]) RunJSON(ctx context.Context, model llm.Model, raw json.RawMessage) (json.RawMessage, Record, error) {
	in, err := f.decodeInput(raw)
	if err != nil {
		inv := newInvocation[In, Out](f.def.Name, f.def.Version)
		_ = inv.fail(err)
		return nil, inv.Record(), err
	}
	out, inv, err := f.Run(ctx, model, in)
	if err != nil {
		return nil, inv.Record(), err
	}
	b, err := json.Marshal(out)
	if err != nil {
		return nil, inv.Record(), fmt.Errorf("flow %s: encode output: %w", f.def.Name, err)
	}
	return b, inv.Record(), nil
}

func (f *Flow[In, Out]) decodeInput(raw json.RawMessage) (In, error) {
	var zero In
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	tree, err := decodeTree(string(raw))
	if err != nil {
		return zero, &ValidationError{Flow: f.def.Name, Violations: schema.Violations{{Reason: "invalid JSON: " + err.Error()}}}
	}
	validated, err := schema.Validate(f.def.Input, tree)
	if err != nil {
		return zero, f.inputError(err)
	}
	in, err := decodeInto[In](validated)
	if err != nil {
		return zero, &ValidationError{Flow: f.def.Name, Violations: schema.Violations{{Reason: err.Error()}}}
	}
	return in, nil
}

// Descriptor is the public description of a registered flow.
type Descriptor struct {
	Name        string         `json:"name"`
	Version     string         `json:"version"`
	Description string         `json:"description,omitempty"`
	Input       map[string]any `json:"input"`
	Output      map[string]any `json:"output"`
}

// Registry maps flow names to runners. It is filled at startup and read
// concurrently afterwards.
type Registry struct {
	mu      sync.RWMutex
	runners map[string]Runner
}

func NewRegistry() *Registry {
	return &Registry{runners: map[string]Runner{}}
}

func (r *Registry) Register(fl Runner) error {
	if fl == nil {
		return errors.New("flow: nil runner")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.runners[fl.Name()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateFlow, fl.Name())
	}
	r.runners[fl.Name()] = fl
	return nil
}

func (r *Registry) MustRegister(runners ...Runner) {
	for _, fl := range runners {
		if err := r.Register(fl); err != nil {
			panic(err)
		}
	}
}

func (r *Registry) Get(name string) (Runner, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fl, ok := r.runners[name]
	return fl, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.runners))
	for name := range r.runners {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) Describe() []Descriptor {
	names := r.Names()
	out := make([]Descriptor, 0, len(names))
	for _, name := range names {
		fl, _ := r.Get(name)
		out = append(out, Descriptor{
			Name:        fl.Name(),
			Version:     fl.Version(),
			Description: fl.Description(),
			Input:       schema.JSONSchema(fl.InputSchema()),
			Output:      schema.JSONSchema(fl.OutputSchema()),
		})
	}
	return out
}

func (r *Registry) RunJSON(ctx context.Context, model llm.Model, name string, raw json.RawMessage) (json.RawMessage, Record, error) {
	fl, ok := r.Get(name)
	if !ok {
		return nil, Record{}, fmt.Errorf("%w: %s", ErrUnknownFlow, name)
	}
	return fl.RunJSON(ctx, model, raw)
}

// UndeclaredFields lists template references the input schema does not
// declare. Missing fields render as "", so an empty result is the only
// guard against a silently blank prompt section.
func UndeclaredFields(fl Runner) []string {
	in := fl.InputSchema()
	var missing []string
	seen := map[string]bool{}
	for _, ref := range fl.Template().Refs() {
		if declared(in, ref) || seen[ref.Scope+"/"+ref.Path] {
			continue
		}
		seen[ref.Scope+"/"+ref.Path] = true
		if ref.Scope != "" {
			missing = append(missing, ref.Scope+"[]."+ref.Path)
		} else {
			missing = append(missing, ref.Path)
		}
	}
	return missing
}

func declared(root *schema.Schema, ref template.Ref) bool {
	if ref.Scope != "" {
		list := lookupPath(root, ref.Scope)
		if list != nil && list.Items != nil && lookupPath(list.Items, ref.Path) != nil {
			return true
		}
	}
	return lookupPath(root, ref.Path) != nil
}

func lookupPath(s *schema.Schema, path string) *schema.Schema {
	cur := s
	for _, seg := range strings.Split(path, ".") {
		if cur == nil {
			return nil
		}
		cur = cur.Property(seg)
	}
	return cur
}
