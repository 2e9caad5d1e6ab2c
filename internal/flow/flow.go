// Package flow runs structured prompt flows: validate input, render a prompt,
// call a model, and accept the answer only if it satisfies the output contract.
package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/careerprep-backend/internal/flow/schema"
	"github.com/yungbote/careerprep-backend/internal/flow/template"
	"github.com/yungbote/careerprep-backend/internal/llm"
	"github.com/yungbote/careerprep-backend/internal/platform/httpx"
)

const DefaultTimeout = 120 * time.Second

// Definition describes a flow. It is built once at startup.
type Definition[In, Out any] struct {
	Name        string
	Version     string
	Description string
	Input       *schema.Schema
	Output      *schema.Schema
	System      string
	Template    string
	// Normalize, when set, rewrites the input before validation so the
	// prompt and Check see the same values.
	Normalize func(in In) In
	// Check enforces cross-field rules the schema cannot express.
	Check func(in In, out Out) []schema.Violation
}

type Option func(*options)

type options struct {
	timeout time.Duration
}

// WithTimeout bounds each Run. Zero or negative disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// Flow is a compiled, immutable Definition.
type Flow[In, Out any] struct {
	def      Definition[In, Out]
	tmpl     *template.Template
	contract map[string]any
	timeout  time.Duration
}

// New compiles def. Errors are programmer errors and should stop startup.
func New[In, Out any](def Definition[In, Out], opts ...Option) (*Flow[In, Out], error) {
	def.Name = strings.TrimSpace(def.Name)
	if def.Name == "" {
		return nil, errors.New("flow: name required")
	}
	if def.Version == "" {
		def.Version = "v1"
	}
	if def.Input == nil || def.Output == nil {
		return nil, fmt.Errorf("flow %s: input and output schemas required", def.Name)
	}
	if err := schema.Check(def.Input); err != nil {
		return nil, fmt.Errorf("flow %s: input schema: %w", def.Name, err)
	}
	if err := schema.Check(def.Output); err != nil {
		return nil, fmt.Errorf("flow %s: output schema: %w", def.Name, err)
	}
	tmpl, err := template.Compile(def.Name, def.Template)
	if err != nil {
		return nil, err
	}
	o := options{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	return &Flow[In, Out]{
		def:      def,
		tmpl:     tmpl,
		contract: schema.JSONSchema(def.Output),
		timeout:  o.timeout,
	}, nil
}

// MustNew is New for package-level flow tables.
func MustNew[In, Out any](def Definition[In, Out], opts ...Option) *Flow[In, Out] {
	f, err := New(def, opts...)
	if err != nil {
		panic(err)
	}
	return f
}

func (f *Flow[In, Out]) Name() string                 { return f.def.Name }
func (f *Flow[In, Out]) Version() string              { return f.def.Version }
func (f *Flow[In, Out]) Description() string          { return f.def.Description }
func (f *Flow[In, Out]) InputSchema() *schema.Schema  { return f.def.Input }
func (f *Flow[In, Out]) OutputSchema() *schema.Schema { return f.def.Output }
func (f *Flow[In, Out]) Template() *template.Template { return f.tmpl }

// Run performs one invocation. The model is called at most once. On failure
// the returned Out is the zero value and the error carries a Kind.
func (f *Flow[In, Out]) Run(ctx context.Context, model llm.Model, in In) (Out, *Invocation[In, Out], error) {
	var zero Out
	inv := newInvocation[In, Out](f.def.Name, f.def.Version)

	if f.def.Normalize != nil {
		in = f.def.Normalize(in)
	}
	validated, err := schema.Validate(f.def.Input, in)
	if err != nil {
		return zero, inv, inv.fail(f.inputError(err))
	}
	inv.Input, _ = validated.(map[string]any)
	typedIn, err := decodeInto[In](validated)
	if err != nil {
		return zero, inv, inv.fail(&ValidationError{
			Flow:       f.def.Name,
			Violations: schema.Violations{{Reason: err.Error()}},
		})
	}
	inv.advance(StateInputValidated)

	prompt, err := f.tmpl.Render(validated)
	if err != nil {
		return zero, inv, inv.fail(&ValidationError{
			Flow:       f.def.Name,
			Violations: schema.Violations{{Reason: "render: " + err.Error()}},
		})
	}
	inv.Prompt = prompt
	inv.advance(StateRendered)

	if model == nil {
		return zero, inv, inv.fail(&TransportError{Flow: f.def.Name, Cause: errors.New("no model configured")})
	}
	callCtx := ctx
	if f.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}
	resp, err := model.Generate(callCtx, llm.Request{
		Flow:       f.def.Name,
		System:     f.def.System,
		Prompt:     prompt,
		SchemaName: schemaName(f.def.Name),
		Schema:     f.contract,
	})
	if err != nil {
		return zero, inv, inv.fail(&TransportError{
			Flow:      f.def.Name,
			Cause:     err,
			Status:    httpx.StatusOf(err),
			Retryable: httpx.IsRetryableError(err),
		})
	}
	inv.Raw = resp.Text
	inv.Model = resp.Model
	inv.Usage = resp.Usage
	inv.advance(StateModelCalled)

	out, err := f.accept(typedIn, resp.Text)
	if err != nil {
		return zero, inv, inv.fail(err)
	}
	inv.Output = out
	inv.advance(StateOutputValidated)
	inv.advance(StateComplete)
	return out, inv, nil
}

// accept decodes and validates a model answer.
func (f *Flow[In, Out]) accept(in In, raw string) (Out, error) {
	var zero Out
	contractErr := func(vs schema.Violations, cause error) error {
		return &ModelContractError{Flow: f.def.Name, Violations: vs, Raw: raw, Cause: cause}
	}

	tree, err := decodeTree(raw)
	if err != nil {
		return zero, contractErr(nil, err)
	}
	coerced, err := schema.Validate(f.def.Output, tree)
	if err != nil {
		var vs schema.Violations
		if errors.As(err, &vs) {
			return zero, contractErr(vs, nil)
		}
		return zero, contractErr(nil, err)
	}
	out, err := decodeInto[Out](coerced)
	if err != nil {
		return zero, contractErr(nil, err)
	}
	if f.def.Check != nil {
		if vs := f.def.Check(in, out); len(vs) > 0 {
			return zero, contractErr(vs, nil)
		}
	}
	return out, nil
}

func (f *Flow[In, Out]) inputError(err error) error {
	var vs schema.Violations
	if errors.As(err, &vs) {
		return &ValidationError{Flow: f.def.Name, Violations: vs}
	}
	return &ValidationError{Flow: f.def.Name, Violations: schema.Violations{{Reason: err.Error()}}}
}

// schemaName derives a provider-safe contract name: letters, digits, _ and -.
func schemaName(flow string) string {
	var b strings.Builder
	for _, r := range flow {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String() + "_output"
}
