package flow

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/careerprep-backend/internal/flow/template"
	"github.com/yungbote/careerprep-backend/internal/llm"
)

// State is a step of an invocation's lifecycle.
type State string

const (
	StateCreated         State = "CREATED"
	StateInputValidated  State = "INPUT_VALIDATED"
	StateRendered        State = "RENDERED"
	StateModelCalled     State = "MODEL_CALLED"
	StateOutputValidated State = "OUTPUT_VALIDATED"
	StateComplete        State = "COMPLETE"
	StateFailed          State = "FAILED"
)

// IsTerminal reports whether no further transition is possible.
func (s State) IsTerminal() bool { return s == StateComplete || s == StateFailed }

func allowed(from, to State) bool {
	if to == StateFailed {
		return !from.IsTerminal()
	}
	switch from {
	case StateCreated:
		return to == StateInputValidated
	case StateInputValidated:
		return to == StateRendered
	case StateRendered:
		return to == StateModelCalled
	case StateModelCalled:
		return to == StateOutputValidated
	case StateOutputValidated:
		return to == StateComplete
	}
	return false
}

// Invocation is the in-memory record of one flow call. It is never persisted.
type Invocation[In, Out any] struct {
	ID       uuid.UUID
	Flow     string
	Version  string
	State    State
	Trail    []State
	Input    map[string]any
	Prompt   template.Prompt
	Raw      string
	Model    string
	Usage    llm.Usage
	Output   Out
	Err      error
	Started  time.Time
	Finished time.Time
}

func newInvocation[In, Out any](name, version string) *Invocation[In, Out] {
	return &Invocation[In, Out]{
		ID:      uuid.New(),
		Flow:    name,
		Version: version,
		State:   StateCreated,
		Trail:   []State{StateCreated},
		Started: time.Now().UTC(),
	}
}

// advance moves to the next state. An illegal move is a bug in this package.
func (inv *Invocation[In, Out]) advance(to State) {
	if !allowed(inv.State, to) {
		panic(fmt.Sprintf("flow %s: illegal transition %s -> %s", inv.Flow, inv.State, to))
	}
	inv.State = to
	inv.Trail = append(inv.Trail, to)
	if to.IsTerminal() {
		inv.Finished = time.Now().UTC()
	}
}

func (inv *Invocation[In, Out]) fail(err error) error {
	var zero Out
	inv.Output = zero
	inv.Err = err
	inv.advance(StateFailed)
	return err
}

// Kind returns the failure kind, if the invocation failed.
func (inv *Invocation[In, Out]) Kind() (Kind, bool) {
	if inv.Err == nil {
		return "", false
	}
	return KindOf(inv.Err)
}

func (inv *Invocation[In, Out]) Duration() time.Duration {
	if inv.Finished.IsZero() {
		return 0
	}
	return inv.Finished.Sub(inv.Started)
}

// Record is the type-erased summary of an invocation.
type Record struct {
	ID         uuid.UUID `json:"id"`
	Flow       string    `json:"flow"`
	Version    string    `json:"version"`
	State      State     `json:"state"`
	Trail      []State   `json:"trail"`
	Kind       Kind      `json:"kind,omitempty"`
	Model      string    `json:"model,omitempty"`
	DurationMS int64     `json:"durationMs"`
}

func (inv *Invocation[In, Out]) Record() Record {
	kind, _ := inv.Kind()
	return Record{
		ID:         inv.ID,
		Flow:       inv.Flow,
		Version:    inv.Version,
		State:      inv.State,
		Trail:      append([]State(nil), inv.Trail...),
		Kind:       kind,
		Model:      inv.Model,
		DurationMS: inv.Duration().Milliseconds(),
	}
}
