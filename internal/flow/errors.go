package flow

import (
	"context"
	"errors"
	"fmt"

	"github.com/yungbote/careerprep-backend/internal/flow/schema"
)

// Kind classifies why an invocation failed.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindModelContract Kind = "model_contract"
	KindTransport     Kind = "transport"
	KindPersistence   Kind = "persistence"
)

var (
	ErrUnknownFlow   = errors.New("unknown flow")
	ErrDuplicateFlow = errors.New("duplicate flow")
)

type kinded interface {
	error
	Kind() Kind
}

// KindOf returns the failure kind carried anywhere in err's chain.
func KindOf(err error) (Kind, bool) {
	var k kinded
	if errors.As(err, &k) {
		return k.Kind(), true
	}
	return "", false
}

// ValidationError means the caller's input did not match the input schema.
type ValidationError struct {
	Flow       string
	Violations schema.Violations
}

func (e *ValidationError) Kind() Kind { return KindValidation }

func (e *ValidationError) Error() string {
	return fmt.Sprintf("flow %s: invalid input: %s", e.Flow, e.Violations.Error())
}

// ModelContractError means the model answered but the answer broke the output
// contract. Raw is kept for logs and never shown to end users.
type ModelContractError struct {
	Flow       string
	Violations schema.Violations
	Raw        string
	Cause      error
}

func (e *ModelContractError) Kind() Kind { return KindModelContract }

func (e *ModelContractError) Error() string {
	switch {
	case e.Cause != nil:
		return fmt.Sprintf("flow %s: model response not decodable: %v", e.Flow, e.Cause)
	case len(e.Violations) > 0:
		return fmt.Sprintf("flow %s: model response rejected: %s", e.Flow, e.Violations.Error())
	}
	return fmt.Sprintf("flow %s: model response rejected", e.Flow)
}

func (e *ModelContractError) Unwrap() error { return e.Cause }

// TransportError means the model call itself failed.
type TransportError struct {
	Flow      string
	Cause     error
	Status    int
	Retryable bool
}

func (e *TransportError) Kind() Kind { return KindTransport }

func (e *TransportError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("flow %s: model call failed (status %d): %v", e.Flow, e.Status, e.Cause)
	}
	return fmt.Sprintf("flow %s: model call failed: %v", e.Flow, e.Cause)
}

func (e *TransportError) Unwrap() error { return e.Cause }

// Timeout reports whether the call ran out of time.
func (e *TransportError) Timeout() bool { return errors.Is(e.Cause, context.DeadlineExceeded) }

// PersistenceError means a record write failed after a successful flow.
type PersistenceError struct {
	Collection string
	Cause      error
}

func (e *PersistenceError) Kind() Kind { return KindPersistence }

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Collection, e.Cause)
}

func (e *PersistenceError) Unwrap() error { return e.Cause }
