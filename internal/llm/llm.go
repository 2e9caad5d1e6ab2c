// Package llm defines the generative model boundary used by prompt flows and
// the middleware that wraps provider clients.
package llm

import (
	"context"

	"github.com/yungbote/careerprep-backend/internal/flow/template"
)

// Request is one structured-output call.
type Request struct {
	Flow   string
	System string
	Prompt template.Prompt
	// SchemaName and Schema describe the JSON response contract.
	SchemaName string
	Schema     map[string]any
}

type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Response carries the raw model text. Decoding and validation belong to the caller.
type Response struct {
	Text  string
	Model string
	Usage Usage
}

// Model is a generative model client. Implementations must be safe for concurrent use.
type Model interface {
	Generate(ctx context.Context, req Request) (Response, error)
}

// ModelFunc adapts a function to Model.
type ModelFunc func(ctx context.Context, req Request) (Response, error)

func (f ModelFunc) Generate(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}

// MediaSupporter is implemented by models that accept only some attachment types.
type MediaSupporter interface {
	SupportsMedia(mediaType string) bool
}

// SupportsMedia reports whether m accepts mediaType as an attachment. Models
// that do not say are assumed to accept everything.
func SupportsMedia(m Model, mediaType string) bool {
	if ms, ok := m.(MediaSupporter); ok {
		return ms.SupportsMedia(mediaType)
	}
	return true
}
