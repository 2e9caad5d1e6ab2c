// Package gemini adapts the Gemini API to llm.Model.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/yungbote/careerprep-backend/internal/flow/template"
	"github.com/yungbote/careerprep-backend/internal/llm"
	"github.com/yungbote/careerprep-backend/internal/platform/envutil"
	"github.com/yungbote/careerprep-backend/internal/platform/logger"
)

const DefaultModel = "gemini-2.5-flash"

type Config struct {
	APIKey      string
	Model       string
	Temperature float32
	SpeechModel string
	Voice       string
}

func ConfigFromEnv() Config {
	return Config{
		APIKey:      envutil.String("GEMINI_API_KEY", ""),
		Model:       envutil.String("GEMINI_MODEL", DefaultModel),
		Temperature: 0.2,
		SpeechModel: envutil.String("GEMINI_TTS_MODEL", DefaultSpeechModel),
		Voice:       envutil.String("GEMINI_TTS_VOICE", DefaultVoice),
	}
}

// Client is a thin wrapper around the genai client. Retries, logging and
// tracing are applied as llm middleware.
type Client struct {
	log   *logger.Logger
	gen   generator
	model string
	temp  float32
}

type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

func NewClient(ctx context.Context, log *logger.Logger, cfg Config) (*Client, error) {
	if log == nil {
		return nil, errors.New("logger required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("missing GEMINI_API_KEY")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &Client{
		log:   log.With("service", "GeminiClient"),
		gen:   cli.Models,
		model: cfg.Model,
		temp:  cfg.Temperature,
	}, nil
}

func (c *Client) ModelName() string { return c.model }

// SupportsMedia reports whether Gemini takes mediaType as inline data.
func (c *Client) SupportsMedia(mediaType string) bool {
	switch {
	case mediaType == "application/pdf", mediaType == "text/plain":
		return true
	case strings.HasPrefix(mediaType, "image/"), strings.HasPrefix(mediaType, "audio/"):
		return true
	}
	return false
}

// statusError carries the upstream HTTP status of a genai.APIError.
type statusError struct {
	code int
	err  error
}

func (e *statusError) Error() string       { return e.err.Error() }
func (e *statusError) Unwrap() error       { return e.err }
func (e *statusError) HTTPStatusCode() int { return e.code }

func classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code > 0 {
		return &statusError{code: apiErr.Code, err: err}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil && apiErrPtr.Code > 0 {
		return &statusError{code: apiErrPtr.Code, err: err}
	}
	return err
}

func parts(p template.Prompt) []*genai.Part {
	if !p.HasMedia() {
		return []*genai.Part{{Text: p.Text}}
	}
	out := make([]*genai.Part, 0, len(p.Parts))
	for _, part := range p.Parts {
		switch part.Kind {
		case template.PartText:
			out = append(out, &genai.Part{Text: part.Text})
		case template.PartMedia:
			out = append(out, &genai.Part{InlineData: &genai.Blob{
				MIMEType: part.Media.MediaType,
				Data:     part.Media.Data,
			}})
		}
	}
	return out
}

// Generate implements llm.Model.
func (c *Client) Generate(ctx context.Context, r llm.Request) (llm.Response, error) {
	temp := c.temp
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType:   "application/json",
		ResponseJsonSchema: r.Schema,
		Temperature:        &temp,
	}
	if strings.TrimSpace(r.System) != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: r.System}}}
	}
	contents := []*genai.Content{{Role: genai.RoleUser, Parts: parts(r.Prompt)}}

	resp, err := c.gen.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return llm.Response{Model: c.model}, classify(err)
	}
	out := llm.Response{Text: resp.Text(), Model: c.model}
	if resp.ModelVersion != "" {
		out.Model = resp.ModelVersion
	}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = llm.Usage{InputTokens: int(u.PromptTokenCount), OutputTokens: int(u.CandidatesTokenCount)}
	}
	return out, nil
}
