package app

import (
	"context"
	"fmt"

	"github.com/yungbote/careerprep-backend/internal/llm"
	"github.com/yungbote/careerprep-backend/internal/platform/gcp"
	"github.com/yungbote/careerprep-backend/internal/platform/gemini"
	"github.com/yungbote/careerprep-backend/internal/platform/logger"
	"github.com/yungbote/careerprep-backend/internal/platform/openai"
	"github.com/yungbote/careerprep-backend/internal/realtime/bus"
)

type Clients struct {
	Model  llm.Model
	Speech gcp.Transcriber
	Voice  gemini.Speaker
	SSEBus bus.Bus
}

// NewModel builds the configured provider client wrapped in retry, logging
// and tracing.
func NewModel(ctx context.Context, log *logger.Logger, cfg Config) (llm.Model, error) {
	var base llm.Model
	switch cfg.LLMProvider {
	case ProviderOpenAI:
		c, err := openai.NewClient(log, cfg.OpenAI)
		if err != nil {
			return nil, fmt.Errorf("init openai client: %w", err)
		}
		base = c
	case ProviderGemini:
		c, err := gemini.NewClient(ctx, log, cfg.Gemini)
		if err != nil {
			return nil, fmt.Errorf("init gemini client: %w", err)
		}
		base = c
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q", cfg.LLMProvider)
	}
	log.Info("model provider ready", "provider", cfg.LLMProvider)
	return llm.Chain(base,
		llm.WithTracing(),
		llm.WithLogging(log),
		llm.WithRetry(cfg.Retry, log),
	), nil
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	model, err := NewModel(ctx, log, cfg)
	if err != nil {
		return Clients{}, err
	}

	var speech gcp.Transcriber = gcp.Disabled{}
	if cfg.SpeechEnabled {
		s, err := gcp.NewSpeech(ctx, log)
		if err != nil {
			return Clients{}, fmt.Errorf("init speech client: %w", err)
		}
		speech = s
	}

	var voice gemini.Speaker = gemini.SpeechDisabled{}
	if cfg.TTSEnabled {
		v, err := gemini.NewSpeaker(ctx, log, cfg.Gemini)
		if err != nil {
			_ = speech.Close()
			return Clients{}, fmt.Errorf("init speech synthesis: %w", err)
		}
		voice = v
	}

	sseBus, err := bus.NewSSEBus(log)
	if err != nil {
		_ = speech.Close()
		return Clients{}, fmt.Errorf("init SSE bus: %w", err)
	}

	return Clients{Model: model, Speech: speech, Voice: voice, SSEBus: sseBus}, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.SSEBus != nil {
		_ = c.SSEBus.Close()
	}
	if c.Speech != nil {
		_ = c.Speech.Close()
	}
}
