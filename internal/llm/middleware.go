package llm

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/careerprep-backend/internal/platform/envutil"
	"github.com/yungbote/careerprep-backend/internal/platform/httpx"
	"github.com/yungbote/careerprep-backend/internal/platform/logger"
)

// Middleware decorates a Model with a cross-cutting concern.
type Middleware func(Model) Model

// Chain applies middlewares so that Chain(m, A, B) == A(B(m)). The result
// keeps answering SupportsMedia for base.
func Chain(base Model, mws ...Middleware) Model {
	out := base
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] != nil {
			out = mws[i](out)
		}
	}
	return &chained{head: out, base: base}
}

type chained struct {
	head Model
	base Model
}

func (c *chained) Generate(ctx context.Context, req Request) (Response, error) {
	return c.head.Generate(ctx, req)
}

func (c *chained) SupportsMedia(mediaType string) bool { return SupportsMedia(c.base, mediaType) }

// -------- Retry --------

type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 2, BaseDelay: 500 * time.Millisecond, MaxDelay: 8 * time.Second}
}

// RetryPolicyFromEnv reads LLM_MAX_RETRIES over the defaults.
func RetryPolicyFromEnv() RetryPolicy {
	p := DefaultRetryPolicy()
	p.MaxRetries = envutil.Int("LLM_MAX_RETRIES", p.MaxRetries)
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	return p
}

// WithRetry retries transient transport failures with jittered exponential
// backoff. Errors that are not retryable and caller cancellation return at once.
func WithRetry(p RetryPolicy, log *logger.Logger) Middleware {
	if log == nil {
		log = logger.NewNop()
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultRetryPolicy().BaseDelay
	}
	return func(next Model) Model {
		return ModelFunc(func(ctx context.Context, req Request) (Response, error) {
			backoff := p.BaseDelay
			for attempt := 0; ; attempt++ {
				resp, err := next.Generate(ctx, req)
				if err == nil {
					return resp, nil
				}
				if attempt >= p.MaxRetries || ctx.Err() != nil || !httpx.IsRetryableError(err) {
					return Response{}, err
				}

				sleepFor := backoff
				var ra httpx.RetryAfterer
				if errors.As(err, &ra) && ra.RetryAfter() > 0 {
					sleepFor = ra.RetryAfter()
				}
				if p.MaxDelay > 0 && sleepFor > p.MaxDelay {
					sleepFor = p.MaxDelay
				}
				sleepFor = httpx.JitterSleep(sleepFor)

				log.Warn("model call retrying",
					"flow", req.Flow,
					"attempt", attempt+1,
					"max_retries", p.MaxRetries,
					"sleep", sleepFor.String(),
					"error", err.Error(),
				)
				if serr := httpx.Sleep(ctx, sleepFor); serr != nil {
					return Response{}, err
				}
				backoff *= 2
			}
		})
	}
}

// -------- Logging --------

func WithLogging(log *logger.Logger) Middleware {
	if log == nil {
		log = logger.NewNop()
	}
	log = log.With("service", "Model")
	return func(next Model) Model {
		return ModelFunc(func(ctx context.Context, req Request) (Response, error) {
			start := time.Now()
			resp, err := next.Generate(ctx, req)
			kv := []any{
				"flow", req.Flow,
				"model", resp.Model,
				"duration_ms", time.Since(start).Milliseconds(),
			}
			if err != nil {
				log.Warn("model call failed", append(kv, "error_class", ErrorClass(err), "error", err.Error())...)
				return resp, err
			}
			log.Debug("model call", append(kv,
				"input_tokens", resp.Usage.InputTokens,
				"output_tokens", resp.Usage.OutputTokens,
			)...)
			return resp, nil
		})
	}
}

// ErrorClass buckets a model error for logs and span attributes.
func ErrorClass(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	}
	status := httpx.StatusOf(err)
	switch {
	case status == http.StatusTooManyRequests:
		return "rate_limited"
	case status >= 500:
		return "upstream_5xx"
	case status >= 400:
		return "upstream_4xx"
	case httpx.IsRetryableError(err):
		return "network"
	}
	return "error"
}

// -------- Tracing --------

const tracerName = "github.com/yungbote/careerprep-backend/internal/llm"

func WithTracing() Middleware {
	return func(next Model) Model {
		tracer := otel.Tracer(tracerName)
		return ModelFunc(func(ctx context.Context, req Request) (Response, error) {
			ctx, span := tracer.Start(ctx, "llm.generate",
				trace.WithSpanKind(trace.SpanKindClient),
				trace.WithAttributes(
					attribute.String("llm.flow", req.Flow),
					attribute.String("llm.schema", req.SchemaName),
					attribute.Bool("llm.has_media", req.Prompt.HasMedia()),
				),
			)
			defer span.End()

			resp, err := next.Generate(ctx, req)
			if resp.Model != "" {
				span.SetAttributes(attribute.String("llm.model", resp.Model))
			}
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, ErrorClass(err))
				return resp, err
			}
			span.SetAttributes(
				attribute.Int("llm.input_tokens", resp.Usage.InputTokens),
				attribute.Int("llm.output_tokens", resp.Usage.OutputTokens),
			)
			return resp, nil
		})
	}
}
