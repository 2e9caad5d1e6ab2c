package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/careerprep-backend/internal/flow"
	"github.com/yungbote/careerprep-backend/internal/flow/schema"
	"github.com/yungbote/careerprep-backend/internal/http/response"
	"github.com/yungbote/careerprep-backend/internal/llm"
	"github.com/yungbote/careerprep-backend/internal/modules/career"
	"github.com/yungbote/careerprep-backend/internal/platform/apierr"
	"github.com/yungbote/careerprep-backend/internal/platform/ctxutil"
	"github.com/yungbote/careerprep-backend/internal/platform/gcp"
	"github.com/yungbote/careerprep-backend/internal/platform/gemini"
)

type FlowHandler struct {
	usecases career.Usecases
	registry *flow.Registry
	model    llm.Model
}

func NewFlowHandler(usecases career.Usecases, registry *flow.Registry, model llm.Model) *FlowHandler {
	return &FlowHandler{usecases: usecases, registry: registry, model: model}
}

func invalidBody(flowName string, err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return apierr.New(http.StatusRequestEntityTooLarge, "body_too_large", err)
	}
	return &flow.ValidationError{
		Flow:       flowName,
		Violations: schema.Violations{{Reason: "invalid request body: " + err.Error()}},
	}
}

// bindStrict decodes the JSON body into dst and rejects fields dst does not declare.
func bindStrict(c *gin.Context, flowName string, dst any) error {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return invalidBody(flowName, err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = []byte("{}")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return invalidBody(flowName, err)
	}
	return nil
}

// serve binds In, runs fn for the signed-in user and writes its result.
func serve[In, Out any](c *gin.Context, flowName string, fn func(ctx context.Context, userID uuid.UUID, in In) (Out, error)) {
	var in In
	if err := bindStrict(c, flowName, &in); err != nil {
		response.RespondFlowError(c, err)
		return
	}
	out, err := fn(c.Request.Context(), ctxutil.UserID(c.Request.Context()), in)
	if err != nil {
		response.RespondFlowError(c, err)
		return
	}
	response.RespondOK(c, out)
}

// POST /api/flows/resume
func (fh *FlowHandler) GenerateResumes(c *gin.Context) {
	serve(c, career.FlowGenerateOptimizedResume, fh.usecases.GenerateResumes)
}

// POST /api/flows/interview
func (fh *FlowHandler) SimulateInterview(c *gin.Context) {
	serve(c, career.FlowSimulateTechnicalInterview, fh.usecases.SimulateInterview)
}

// POST /api/flows/quiz
func (fh *FlowHandler) GenerateQuiz(c *gin.Context) {
	serve(c, career.FlowGenerateQuiz, fh.usecases.GenerateQuiz)
}

// POST /api/quiz-attempts
func (fh *FlowHandler) SubmitQuizAttempt(c *gin.Context) {
	serve(c, "quiz-attempt", fh.usecases.SubmitQuizAttempt)
}

// POST /api/flows/projects
func (fh *FlowHandler) SuggestProjects(c *gin.Context) {
	serve(c, career.FlowSuggestProjects, fh.usecases.SuggestProjects)
}

// POST /api/flows/jobs
func (fh *FlowHandler) SuggestJobs(c *gin.Context) {
	serve(c, career.FlowSuggestRelevantJobs, fh.usecases.SuggestJobs)
}

// POST /api/flows/networking
func (fh *FlowHandler) NetworkingSuggestions(c *gin.Context) {
	serve(c, career.FlowNetworkingSuggestions, fh.usecases.NetworkingSuggestions)
}

// POST /api/flows/notes/summary
func (fh *FlowHandler) SummarizeNote(c *gin.Context) {
	serve(c, career.FlowGenerateNoteSummary, fh.usecases.SummarizeNote)
}

// POST /api/flows/coding-assistant
func (fh *FlowHandler) CodingAssistant(c *gin.Context) {
	serve(c, career.FlowCodingAssistant, fh.usecases.CodingAssistant)
}

// POST /api/flows/tts
func (fh *FlowHandler) SpeakText(c *gin.Context) {
	var in career.SpeakInput
	if err := bindStrict(c, "text-to-speech", &in); err != nil {
		response.RespondFlowError(c, err)
		return
	}
	out, err := fh.usecases.SpeakText(c.Request.Context(), ctxutil.UserID(c.Request.Context()), in)
	if errors.Is(err, gemini.ErrSynthesisDisabled) {
		response.RespondError(c, http.StatusNotImplemented, "tts_disabled", err)
		return
	}
	if err != nil {
		response.RespondFlowError(c, err)
		return
	}
	response.RespondOK(c, out)
}

// POST /api/flows/notes/transcribe
func (fh *FlowHandler) TranscribeNote(c *gin.Context) {
	var in career.TranscribeInput
	if err := bindStrict(c, "transcribe-note", &in); err != nil {
		response.RespondFlowError(c, err)
		return
	}
	out, err := fh.usecases.TranscribeNote(c.Request.Context(), ctxutil.UserID(c.Request.Context()), in)
	if errors.Is(err, gcp.ErrSpeechDisabled) {
		response.RespondError(c, http.StatusNotImplemented, "transcription_disabled", err)
		return
	}
	if err != nil {
		response.RespondFlowError(c, err)
		return
	}
	response.RespondOK(c, out)
}

// GET /api/flows
func (fh *FlowHandler) ListFlows(c *gin.Context) {
	response.RespondOK(c, gin.H{"flows": fh.registry.Describe()})
}

// POST /api/flows/:name/run
// Runs any registered flow on a raw JSON body. Nothing is stored.
func (fh *FlowHandler) RunFlow(c *gin.Context) {
	name := c.Param("name")
	if _, ok := fh.registry.Get(name); !ok {
		response.RespondFlowError(c, fmt.Errorf("%w: %s", flow.ErrUnknownFlow, name))
		return
	}
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.RespondFlowError(c, invalidBody(name, err))
		return
	}
	out, rec, err := fh.registry.RunJSON(c.Request.Context(), fh.model, name, raw)
	if err != nil {
		response.RespondFlowError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"output": out, "invocation": rec})
}
