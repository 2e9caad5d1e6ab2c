package career

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/yungbote/careerprep-backend/internal/data/repos"
	"github.com/yungbote/careerprep-backend/internal/domain"
	"github.com/yungbote/careerprep-backend/internal/flow"
	"github.com/yungbote/careerprep-backend/internal/flow/schema"
	"github.com/yungbote/careerprep-backend/internal/llm"
	"github.com/yungbote/careerprep-backend/internal/modules/persist"
	"github.com/yungbote/careerprep-backend/internal/platform/apierr"
	"github.com/yungbote/careerprep-backend/internal/platform/ctxutil"
	"github.com/yungbote/careerprep-backend/internal/platform/docextract"
	"github.com/yungbote/careerprep-backend/internal/platform/gcp"
	"github.com/yungbote/careerprep-backend/internal/platform/gemini"
	"github.com/yungbote/careerprep-backend/internal/platform/logger"
)

// Saver is the subset of persist.Saver the use cases need.
type Saver interface {
	Save(ctx context.Context, userID uuid.UUID, collection string, items ...persist.Item)
	SaveSync(ctx context.Context, userID uuid.UUID, collection string, items ...persist.Item) ([]*domain.Record, error)
}

type UsecasesDeps struct {
	Log   *logger.Logger
	Model llm.Model
	Flows *Flows
	Users repos.UserRepo
	Saver Saver
	// Speech is optional; nil behaves like gcp.Disabled.
	Speech gcp.Transcriber
	// Voice is optional; nil behaves like gemini.SpeechDisabled.
	Voice gemini.Speaker

	ResumeTextMaxBytes int
}

type Usecases struct {
	deps UsecasesDeps
}

func New(deps UsecasesDeps) Usecases {
	if deps.Log == nil {
		deps.Log = logger.NewNop()
	}
	deps.Log = deps.Log.With("service", "CareerUsecases")
	if deps.Speech == nil {
		deps.Speech = gcp.Disabled{}
	}
	if deps.Voice == nil {
		deps.Voice = gemini.SpeechDisabled{}
	}
	return Usecases{deps: deps}
}

func (u Usecases) Flows() *Flows { return u.deps.Flows }

// run executes one flow and logs its outcome.
func run[In, Out any](ctx context.Context, u Usecases, f *flow.Flow[In, Out], userID uuid.UUID, in In) (Out, *flow.Invocation[In, Out], error) {
	if userID == uuid.Nil {
		var zero Out
		return zero, nil, apierr.Unauthorized("unauthorized", nil)
	}
	out, inv, err := f.Run(ctx, u.deps.Model, in)
	if err != nil {
		kind, _ := flow.KindOf(err)
		kv := []any{
			"flow", f.Name(),
			"invocation_id", inv.ID.String(),
			"user_id", userID.String(),
			"kind", string(kind),
			"trail", inv.Trail,
			"duration_ms", inv.Duration().Milliseconds(),
			"error", err.Error(),
		}
		u.deps.Log.Warn("flow failed", append(kv, ctxutil.TraceFields(ctx)...)...)
		return out, inv, err
	}
	kv := []any{
		"flow", f.Name(),
		"invocation_id", inv.ID.String(),
		"user_id", userID.String(),
		"model", inv.Model,
		"duration_ms", inv.Duration().Milliseconds(),
	}
	u.deps.Log.Info("flow complete", append(kv, ctxutil.TraceFields(ctx)...)...)
	return out, inv, nil
}

func correlation[In, Out any](ctx context.Context, inv *flow.Invocation[In, Out], extra map[string]any) map[string]any {
	m := map[string]any{"flow": inv.Flow, "flowVersion": inv.Version, "invocationId": inv.ID.String()}
	for k, v := range extra {
		m[k] = v
	}
	return ctxutil.AnnotateTrace(ctx, m)
}

func (u Usecases) save(ctx context.Context, userID uuid.UUID, collection string, items []persist.Item) {
	if u.deps.Saver == nil || len(items) == 0 {
		return
	}
	u.deps.Saver.Save(ctx, userID, collection, items...)
}

// GenerateResumes writes tailored resume variants and stores each one.
func (u Usecases) GenerateResumes(ctx context.Context, userID uuid.UUID, in ResumeInput) (ResumeOutput, error) {
	in, err := u.resumeFallback(in)
	if err != nil {
		return ResumeOutput{}, err
	}
	out, inv, err := run(ctx, u, u.deps.Flows.Resume, userID, in)
	if err != nil {
		return ResumeOutput{}, err
	}
	items := make([]persist.Item, 0, len(out.OptimizedResumes))
	for _, r := range out.OptimizedResumes {
		items = append(items, persist.Item{
			Payload:     map[string]any{"jobDescription": in.JobDescription, "resumeContent": r},
			Correlation: correlation(ctx, inv, nil),
		})
	}
	u.save(ctx, userID, domain.CollectionGeneratedResumes, items)
	return out, nil
}

// resumeFallback swaps the attachment for extracted text when the model
// cannot take the upload format.
func (u Usecases) resumeFallback(in ResumeInput) (ResumeInput, error) {
	if strings.TrimSpace(in.ResumeText) != "" {
		return in, nil
	}
	ref, err := schema.ParseMedia(in.ResumeDataURI)
	if err != nil {
		// Left to input validation.
		return in, nil
	}
	if llm.SupportsMedia(u.deps.Model, ref.MediaType) || !docextract.Supported(ref.MediaType) {
		return in, nil
	}
	text, err := docextract.ExtractText(ref.MediaType, ref.Data, u.deps.ResumeTextMaxBytes)
	if err != nil || strings.TrimSpace(text) == "" {
		reason := "document has no readable text"
		if err != nil {
			reason = "could not read document: " + err.Error()
		}
		return in, &flow.ValidationError{
			Flow:       FlowGenerateOptimizedResume,
			Violations: schema.Violations{{Path: "resumeDataUri", Reason: reason}},
		}
	}
	u.deps.Log.Debug("resume text extracted", "media_type", ref.MediaType, "bytes", len(text))
	in.ResumeText = text
	return in, nil
}

// SuggestProjects suggests portfolio projects and stores each one.
func (u Usecases) SuggestProjects(ctx context.Context, userID uuid.UUID, in ProjectsInput) (ProjectsOutput, error) {
	out, inv, err := run(ctx, u, u.deps.Flows.Projects, userID, in)
	if err != nil {
		return ProjectsOutput{}, err
	}
	items := make([]persist.Item, 0, len(out.Projects))
	for _, p := range out.Projects {
		items = append(items, persist.Item{
			Payload: map[string]any{
				"title":          p.Title,
				"description":    p.Description,
				"features":       p.Features,
				"techStack":      p.TechStack,
				"originalPrompt": in.Prompt,
			},
			Correlation: correlation(ctx, inv, nil),
		})
	}
	u.save(ctx, userID, domain.CollectionProjectSuggestions, items)
	return out, nil
}

// SummarizeNote titles and summarizes a note and stores it.
func (u Usecases) SummarizeNote(ctx context.Context, userID uuid.UUID, in NoteSummaryInput) (NoteSummaryOutput, error) {
	out, inv, err := run(ctx, u, u.deps.Flows.NoteSummary, userID, in)
	if err != nil {
		return NoteSummaryOutput{}, err
	}
	u.save(ctx, userID, domain.CollectionNotes, []persist.Item{{
		Payload:     map[string]any{"title": out.Title, "content": in.Content, "summary": out.Summary},
		Correlation: correlation(ctx, inv, nil),
	}})
	return out, nil
}

// SuggestJobs matches job roles to a profile and stores them as one batch.
// A blank profile falls back to the stored user profile.
func (u Usecases) SuggestJobs(ctx context.Context, userID uuid.UUID, in JobsInput) (JobsOutput, error) {
	if strings.TrimSpace(in.ProfileData) == "" && u.deps.Users != nil && userID != uuid.Nil {
		users, err := u.deps.Users.GetByIDs(ctx, nil, []uuid.UUID{userID})
		if err != nil {
			return JobsOutput{}, apierr.New(http.StatusInternalServerError, "load_profile_failed", err)
		}
		if len(users) > 0 {
			in.ProfileData = users[0].ProfileText()
		}
	}
	out, inv, err := run(ctx, u, u.deps.Flows.Jobs, userID, in)
	if err != nil {
		return JobsOutput{}, err
	}
	items := make([]persist.Item, 0, len(out.JobRoles))
	for _, job := range out.JobRoles {
		items = append(items, persist.Item{Payload: job, Correlation: correlation(ctx, inv, nil)})
	}
	u.save(ctx, userID, domain.CollectionSuggestedJobs, items)
	return out, nil
}

func (u Usecases) GenerateQuiz(ctx context.Context, userID uuid.UUID, in QuizInput) (QuizOutput, error) {
	out, _, err := run(ctx, u, u.deps.Flows.Quiz, userID, in)
	return out, err
}

type QuizAttemptInput struct {
	Topic     string         `json:"topic"`
	Questions []QuizQuestion `json:"questions"`
	Answers   []string       `json:"answers"`
}

type QuizAttemptResult struct {
	ID             uuid.UUID `json:"id"`
	Topic          string    `json:"topic"`
	Score          int       `json:"score"`
	TotalQuestions int       `json:"totalQuestions"`
}

const flowQuizAttempt = "quiz-attempt"

// SubmitQuizAttempt scores an attempt and stores it before returning.
func (u Usecases) SubmitQuizAttempt(ctx context.Context, userID uuid.UUID, in QuizAttemptInput) (QuizAttemptResult, error) {
	if userID == uuid.Nil {
		return QuizAttemptResult{}, apierr.Unauthorized("unauthorized", nil)
	}
	var vs schema.Violations
	if strings.TrimSpace(in.Topic) == "" {
		vs = append(vs, schema.Violation{Path: "topic", Reason: "must not be blank"})
	}
	if len(in.Questions) == 0 {
		vs = append(vs, schema.Violation{Path: "questions", Reason: "must have at least 1 items"})
	}
	if len(in.Answers) > len(in.Questions) {
		vs = append(vs, schema.Violation{Path: "answers", Reason: fmt.Sprintf("must have at most %d items", len(in.Questions))})
	}
	if len(vs) > 0 {
		return QuizAttemptResult{}, &flow.ValidationError{Flow: flowQuizAttempt, Violations: vs}
	}

	res := QuizAttemptResult{
		Topic:          strings.TrimSpace(in.Topic),
		Score:          ScoreQuiz(in.Questions, in.Answers),
		TotalQuestions: len(in.Questions),
	}
	if u.deps.Saver == nil {
		return res, &flow.PersistenceError{Collection: domain.CollectionAptitudeTestAttempts, Cause: errors.New("no saver configured")}
	}
	recs, err := u.deps.Saver.SaveSync(ctx, userID, domain.CollectionAptitudeTestAttempts, persist.Item{
		Payload: map[string]any{"topic": res.Topic, "score": res.Score, "totalQuestions": res.TotalQuestions},
	})
	if err != nil {
		return QuizAttemptResult{}, err
	}
	if len(recs) > 0 {
		res.ID = recs[0].ID
	}
	return res, nil
}

func (u Usecases) SimulateInterview(ctx context.Context, userID uuid.UUID, in InterviewInput) (InterviewOutput, error) {
	out, _, err := run(ctx, u, u.deps.Flows.Interview, userID, in)
	return out, err
}

func (u Usecases) NetworkingSuggestions(ctx context.Context, userID uuid.UUID, in NetworkingInput) (NetworkingOutput, error) {
	out, _, err := run(ctx, u, u.deps.Flows.Networking, userID, in)
	return out, err
}

func (u Usecases) CodingAssistant(ctx context.Context, userID uuid.UUID, in CodingInput) (CodingOutput, error) {
	out, _, err := run(ctx, u, u.deps.Flows.Coding, userID, in)
	return out, err
}

type TranscribeInput struct {
	AudioDataURI string `json:"audioDataUri"`
	LanguageCode string `json:"languageCode,omitempty"`
}

type TranscribeOutput struct {
	Text string `json:"text"`
}

const flowTranscribeNote = "transcribe-note"

// TranscribeNote turns a recorded note into text. It returns
// gcp.ErrSpeechDisabled when transcription is not configured.
func (u Usecases) TranscribeNote(ctx context.Context, userID uuid.UUID, in TranscribeInput) (TranscribeOutput, error) {
	if userID == uuid.Nil {
		return TranscribeOutput{}, apierr.Unauthorized("unauthorized", nil)
	}
	ref, err := schema.ParseMedia(in.AudioDataURI)
	if err != nil {
		return TranscribeOutput{}, &flow.ValidationError{
			Flow:       flowTranscribeNote,
			Violations: schema.Violations{{Path: "audioDataUri", Reason: err.Error()}},
		}
	}
	if !ref.IsAudio() {
		return TranscribeOutput{}, &flow.ValidationError{
			Flow:       flowTranscribeNote,
			Violations: schema.Violations{{Path: "audioDataUri", Reason: fmt.Sprintf("media type %q not allowed", ref.MediaType)}},
		}
	}
	text, err := u.deps.Speech.Transcribe(ctx, ref.Data, ref.MediaType, in.LanguageCode)
	if err != nil {
		if errors.Is(err, gcp.ErrSpeechDisabled) {
			return TranscribeOutput{}, err
		}
		u.deps.Log.Warn("transcription failed", "user_id", userID.String(), "media_type", ref.MediaType, "error", err.Error())
		return TranscribeOutput{}, &flow.TransportError{Flow: flowTranscribeNote, Cause: err}
	}
	return TranscribeOutput{Text: text}, nil
}

type SpeakInput struct {
	Text string `json:"text"`
}

type SpeakOutput struct {
	// Audio is a data:audio/wav;base64 URI.
	Audio string `json:"audio"`
}

const (
	flowTextToSpeech = "text-to-speech"
	maxSpeakRunes    = 5000
)

// SpeakText reads text aloud for the interview and networking practice
// screens. It returns gemini.ErrSynthesisDisabled when synthesis is not
// configured.
func (u Usecases) SpeakText(ctx context.Context, userID uuid.UUID, in SpeakInput) (SpeakOutput, error) {
	if userID == uuid.Nil {
		return SpeakOutput{}, apierr.Unauthorized("unauthorized", nil)
	}
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return SpeakOutput{}, &flow.ValidationError{
			Flow:       flowTextToSpeech,
			Violations: schema.Violations{{Path: "text", Reason: "must not be blank"}},
		}
	}
	if n := utf8.RuneCountInString(text); n > maxSpeakRunes {
		return SpeakOutput{}, &flow.ValidationError{
			Flow:       flowTextToSpeech,
			Violations: schema.Violations{{Path: "text", Reason: fmt.Sprintf("must be at most %d characters, got %d", maxSpeakRunes, n)}},
		}
	}
	wav, err := u.deps.Voice.Speak(ctx, text)
	if err != nil {
		if errors.Is(err, gemini.ErrSynthesisDisabled) {
			return SpeakOutput{}, err
		}
		kv := []any{"user_id", userID.String(), "chars", len(text), "error", err.Error()}
		u.deps.Log.Warn("speech synthesis failed", append(kv, ctxutil.TraceFields(ctx)...)...)
		return SpeakOutput{}, &flow.TransportError{Flow: flowTextToSpeech, Cause: err}
	}
	return SpeakOutput{Audio: "data:audio/wav;base64," + base64.StdEncoding.EncodeToString(wav)}, nil
}
