package career

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/yungbote/careerprep-backend/internal/domain"
	"github.com/yungbote/careerprep-backend/internal/flow"
	"github.com/yungbote/careerprep-backend/internal/platform/apierr"
	"github.com/yungbote/careerprep-backend/internal/platform/ctxutil"
	"github.com/yungbote/careerprep-backend/internal/platform/docextract"
	"github.com/yungbote/careerprep-backend/internal/platform/gcp"
	"github.com/yungbote/careerprep-backend/internal/platform/gemini"
	"github.com/yungbote/careerprep-backend/internal/platform/logger"
)

func newUsecases(t *testing.T, m *scriptedModel, saver *fakeSaver, users *fakeUsers) Usecases {
	t.Helper()
	deps := UsecasesDeps{Model: m, Flows: mustFlows(t)}
	if saver != nil {
		deps.Saver = saver
	}
	if users != nil {
		deps.Users = users
	}
	return New(deps)
}

func TestGenerateResumesStoresEachVariant(t *testing.T) {
	m := newScriptedModel(map[string]string{FlowGenerateOptimizedResume: resumeAnswer})
	saver := &fakeSaver{}
	uc := newUsecases(t, m, saver, nil)
	userID := uuid.New()

	out, err := uc.GenerateResumes(context.Background(), userID, ResumeInput{
		ResumeDataURI:  dataURI(docextract.MediaPDF, "%PDF-1.4"),
		JobDescription: "Go engineer",
		NumVariants:    intPtr(3),
	})
	require.NoError(t, err)
	require.Len(t, out.OptimizedResumes, 3)

	require.Len(t, saver.batches, 1)
	b := saver.batches[0]
	assert.Equal(t, userID, b.userID)
	assert.Equal(t, domain.CollectionGeneratedResumes, b.collection)
	require.Len(t, b.items, 3)
	for i, item := range b.items {
		payload := item.Payload.(map[string]any)
		assert.Equal(t, "Go engineer", payload["jobDescription"])
		assert.Equal(t, out.OptimizedResumes[i], payload["resumeContent"])
		assert.Equal(t, FlowGenerateOptimizedResume, item.Correlation["flow"])
		assert.NotEmpty(t, item.Correlation["invocationId"])
	}
}

func TestGenerateResumesFallsBackToExtractedText(t *testing.T) {
	m := newScriptedModel(map[string]string{FlowGenerateOptimizedResume: resumeAnswer})
	m.noMedia = map[string]bool{docextract.MediaText: true}
	uc := newUsecases(t, m, &fakeSaver{}, nil)

	_, err := uc.GenerateResumes(context.Background(), uuid.New(), ResumeInput{
		ResumeDataURI:  dataURI(docextract.MediaText, "Jane Doe\nStaff Go engineer at Acme"),
		JobDescription: "Go engineer",
		NumVariants:    intPtr(3),
	})
	require.NoError(t, err)
	p := m.requests[0].Prompt
	assert.False(t, p.HasMedia())
	assert.Contains(t, p.Text, "Staff Go engineer at Acme")
}

func TestGenerateResumesRejectsUnreadableDocument(t *testing.T) {
	m := newScriptedModel(nil)
	m.noMedia = map[string]bool{docextract.MediaPDF: true}
	saver := &fakeSaver{}
	uc := newUsecases(t, m, saver, nil)

	_, err := uc.GenerateResumes(context.Background(), uuid.New(), ResumeInput{
		ResumeDataURI:  dataURI(docextract.MediaPDF, "not a pdf"),
		JobDescription: "Go engineer",
	})
	var ve *flow.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "resumeDataUri", ve.Violations[0].Path)
	assert.Equal(t, 0, m.calls())
	assert.Empty(t, saver.batches)
}

func TestFailedFlowStoresNothing(t *testing.T) {
	m := newScriptedModel(map[string]string{FlowSuggestProjects: `{"projects":[]}`})
	saver := &fakeSaver{}
	uc := newUsecases(t, m, saver, nil)

	_, err := uc.SuggestProjects(context.Background(), uuid.New(), ProjectsInput{Prompt: "Go"})
	kind, ok := flow.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, flow.KindModelContract, kind)
	assert.Empty(t, saver.batches)
}

func TestFlowRunsCarryRequestID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	m := newScriptedModel(map[string]string{FlowSuggestProjects: `{"projects":[]}`})
	saver := &fakeSaver{}
	uc := New(UsecasesDeps{
		Log:   &logger.Logger{SugaredLogger: zap.New(core).Sugar()},
		Model: m,
		Flows: mustFlows(t),
		Saver: saver,
	})
	ctx := ctxutil.WithTraceData(context.Background(), &ctxutil.TraceData{TraceID: "trace-7", RequestID: "req-7"})

	_, err := uc.SuggestProjects(ctx, uuid.New(), ProjectsInput{Prompt: "Go"})
	require.Error(t, err)
	failed := logs.FilterMessage("flow failed").All()
	require.Len(t, failed, 1)
	fields := failed[0].ContextMap()
	assert.Equal(t, "req-7", fields["request_id"])
	assert.Equal(t, "trace-7", fields["trace_id"])

	m.answers[FlowSuggestProjects] = `{"projects":[
	 {"title":"Tracker","description":"d","features":["a","b","c"],"techStack":["Go"]},
	 {"title":"Planner","description":"d","features":["a","b","c"],"techStack":["React"]}]}`
	_, err = uc.SuggestProjects(ctx, uuid.New(), ProjectsInput{Prompt: "Go"})
	require.NoError(t, err)
	require.Len(t, saver.batches, 1)
	for _, item := range saver.batches[0].items {
		assert.Equal(t, "req-7", item.Correlation["request_id"])
		assert.Equal(t, "trace-7", item.Correlation["trace_id"])
	}
	assert.Equal(t, "req-7", logs.FilterMessage("flow complete").All()[0].ContextMap()["request_id"])
}

func TestSuggestProjectsStoresPrompt(t *testing.T) {
	answer := `{"projects":[
	 {"title":"Tracker","description":"d","features":["a","b","c"],"techStack":["Go"]},
	 {"title":"Planner","description":"d","features":["a","b","c"],"techStack":["React"]}]}`
	m := newScriptedModel(map[string]string{FlowSuggestProjects: answer})
	saver := &fakeSaver{}
	uc := newUsecases(t, m, saver, nil)

	_, err := uc.SuggestProjects(context.Background(), uuid.New(), ProjectsInput{Prompt: "React and Go"})
	require.NoError(t, err)
	require.Len(t, saver.batches, 1)
	assert.Equal(t, domain.CollectionProjectSuggestions, saver.batches[0].collection)
	require.Len(t, saver.batches[0].items, 2)
	for _, item := range saver.batches[0].items {
		assert.Equal(t, "React and Go", item.Payload.(map[string]any)["originalPrompt"])
	}
}

func TestSummarizeNoteStoresNote(t *testing.T) {
	m := newScriptedModel(map[string]string{FlowGenerateNoteSummary: `{"title":"Channels in Go","summary":"Buffered vs unbuffered."}`})
	saver := &fakeSaver{}
	uc := newUsecases(t, m, saver, nil)

	out, err := uc.SummarizeNote(context.Background(), uuid.New(), NoteSummaryInput{Content: "channel notes"})
	require.NoError(t, err)
	assert.Equal(t, "Channels in Go", out.Title)
	require.Len(t, saver.batches, 1)
	assert.Equal(t, domain.CollectionNotes, saver.batches[0].collection)
	assert.Equal(t, map[string]any{
		"title":   "Channels in Go",
		"content": "channel notes",
		"summary": "Buffered vs unbuffered.",
	}, saver.batches[0].items[0].Payload)
}

func TestSuggestJobsUsesStoredProfile(t *testing.T) {
	answer := `{"jobRoles":[{"title":"SRE","company":"Acme","location":"Remote","description":"d","skills":["Go"],"relevanceScore":80}],"skillMap":[]}`
	m := newScriptedModel(map[string]string{FlowSuggestRelevantJobs: answer})
	userID := uuid.New()
	users := &fakeUsers{users: map[uuid.UUID]*domain.User{userID: {
		ID:              userID,
		FirstName:       "Ada",
		LastName:        "Lovelace",
		LinkedInProfile: "https://linkedin.com/in/ada",
	}}}
	saver := &fakeSaver{}
	uc := newUsecases(t, m, saver, users)

	out, err := uc.SuggestJobs(context.Background(), userID, JobsInput{})
	require.NoError(t, err)
	assert.Len(t, out.JobRoles, 1)
	assert.Contains(t, m.requests[0].Prompt.Text, "https://linkedin.com/in/ada")
	require.Len(t, saver.batches, 1)
	assert.Equal(t, domain.CollectionSuggestedJobs, saver.batches[0].collection)
}

func TestSuggestJobsWithoutAnyProfile(t *testing.T) {
	m := newScriptedModel(nil)
	userID := uuid.New()
	users := &fakeUsers{users: map[uuid.UUID]*domain.User{userID: {ID: userID, FirstName: "Ada"}}}
	uc := newUsecases(t, m, &fakeSaver{}, users)

	_, err := uc.SuggestJobs(context.Background(), userID, JobsInput{})
	var ve *flow.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, 0, m.calls())
}

func TestAnonymousCallerRejected(t *testing.T) {
	m := newScriptedModel(nil)
	uc := newUsecases(t, m, &fakeSaver{}, nil)

	_, err := uc.GenerateQuiz(context.Background(), uuid.Nil, QuizInput{Topic: "Go"})
	ae, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, ae.Status)
	assert.Equal(t, 0, m.calls())
}

func TestSubmitQuizAttempt(t *testing.T) {
	saver := &fakeSaver{}
	uc := newUsecases(t, newScriptedModel(nil), saver, nil)
	userID := uuid.New()

	res, err := uc.SubmitQuizAttempt(context.Background(), userID, QuizAttemptInput{
		Topic:     " Python ",
		Questions: []QuizQuestion{{CorrectAnswer: "A"}, {CorrectAnswer: "B"}, {CorrectAnswer: "C"}},
		Answers:   []string{"A", "B", "D"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Python", res.Topic)
	assert.Equal(t, 2, res.Score)
	assert.Equal(t, 3, res.TotalQuestions)
	assert.NotEqual(t, uuid.Nil, res.ID)

	require.Len(t, saver.batches, 1)
	assert.Equal(t, domain.CollectionAptitudeTestAttempts, saver.batches[0].collection)
	assert.Equal(t, map[string]any{"topic": "Python", "score": 2, "totalQuestions": 3}, saver.batches[0].items[0].Payload)
}

func TestSubmitQuizAttemptFailures(t *testing.T) {
	t.Run("invalid", func(t *testing.T) {
		uc := newUsecases(t, newScriptedModel(nil), &fakeSaver{}, nil)
		_, err := uc.SubmitQuizAttempt(context.Background(), uuid.New(), QuizAttemptInput{
			Questions: []QuizQuestion{{CorrectAnswer: "A"}},
			Answers:   []string{"A", "B"},
		})
		var ve *flow.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Len(t, ve.Violations, 2)
	})

	t.Run("write fails", func(t *testing.T) {
		saver := &fakeSaver{syncErr: &flow.PersistenceError{
			Collection: domain.CollectionAptitudeTestAttempts,
			Cause:      errors.New("db down"),
		}}
		uc := newUsecases(t, newScriptedModel(nil), saver, nil)
		_, err := uc.SubmitQuizAttempt(context.Background(), uuid.New(), QuizAttemptInput{
			Topic:     "Go",
			Questions: []QuizQuestion{{CorrectAnswer: "A"}},
		})
		kind, ok := flow.KindOf(err)
		require.True(t, ok)
		assert.Equal(t, flow.KindPersistence, kind)
	})
}

func TestTranscribeNote(t *testing.T) {
	audio := dataURI("audio/webm", "opus-frames")

	t.Run("disabled", func(t *testing.T) {
		uc := newUsecases(t, newScriptedModel(nil), nil, nil)
		_, err := uc.TranscribeNote(context.Background(), uuid.New(), TranscribeInput{AudioDataURI: audio})
		assert.ErrorIs(t, err, gcp.ErrSpeechDisabled)
	})

	t.Run("not audio", func(t *testing.T) {
		uc := newUsecases(t, newScriptedModel(nil), nil, nil)
		_, err := uc.TranscribeNote(context.Background(), uuid.New(), TranscribeInput{AudioDataURI: dataURI("image/png", "png")})
		var ve *flow.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "audioDataUri", ve.Violations[0].Path)
	})

	t.Run("transcribed", func(t *testing.T) {
		tr := &fakeTranscriber{text: "remember to review channels"}
		uc := New(UsecasesDeps{Flows: mustFlows(t), Speech: tr})
		out, err := uc.TranscribeNote(context.Background(), uuid.New(), TranscribeInput{AudioDataURI: audio})
		require.NoError(t, err)
		assert.Equal(t, "remember to review channels", out.Text)
		assert.Equal(t, "audio/webm", tr.mimeType)
	})
}

func TestSpeakText(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		uc := newUsecases(t, newScriptedModel(nil), nil, nil)
		_, err := uc.SpeakText(context.Background(), uuid.New(), SpeakInput{Text: "hello"})
		assert.ErrorIs(t, err, gemini.ErrSynthesisDisabled)
	})

	t.Run("blank text", func(t *testing.T) {
		sp := &fakeSpeaker{}
		uc := New(UsecasesDeps{Flows: mustFlows(t), Voice: sp})
		_, err := uc.SpeakText(context.Background(), uuid.New(), SpeakInput{Text: "  \n"})
		var ve *flow.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "text", ve.Violations[0].Path)
		assert.Empty(t, sp.text)
	})

	t.Run("too long", func(t *testing.T) {
		uc := New(UsecasesDeps{Flows: mustFlows(t), Voice: &fakeSpeaker{}})
		_, err := uc.SpeakText(context.Background(), uuid.New(), SpeakInput{Text: strings.Repeat("a", maxSpeakRunes+1)})
		var ve *flow.ValidationError
		require.ErrorAs(t, err, &ve)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		uc := New(UsecasesDeps{Flows: mustFlows(t), Voice: &fakeSpeaker{}})
		_, err := uc.SpeakText(context.Background(), uuid.Nil, SpeakInput{Text: "hi"})
		ae, ok := apierr.As(err)
		require.True(t, ok)
		assert.Equal(t, http.StatusUnauthorized, ae.Status)
	})

	t.Run("spoken", func(t *testing.T) {
		sp := &fakeSpeaker{wav: []byte("RIFFwav")}
		uc := New(UsecasesDeps{Flows: mustFlows(t), Voice: sp})
		out, err := uc.SpeakText(context.Background(), uuid.New(), SpeakInput{Text: " Great answer. Next question? "})
		require.NoError(t, err)
		assert.Equal(t, "Great answer. Next question?", sp.text)
		assert.Equal(t, "data:audio/wav;base64,"+base64.StdEncoding.EncodeToString([]byte("RIFFwav")), out.Audio)
	})

	t.Run("upstream failure", func(t *testing.T) {
		uc := New(UsecasesDeps{Flows: mustFlows(t), Voice: &fakeSpeaker{err: errors.New("quota")}})
		_, err := uc.SpeakText(context.Background(), uuid.New(), SpeakInput{Text: "hi"})
		kind, ok := flow.KindOf(err)
		require.True(t, ok)
		assert.Equal(t, flow.KindTransport, kind)
	})
}
