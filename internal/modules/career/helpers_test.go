package career

import (
	"context"
	"encoding/base64"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/careerprep-backend/internal/domain"
	"github.com/yungbote/careerprep-backend/internal/llm"
	"github.com/yungbote/careerprep-backend/internal/modules/persist"
)

// scriptedModel answers by flow name and records every request.
type scriptedModel struct {
	mu       sync.Mutex
	answers  map[string]string
	requests []llm.Request
	noMedia  map[string]bool
}

func intPtr(n int) *int { return &n }

func newScriptedModel(answers map[string]string) *scriptedModel {
	return &scriptedModel{answers: answers}
}

func (m *scriptedModel) Generate(ctx context.Context, req llm.Request) (llm.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	return llm.Response{Text: m.answers[req.Flow], Model: "scripted"}, nil
}

func (m *scriptedModel) SupportsMedia(mediaType string) bool { return !m.noMedia[mediaType] }

func (m *scriptedModel) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

type savedBatch struct {
	userID     uuid.UUID
	collection string
	items      []persist.Item
}

type fakeSaver struct {
	mu      sync.Mutex
	batches []savedBatch
	syncErr error
}

func (s *fakeSaver) Save(ctx context.Context, userID uuid.UUID, collection string, items ...persist.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, savedBatch{userID, collection, items})
}

func (s *fakeSaver) SaveSync(ctx context.Context, userID uuid.UUID, collection string, items ...persist.Item) ([]*domain.Record, error) {
	if s.syncErr != nil {
		return nil, s.syncErr
	}
	s.Save(ctx, userID, collection, items...)
	out := make([]*domain.Record, 0, len(items))
	for range items {
		out = append(out, &domain.Record{ID: uuid.New(), UserID: userID, Collection: collection})
	}
	return out, nil
}

type fakeUsers struct {
	users map[uuid.UUID]*domain.User
}

func (f *fakeUsers) UpsertBySubject(ctx context.Context, tx *gorm.DB, candidate *domain.User) (*domain.User, bool, error) {
	return candidate, true, nil
}

func (f *fakeUsers) GetBySubject(ctx context.Context, tx *gorm.DB, subject string) (*domain.User, error) {
	return nil, nil
}

func (f *fakeUsers) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*domain.User, error) {
	var out []*domain.User
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeUsers) UpdateProfile(ctx context.Context, tx *gorm.DB, id uuid.UUID, patch domain.UserProfileUpdate) (*domain.User, error) {
	return f.users[id], nil
}

type fakeTranscriber struct {
	text     string
	mimeType string
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audio []byte, mimeType, languageCode string) (string, error) {
	f.mimeType = mimeType
	return f.text, nil
}

func (f *fakeTranscriber) Close() error { return nil }

func mustFlows(t *testing.T) *Flows {
	t.Helper()
	f, err := NewFlows()
	if err != nil {
		t.Fatalf("NewFlows: %v", err)
	}
	return f
}

func dataURI(mediaType, body string) string {
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString([]byte(body))
}

const quizAnswer = `{"questions":[
 {"questionText":"What is a list?","options":["A","B","C","D"],"correctAnswer":"A","explanation":"x"},
 {"questionText":"What is a dict?","options":["A","B","C","D"],"correctAnswer":"B","explanation":"x"},
 {"questionText":"What is a set?","options":["A","B","C","D"],"correctAnswer":"C","explanation":"x"}]}`

const resumeAnswer = `{"optimizedResumes":["# Jane\n**Go** backend","# Jane\n**SRE** focus","# Jane\n**Platform** lead"]}`

func join(lines ...string) string { return strings.Join(lines, "\n") }

type fakeSpeaker struct {
	text string
	wav  []byte
	err  error
}

func (f *fakeSpeaker) Speak(ctx context.Context, text string) ([]byte, error) {
	f.text = text
	return f.wav, f.err
}
