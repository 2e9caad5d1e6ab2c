package gemini

import (
	"context"
	"encoding/base64"
	"fmt"
	"testing"

	"google.golang.org/genai"

	"github.com/yungbote/careerprep-backend/internal/flow/template"
	"github.com/yungbote/careerprep-backend/internal/llm"
	"github.com/yungbote/careerprep-backend/internal/platform/httpx"
	"github.com/yungbote/careerprep-backend/internal/platform/logger"
)

type fakeGen struct {
	contents []*genai.Content
	config   *genai.GenerateContentConfig
	resp     *genai.GenerateContentResponse
	err      error
}

func (f *fakeGen) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.contents = contents
	f.config = config
	return f.resp, f.err
}

func TestGenerateMapsPromptAndContract(t *testing.T) {
	gen := &fakeGen{resp: &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []*genai.Part{{Text: `{"ok":true}`}}}}},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     40,
			CandidatesTokenCount: 5,
		},
	}}
	c := &Client{log: logger.NewNop(), gen: gen, model: DefaultModel}

	img := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("png"))
	prompt, err := template.MustCompile("t", "Look: {{media url=img}}").Render(map[string]any{"img": img})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	contract := map[string]any{"type": "object"}
	resp, err := c.Generate(context.Background(), llm.Request{System: "sys", Prompt: prompt, Schema: contract})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.Text != `{"ok":true}` || resp.Usage.InputTokens != 40 || resp.Usage.OutputTokens != 5 {
		t.Fatalf("response = %+v", resp)
	}
	if gen.config.ResponseMIMEType != "application/json" {
		t.Fatalf("mime = %q", gen.config.ResponseMIMEType)
	}
	if fmt.Sprint(gen.config.ResponseJsonSchema) != fmt.Sprint(contract) {
		t.Fatalf("schema not forwarded")
	}
	if gen.config.SystemInstruction == nil || gen.config.SystemInstruction.Parts[0].Text != "sys" {
		t.Fatalf("system instruction missing")
	}
	got := gen.contents[0].Parts
	if len(got) != 2 || got[1].InlineData == nil || got[1].InlineData.MIMEType != "image/png" {
		t.Fatalf("parts = %+v", got)
	}
}

func TestGenerateSurfacesAPIStatus(t *testing.T) {
	gen := &fakeGen{err: genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED", Message: "quota"}}
	c := &Client{log: logger.NewNop(), gen: gen, model: DefaultModel}
	_, err := c.Generate(context.Background(), llm.Request{Prompt: template.Prompt{Text: "hi"}})
	if httpx.StatusOf(err) != 429 || !httpx.IsRetryableError(err) {
		t.Fatalf("err = %v, status = %d", err, httpx.StatusOf(err))
	}
}

func TestSupportsMedia(t *testing.T) {
	c := &Client{}
	for mt, want := range map[string]bool{
		"application/pdf": true,
		"image/jpeg":      true,
		"audio/webm":      true,
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document": false,
	} {
		if got := c.SupportsMedia(mt); got != want {
			t.Errorf("SupportsMedia(%q) = %v", mt, got)
		}
	}
}
