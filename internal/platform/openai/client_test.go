package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/yungbote/careerprep-backend/internal/flow/template"
	"github.com/yungbote/careerprep-backend/internal/llm"
	"github.com/yungbote/careerprep-backend/internal/platform/httpx"
	"github.com/yungbote/careerprep-backend/internal/platform/logger"
)

const okBody = `{"model":"gpt-test","output":[{"type":"message","role":"assistant","content":[{"type":"output_text","text":"{\"a\":1}"}]}],"usage":{"input_tokens":12,"output_tokens":3}}`

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	temp := 0.2
	c, err := NewClient(logger.NewNop(), Config{APIKey: "sk-test", BaseURL: url, Model: "gpt-test", Temperature: &temp})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestGenerateSendsStrictSchemaAndParts(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/responses" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("missing auth header")
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(okBody))
	}))
	defer srv.Close()

	pdf := "data:application/pdf;base64," + base64.StdEncoding.EncodeToString([]byte("%PDF"))
	tpl := template.MustCompile("t", "Resume: {{media url=doc}} Job: {{job}}")
	prompt, err := tpl.Render(map[string]any{"doc": pdf, "job": "SRE"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	resp, err := newTestClient(t, srv.URL).Generate(context.Background(), llm.Request{
		Flow:       "resume",
		System:     "be helpful",
		Prompt:     prompt,
		SchemaName: "resume_output",
		Schema:     map[string]any{"type": "object"},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.Text != `{"a":1}` || resp.Model != "gpt-test" || resp.Usage.InputTokens != 12 {
		t.Fatalf("unexpected response: %+v", resp)
	}

	format := got["text"].(map[string]any)["format"].(map[string]any)
	if format["type"] != "json_schema" || format["strict"] != true || format["name"] != "resume_output" {
		t.Fatalf("format = %v", format)
	}
	input := got["input"].([]any)
	if len(input) != 2 {
		t.Fatalf("input len = %d", len(input))
	}
	content := input[1].(map[string]any)["content"].([]any)
	file := content[1].(map[string]any)
	if file["type"] != "input_file" || file["file_data"] != pdf || file["filename"] != "attachment-1.pdf" {
		t.Fatalf("file part = %v", file)
	}
}

func TestGenerateDropsRejectedTemperature(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if _, ok := body["temperature"]; ok {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"message":"Unsupported parameter: 'temperature' is not supported with this model."}}`))
			return
		}
		if n < 2 {
			t.Errorf("expected the first call to carry temperature")
		}
		_, _ = w.Write([]byte(okBody))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	req := llm.Request{SchemaName: "x", Schema: map[string]any{}, Prompt: template.Prompt{Text: "hi"}}
	if _, err := c.Generate(context.Background(), req); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := c.Generate(context.Background(), req); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestGenerateSurfacesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "2")
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).Generate(context.Background(), llm.Request{SchemaName: "x", Schema: map[string]any{}})
	if err == nil {
		t.Fatalf("expected error")
	}
	if httpx.StatusOf(err) != http.StatusServiceUnavailable || !httpx.IsRetryableError(err) {
		t.Fatalf("status not surfaced: %v", err)
	}
}
