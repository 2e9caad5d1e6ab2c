package schema

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quizInput() *Schema {
	return Object(
		Field("topic", String().NonEmpty()),
		Field("numQuestions", Integer().Range(1, 20).WithDefault(5)),
	)
}

func TestValidateAppliesDefaults(t *testing.T) {
	out, err := Validate(quizInput(), map[string]any{"topic": "Python"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"topic": "Python", "numQuestions": int64(5)}, out)
}

func TestValidateIsIdempotent(t *testing.T) {
	s := Object(
		Field("topic", String()),
		Field("tags", Array(String()).Opt()),
		Field("score", Number().WithDefault(0.5)),
		Field("nested", Object(Field("n", Integer().WithDefault(3))).Opt()),
	)
	first, err := Validate(s, map[string]any{"topic": "go", "nested": map[string]any{}})
	require.NoError(t, err)
	second, err := Validate(s, first)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestValidateReportsOrderedViolations(t *testing.T) {
	s := Object(
		Field("questions", Array(Object(
			Field("questionText", String()),
			Field("options", Array(String()).Len(4, 4)),
		))),
		Field("title", String()),
	)
	_, err := Validate(s, map[string]any{
		"questions": []any{
			map[string]any{"questionText": "q1", "options": []any{"a", "b"}},
			map[string]any{"options": []any{"a", "b", "c", 4}},
		},
		"extra": true,
	})
	var vs Violations
	require.True(t, errors.As(err, &vs), "expected Violations, got %T", err)
	got := make([]string, 0, len(vs))
	for _, v := range vs {
		got = append(got, v.String())
	}
	assert.Equal(t, []string{
		"questions[0].options: must have at least 4 items",
		"questions[1].questionText: required",
		"questions[1].options[3]: expected string, got number",
		"title: required",
		"extra: unexpected field",
	}, got)
}

func TestValidateKinds(t *testing.T) {
	cases := []struct {
		name   string
		schema *Schema
		value  any
		want   any
		reason string
	}{
		{"integer from json number", Integer(), json.Number("7"), int64(7), ""},
		{"integer from float", Integer(), 3.0, int64(3), ""},
		{"integer rejects fraction", Integer(), 3.5, nil, "expected integer, got number"},
		{"number range", Number().Range(0, 100), 101.0, nil, "must be <= 100"},
		{"numeric string not coerced", Number(), "3", nil, "expected number, got string"},
		{"enum ok", Enum("user", "model"), "model", "model", ""},
		{"enum bad", Enum("user", "model"), "system", nil, "must be one of user, model"},
		{"blank string", String().NonEmpty(), "   ", nil, "must not be blank"},
		{"bool", Boolean(), true, true, ""},
		{"null required", String(), nil, nil, "required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Validate(tc.schema, tc.value)
			if tc.reason == "" {
				require.NoError(t, err)
				assert.Equal(t, tc.want, got)
				return
			}
			var vs Violations
			require.True(t, errors.As(err, &vs))
			require.Len(t, vs, 1)
			assert.Equal(t, tc.reason, vs[0].Reason)
		})
	}
}

func TestValidateNullIsMissing(t *testing.T) {
	s := Object(
		Field("feedback", String().Opt()),
		Field("count", Integer().WithDefault(2)),
	)
	out, err := Validate(s, map[string]any{"feedback": nil, "count": nil})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"count": int64(2)}, out)
}

func TestValidateStructsRoundTrip(t *testing.T) {
	type turn struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	type in struct {
		Prompt  string `json:"prompt"`
		History []turn `json:"conversationHistory,omitempty"`
	}
	s := Object(
		Field("prompt", String()),
		Field("conversationHistory", Array(Object(
			Field("role", Enum("user", "model")),
			Field("content", String()),
		)).Opt()),
	)
	out, err := Validate(s, in{Prompt: "hi", History: []turn{{Role: "user", Content: "x"}}})
	require.NoError(t, err)
	m := out.(map[string]any)
	assert.Len(t, m["conversationHistory"], 1)

	_, err = Validate(s, in{Prompt: "hi", History: []turn{{Role: "bot"}}})
	require.Error(t, err)
}

func TestValidateMedia(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("%PDF-1.4 fake"))
	s := Media("application/pdf", "image/*")

	_, err := Validate(s, "data:application/pdf;base64,"+payload)
	require.NoError(t, err)
	_, err = Validate(s, "data:image/png;base64,"+payload)
	require.NoError(t, err)

	for name, uri := range map[string]string{
		"wrong type":  "data:text/html;base64," + payload,
		"not base64":  "data:application/pdf;base64,@@@",
		"no base64":   "data:application/pdf," + payload,
		"plain url":   "https://example.com/resume.pdf",
		"empty":       "data:application/pdf;base64,",
		"no mimetype": "data:;base64," + payload,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Validate(s, uri)
			var vs Violations
			require.True(t, errors.As(err, &vs), "got %v", err)
		})
	}
}

func TestParseMedia(t *testing.T) {
	ref, err := ParseMedia("data:application/pdf;name=cv.pdf;base64," + base64.StdEncoding.EncodeToString([]byte("hello")))
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", ref.MediaType)
	assert.Equal(t, []byte("hello"), ref.Data)
	assert.False(t, ref.IsImage())
}

func TestMalformedSchemaIsSchemaError(t *testing.T) {
	cases := map[string]*Schema{
		"enum without values": Enum(),
		"array without items": {Kind: KindArray},
		"duplicate property":  Object(Field("a", String()), Field("a", String())),
		"bad default":         Object(Field("n", Integer().WithDefault("five"))),
		"unknown kind":        {Kind: Kind(99)},
	}
	for name, s := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Validate(s, map[string]any{})
			var se *SchemaError
			require.True(t, errors.As(err, &se), "expected *SchemaError, got %T %v", err, err)
		})
	}
}

func TestJSONSchemaStrictShape(t *testing.T) {
	s := Object(
		Field("question", String().Describe("The next question.")),
		Field("feedback", String().Opt()),
		Field("role", Enum("user", "model").Opt()),
		Field("items", Array(Integer()).Len(2, 3)),
	)
	js := JSONSchema(s)
	assert.Equal(t, "object", js["type"])
	assert.Equal(t, false, js["additionalProperties"])
	assert.Equal(t, []string{"question", "feedback", "role", "items"}, js["required"])

	props := js["properties"].(map[string]any)
	assert.Equal(t, "The next question.", props["question"].(map[string]any)["description"])
	assert.Equal(t, []any{"string", "null"}, props["feedback"].(map[string]any)["type"])
	assert.Contains(t, props["role"].(map[string]any)["enum"], nil)
	items := props["items"].(map[string]any)
	assert.Equal(t, 2, items["minItems"])
	assert.Equal(t, 3, items["maxItems"])

	_, err := json.Marshal(js)
	require.NoError(t, err)
}
