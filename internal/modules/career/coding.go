package career

import (
	"github.com/yungbote/careerprep-backend/internal/flow"
	"github.com/yungbote/careerprep-backend/internal/flow/schema"
)

type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type CodingInput struct {
	Prompt              string     `json:"prompt"`
	ConversationHistory []ChatTurn `json:"conversationHistory,omitempty"`
}

type CodingOutput struct {
	Response string `json:"response"`
}

func codingDefinition() flow.Definition[CodingInput, CodingOutput] {
	return flow.Definition[CodingInput, CodingOutput]{
		Name:        FlowCodingAssistant,
		Description: "Answers programming questions with conversation context.",
		Input: schema.Object(
			schema.Field("prompt", schema.String().NonEmpty().Describe("The coding question or snippet.")),
			schema.Field("conversationHistory", schema.Array(schema.Object(
				schema.Field("role", schema.Enum("user", "model")),
				schema.Field("content", schema.String()),
			)).Opt()),
		),
		Output: schema.Object(
			schema.Field("response", schema.String().NonEmpty().Describe("Markdown answer.")),
		),
		System: `You are a coding assistant. You help with programming questions, debug code and explain difficult topics.
Answer clearly, concisely and accurately. Put code in Markdown code blocks tagged with the language.`,
		Template: `{{#if conversationHistory}}Conversation so far:
{{#each conversationHistory}}**{{role}}:**
{{{content}}}
---
{{/each}}
{{/if}}Request:
{{{prompt}}}`,
	}
}
