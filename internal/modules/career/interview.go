package career

import (
	"strings"

	"github.com/yungbote/careerprep-backend/internal/flow"
	"github.com/yungbote/careerprep-backend/internal/flow/schema"
)

type InterviewInput struct {
	UserProfile       string   `json:"userProfile"`
	JobDescription    string   `json:"jobDescription"`
	UserAnswer        string   `json:"userAnswer,omitempty"`
	PreviousQuestions []string `json:"previousQuestions,omitempty"`
}

type InterviewOutput struct {
	Question           string `json:"question"`
	Feedback           string `json:"feedback,omitempty"`
	IsSuitableQuestion *bool  `json:"isSuitableQuestion,omitempty"`
}

func (in InterviewInput) answered() bool { return strings.TrimSpace(in.UserAnswer) != "" }

func interviewDefinition() flow.Definition[InterviewInput, InterviewOutput] {
	return flow.Definition[InterviewInput, InterviewOutput]{
		Name:        FlowSimulateTechnicalInterview,
		Description: "One turn of a simulated technical interview.",
		Input: schema.Object(
			schema.Field("userProfile", schema.String().NonEmpty().Describe("Skills, experience and job history.")),
			schema.Field("jobDescription", schema.String().NonEmpty()),
			schema.Field("userAnswer", schema.String().Opt().Describe("The candidate's answer to the last question.")),
			schema.Field("previousQuestions", schema.Array(schema.String()).Opt()),
		),
		Output: schema.Object(
			schema.Field("question", schema.String().NonEmpty().Describe("The next interview question.")),
			schema.Field("feedback", schema.String().Opt().Describe("Feedback on the candidate's answer.")),
			schema.Field("isSuitableQuestion", schema.Boolean().Opt().Describe("Whether the answer fit the question.")),
		),
		System: "You run realistic mock technical interviews to help candidates prepare.",
		Template: `Use the candidate profile and the job description to ask relevant technical questions.

Candidate Profile:
{{userProfile}}

Job Description:
{{jobDescription}}
{{#if previousQuestions}}
Questions already asked:
{{#each previousQuestions}}- {{this}}
{{/each}}{{/if}}
{{#if userAnswer}}
The candidate answered the last question:
{{userAnswer}}

Evaluate that answer. Set "feedback" to constructive feedback and "isSuitableQuestion" to whether the answer was suitable for the question. Then set "question" to the next technical question.
{{else}}
The interview is starting. Set "question" to the first technical question and leave out "feedback" and "isSuitableQuestion".
{{/if}}
Do not repeat a question that was already asked.`,
		Normalize: normalizeInterview,
		Check:     checkInterview,
	}
}

// normalizeInterview drops a whitespace-only answer so the prompt starts the
// interview instead of evaluating nothing.
func normalizeInterview(in InterviewInput) InterviewInput {
	in.UserAnswer = strings.TrimSpace(in.UserAnswer)
	return in
}

func checkInterview(in InterviewInput, out InterviewOutput) []schema.Violation {
	var vs []schema.Violation
	if !in.answered() {
		if strings.TrimSpace(out.Feedback) != "" {
			vs = append(vs, violation("feedback", "must be absent when no answer was given"))
		}
		return vs
	}
	if strings.TrimSpace(out.Feedback) == "" {
		vs = append(vs, violation("feedback", "required when an answer was given"))
	}
	if out.IsSuitableQuestion == nil {
		vs = append(vs, violation("isSuitableQuestion", "required when an answer was given"))
	}
	return vs
}
