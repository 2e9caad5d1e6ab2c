package career

import (
	"github.com/yungbote/careerprep-backend/internal/flow"
	"github.com/yungbote/careerprep-backend/internal/flow/schema"
)

const maxTitleWords = 20

type NoteSummaryInput struct {
	Content string `json:"content"`
}

type NoteSummaryOutput struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

func noteSummaryDefinition() flow.Definition[NoteSummaryInput, NoteSummaryOutput] {
	return flow.Definition[NoteSummaryInput, NoteSummaryOutput]{
		Name:        FlowGenerateNoteSummary,
		Description: "Title and summary for a note.",
		Input: schema.Object(
			schema.Field("content", schema.String().NonEmpty()),
		),
		Output: schema.Object(
			schema.Field("title", schema.String().NonEmpty().Describe("A short title, 5 to 10 words.")),
			schema.Field("summary", schema.String().NonEmpty()),
		),
		System: "You summarize notes accurately and concisely.",
		Template: `Read the note below and give it a title and a brief summary.

Note:
{{{content}}}

The title should be 5 to 10 words long.
The summary should capture the key points of the note.`,
		Check: checkNoteSummary,
	}
}

func checkNoteSummary(_ NoteSummaryInput, out NoteSummaryOutput) []schema.Violation {
	if n := wordCount(out.Title); n > maxTitleWords {
		return []schema.Violation{violation("title", "has %d words, at most %d allowed", n, maxTitleWords)}
	}
	return nil
}
