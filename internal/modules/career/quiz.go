package career

import (
	"fmt"

	"github.com/yungbote/careerprep-backend/internal/flow"
	"github.com/yungbote/careerprep-backend/internal/flow/schema"
)

const (
	quizOptionCount      = 4
	defaultQuizQuestions = 5
)

type QuizInput struct {
	Topic        string `json:"topic"`
	NumQuestions *int   `json:"numQuestions,omitempty"`
}

type QuizQuestion struct {
	QuestionText  string   `json:"questionText"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
}

type QuizOutput struct {
	Questions []QuizQuestion `json:"questions"`
}

func quizDefinition() flow.Definition[QuizInput, QuizOutput] {
	return flow.Definition[QuizInput, QuizOutput]{
		Name:        FlowGenerateQuiz,
		Description: "Multiple-choice technical quiz on a topic.",
		Input: schema.Object(
			schema.Field("topic", schema.String().NonEmpty().Describe("Quiz topic, e.g. Python, C, React.")),
			schema.Field("numQuestions", schema.Integer().Range(1, 20).WithDefault(defaultQuizQuestions).Describe("Number of questions.")),
		),
		Output: schema.Object(
			schema.Field("questions", schema.Array(schema.Object(
				schema.Field("questionText", schema.String().NonEmpty()),
				schema.Field("options", schema.Array(schema.String().NonEmpty()).Len(quizOptionCount, quizOptionCount).
					Describe("Exactly 4 answer options.")),
				schema.Field("correctAnswer", schema.String().NonEmpty().Describe("One of the options, verbatim.")),
				schema.Field("explanation", schema.String().Describe("Why the answer is correct.")),
			)).NonEmpty()),
		),
		System: "You write educational content and technical quizzes for software engineers.",
		Template: `Write a quiz of {{numQuestions}} multiple-choice questions on this topic: {{{topic}}}.

Rules:
- Every question has exactly 4 distinct options.
- correctAnswer repeats one of the options word for word.
- Give each question a short explanation of why the answer is right.
- Spread the difficulty from easy to moderate.`,
		Check: checkQuiz,
	}
}

func checkQuiz(in QuizInput, out QuizOutput) []schema.Violation {
	var vs []schema.Violation
	if want := intOr(in.NumQuestions, defaultQuizQuestions); len(out.Questions) != want {
		vs = append(vs, countViolation("questions", want, len(out.Questions)))
	}
	for i, q := range out.Questions {
		path := fmt.Sprintf("questions[%d]", i)
		seen := map[string]bool{}
		for _, o := range q.Options {
			if seen[norm(o)] {
				vs = append(vs, violation(path+".options", "duplicate option %q", o))
			}
			seen[norm(o)] = true
		}
		found := false
		for _, o := range q.Options {
			if o == q.CorrectAnswer {
				found = true
				break
			}
		}
		if !found {
			vs = append(vs, violation(path+".correctAnswer", "must be one of the options"))
		}
	}
	return vs
}

// ScoreQuiz counts the answers equal to each question's correct answer.
// answers is indexed like questions; a missing answer scores zero.
func ScoreQuiz(questions []QuizQuestion, answers []string) int {
	score := 0
	for i, q := range questions {
		if i < len(answers) && answers[i] == q.CorrectAnswer {
			score++
		}
	}
	return score
}
