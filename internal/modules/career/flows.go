// Package career holds the career-prep prompt flows and the use cases that
// run them for a signed-in user.
package career

import (
	"github.com/yungbote/careerprep-backend/internal/flow"
)

const (
	FlowGenerateQuiz               = "generate-quiz"
	FlowGenerateOptimizedResume    = "generate-optimized-resume"
	FlowSimulateTechnicalInterview = "simulate-technical-interview"
	FlowSuggestProjects            = "suggest-projects"
	FlowGenerateNoteSummary        = "generate-note-summary"
	FlowSuggestRelevantJobs        = "suggest-relevant-jobs"
	FlowNetworkingSuggestions      = "networking-suggestions"
	FlowCodingAssistant            = "coding-assistant"
)

// Flows is the compiled set of career flows.
type Flows struct {
	Quiz        *flow.Flow[QuizInput, QuizOutput]
	Resume      *flow.Flow[ResumeInput, ResumeOutput]
	Interview   *flow.Flow[InterviewInput, InterviewOutput]
	Projects    *flow.Flow[ProjectsInput, ProjectsOutput]
	NoteSummary *flow.Flow[NoteSummaryInput, NoteSummaryOutput]
	Jobs        *flow.Flow[JobsInput, JobsOutput]
	Networking  *flow.Flow[NetworkingInput, NetworkingOutput]
	Coding      *flow.Flow[CodingInput, CodingOutput]
}

// NewFlows compiles every career flow. An error is a programmer error.
func NewFlows(opts ...flow.Option) (*Flows, error) {
	var (
		f   Flows
		err error
	)
	if f.Quiz, err = flow.New(quizDefinition(), opts...); err != nil {
		return nil, err
	}
	if f.Resume, err = flow.New(resumeDefinition(), opts...); err != nil {
		return nil, err
	}
	if f.Interview, err = flow.New(interviewDefinition(), opts...); err != nil {
		return nil, err
	}
	if f.Projects, err = flow.New(projectsDefinition(), opts...); err != nil {
		return nil, err
	}
	if f.NoteSummary, err = flow.New(noteSummaryDefinition(), opts...); err != nil {
		return nil, err
	}
	if f.Jobs, err = flow.New(jobsDefinition(), opts...); err != nil {
		return nil, err
	}
	if f.Networking, err = flow.New(networkingDefinition(), opts...); err != nil {
		return nil, err
	}
	if f.Coding, err = flow.New(codingDefinition(), opts...); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *Flows) Runners() []flow.Runner {
	return []flow.Runner{
		f.Quiz, f.Resume, f.Interview, f.Projects,
		f.NoteSummary, f.Jobs, f.Networking, f.Coding,
	}
}

// Register adds every flow to reg.
func (f *Flows) Register(reg *flow.Registry) error {
	for _, r := range f.Runners() {
		if err := reg.Register(r); err != nil {
			return err
		}
	}
	return nil
}

// NewRegistry compiles the career flows into a fresh registry.
func NewRegistry(opts ...flow.Option) (*Flows, *flow.Registry, error) {
	f, err := NewFlows(opts...)
	if err != nil {
		return nil, nil, err
	}
	reg := flow.NewRegistry()
	if err := f.Register(reg); err != nil {
		return nil, nil, err
	}
	return f, reg, nil
}
