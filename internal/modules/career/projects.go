package career

import (
	"fmt"

	"github.com/yungbote/careerprep-backend/internal/flow"
	"github.com/yungbote/careerprep-backend/internal/flow/schema"
)

const projectCount = 2

type ProjectsInput struct {
	Prompt string `json:"prompt"`
}

type Project struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Features    []string `json:"features"`
	TechStack   []string `json:"techStack"`
}

type ProjectsOutput struct {
	Projects []Project `json:"projects"`
}

func projectsDefinition() flow.Definition[ProjectsInput, ProjectsOutput] {
	return flow.Definition[ProjectsInput, ProjectsOutput]{
		Name:        FlowSuggestProjects,
		Description: "Two portfolio project ideas for a request.",
		Input: schema.Object(
			schema.Field("prompt", schema.String().NonEmpty().Describe("What kind of project the user wants.")),
		),
		Output: schema.Object(
			schema.Field("projects", schema.Array(schema.Object(
				schema.Field("title", schema.String().NonEmpty()),
				schema.Field("description", schema.String().NonEmpty().Describe("One paragraph.")),
				schema.Field("features", schema.Array(schema.String().NonEmpty()).Len(3, 5)),
				schema.Field("techStack", schema.Array(schema.String().NonEmpty()).NonEmpty()),
			)).Len(projectCount, projectCount)),
		),
		System: "You advise software engineers on portfolio projects that impress hiring managers.",
		Template: `Suggest portfolio projects for this request: {{{prompt}}}

The projects must be realistic for one developer and show skills the job market values.

Give exactly 2 different project ideas. For each one provide:
1. A clear, compelling title.
2. A one-paragraph description.
3. Between 3 and 5 core features.
4. A recommended technology stack.`,
		Check: checkProjects,
	}
}

func checkProjects(_ ProjectsInput, out ProjectsOutput) []schema.Violation {
	var vs []schema.Violation
	seen := map[string]bool{}
	for i, p := range out.Projects {
		if seen[norm(p.Title)] {
			vs = append(vs, violation(fmt.Sprintf("projects[%d].title", i), "duplicate project %q", p.Title))
		}
		seen[norm(p.Title)] = true
	}
	return vs
}
