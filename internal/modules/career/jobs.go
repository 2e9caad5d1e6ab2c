package career

import (
	"fmt"

	"github.com/yungbote/careerprep-backend/internal/flow"
	"github.com/yungbote/careerprep-backend/internal/flow/schema"
)

type JobsInput struct {
	ProfileData string `json:"profileData"`
}

type JobRole struct {
	Title          string   `json:"title"`
	Company        string   `json:"company"`
	Location       string   `json:"location"`
	Description    string   `json:"description"`
	Skills         []string `json:"skills"`
	RelevanceScore float64  `json:"relevanceScore"`
}

type SkillWeight struct {
	Skill      string  `json:"skill"`
	Importance float64 `json:"importance"`
}

type JobsOutput struct {
	JobRoles []JobRole     `json:"jobRoles"`
	SkillMap []SkillWeight `json:"skillMap"`
}

func jobsDefinition() flow.Definition[JobsInput, JobsOutput] {
	return flow.Definition[JobsInput, JobsOutput]{
		Name:        FlowSuggestRelevantJobs,
		Description: "Job roles matching a profile, with a skill map.",
		Input: schema.Object(
			schema.Field("profileData", schema.String().NonEmpty().
				Describe("Professional summary, LinkedIn and GitHub profile, or project details.")),
		),
		Output: schema.Object(
			schema.Field("jobRoles", schema.Array(schema.Object(
				schema.Field("title", schema.String().NonEmpty()),
				schema.Field("company", schema.String()),
				schema.Field("location", schema.String()),
				schema.Field("description", schema.String()),
				schema.Field("skills", schema.Array(schema.String())),
				schema.Field("relevanceScore", schema.Number().Range(0, 100).Describe("0 to 100.")),
			)).NonEmpty()),
			schema.Field("skillMap", schema.Array(schema.Object(
				schema.Field("skill", schema.String().NonEmpty()),
				schema.Field("importance", schema.Number()),
			))),
		),
		System: "You are a career advisor who matches candidates to job roles.",
		Template: `Analyze the candidate profile below and suggest job roles that fit it.

Profile:
{{{profileData}}}

For each role, list the skills it requires and score its relevance to the profile from 0 to 100.
Then build a skill map across all suggested roles: the more roles need a skill, the higher its importance. List each skill once.`,
		Check: checkJobs,
	}
}

func checkJobs(_ JobsInput, out JobsOutput) []schema.Violation {
	var vs []schema.Violation
	seen := map[string]bool{}
	for i, e := range out.SkillMap {
		key := norm(e.Skill)
		if seen[key] {
			vs = append(vs, violation(fmt.Sprintf("skillMap[%d].skill", i), "duplicate skill %q", e.Skill))
		}
		seen[key] = true
	}
	return vs
}
