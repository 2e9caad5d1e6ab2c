package career

import (
	"fmt"

	"github.com/yungbote/careerprep-backend/internal/flow"
	"github.com/yungbote/careerprep-backend/internal/flow/schema"
)

type NetworkingInput struct {
	UserProfile     string `json:"userProfile"`
	NetworkingGoals string `json:"networkingGoals"`
}

type NetworkingOutput struct {
	NetworkingSuggestions   []string `json:"networkingSuggestions"`
	MentorshipOpportunities []string `json:"mentorshipOpportunities"`
	CollaborationEvents     []string `json:"collaborationEvents"`
}

func networkingDefinition() flow.Definition[NetworkingInput, NetworkingOutput] {
	list := func(desc string) *schema.Schema {
		return schema.Array(schema.String().NonEmpty()).NonEmpty().Describe(desc)
	}
	return flow.Definition[NetworkingInput, NetworkingOutput]{
		Name:        FlowNetworkingSuggestions,
		Description: "Networking, mentorship and event suggestions.",
		Input: schema.Object(
			schema.Field("userProfile", schema.String().NonEmpty()),
			schema.Field("networkingGoals", schema.String().NonEmpty()),
		),
		Output: schema.Object(
			schema.Field("networkingSuggestions", list("Networking suggestions for the profile and goals.")),
			schema.Field("mentorshipOpportunities", list("Mentorship and shadowing opportunities.")),
			schema.Field("collaborationEvents", list("Events worth collaborating at.")),
		),
		System: "You are a career advisor who specializes in professional networking.",
		Template: `Suggest networking opportunities, mentorship possibilities and collaborative events for this person.

Profile: {{{userProfile}}}
Goals: {{{networkingGoals}}}

Take their skills, experience, interests and goals into account. Every suggestion must be specific to them, and no suggestion may appear in more than one list.`,
		Check: checkNetworking,
	}
}

func checkNetworking(_ NetworkingInput, out NetworkingOutput) []schema.Violation {
	var vs []schema.Violation
	seen := map[string]string{}
	lists := []struct {
		name  string
		items []string
	}{
		{"networkingSuggestions", out.NetworkingSuggestions},
		{"mentorshipOpportunities", out.MentorshipOpportunities},
		{"collaborationEvents", out.CollaborationEvents},
	}
	for _, l := range lists {
		for i, item := range l.items {
			key := norm(item)
			if first, dup := seen[key]; dup {
				vs = append(vs, violation(fmt.Sprintf("%s[%d]", l.name, i), "repeats an item of %s", first))
				continue
			}
			seen[key] = l.name
		}
	}
	return vs
}
