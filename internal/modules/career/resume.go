package career

import (
	"fmt"
	"strings"

	"github.com/yungbote/careerprep-backend/internal/flow"
	"github.com/yungbote/careerprep-backend/internal/flow/schema"
	"github.com/yungbote/careerprep-backend/internal/platform/docextract"
)

// ResumeMediaTypes are the upload formats the resume flow accepts.
var ResumeMediaTypes = []string{
	docextract.MediaPDF,
	docextract.MediaDOCX,
	docextract.MediaText,
	"image/png",
	"image/jpeg",
}

const defaultResumeVariants = 3

type ResumeInput struct {
	ResumeDataURI  string `json:"resumeDataUri"`
	JobDescription string `json:"jobDescription"`
	NumVariants    *int   `json:"numVariants,omitempty"`
	// ResumeText replaces the attachment when the model cannot read the
	// upload format natively.
	ResumeText string `json:"resumeText,omitempty"`
}

type ResumeOutput struct {
	OptimizedResumes []string `json:"optimizedResumes"`
}

func resumeDefinition() flow.Definition[ResumeInput, ResumeOutput] {
	return flow.Definition[ResumeInput, ResumeOutput]{
		Name:        FlowGenerateOptimizedResume,
		Description: "Resume variants tailored to a job description.",
		Input: schema.Object(
			schema.Field("resumeDataUri", schema.Media(ResumeMediaTypes...).
				Describe("The uploaded resume as data:<mimetype>;base64,<data>.")),
			schema.Field("jobDescription", schema.String().NonEmpty()),
			schema.Field("numVariants", schema.Integer().Range(1, 5).WithDefault(defaultResumeVariants)),
			schema.Field("resumeText", schema.String().Opt().Describe("Extracted resume text.")),
		),
		Output: schema.Object(
			schema.Field("optimizedResumes", schema.Array(
				schema.String().NonEmpty().Describe("A complete resume in Markdown."),
			).NonEmpty()),
		),
		System: "You are a resume writer who tailors resumes to specific job descriptions.",
		Template: `Produce {{numVariants}} optimized variants of the candidate's resume for the job below.
Each variant should foreground the skills and experience that matter most for this job, and no two variants may be the same.

Resume:
{{#if resumeText}}{{{resumeText}}}{{else}}{{media url=resumeDataUri}}{{/if}}

Job Description:
{{{jobDescription}}}

Format every variant as a complete, readable Markdown resume with headings, bold text and bullet points.
Return the variants as an array of strings, one complete resume per string.`,
		Check: checkResume,
	}
}

func checkResume(in ResumeInput, out ResumeOutput) []schema.Violation {
	var vs []schema.Violation
	if want := intOr(in.NumVariants, defaultResumeVariants); len(out.OptimizedResumes) != want {
		vs = append(vs, countViolation("optimizedResumes", want, len(out.OptimizedResumes)))
	}
	seen := map[string]int{}
	for i, r := range out.OptimizedResumes {
		key := strings.TrimSpace(r)
		if prev, dup := seen[key]; dup {
			vs = append(vs, violation(fmt.Sprintf("optimizedResumes[%d]", i), "same as variant %d", prev))
			continue
		}
		seen[key] = i
	}
	return vs
}
