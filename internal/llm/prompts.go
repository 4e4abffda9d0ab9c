package llm

import (
	"fmt"
	"sort"
	"strings"

	"github.com/MereWhiplash/aria/internal/types"
)

const baseSystem = "You are a board-certified behavior analyst writing a section of a payer-facing " +
	"assessment report. Write in professional clinical prose, third person, past tense for " +
	"observations. Do not invent client details that are not in the provided context. " +
	"Where guideline excerpts are provided, keep the text consistent with them."

// Section is a report section the drafting endpoint can write
type Section struct {
	ID     string
	Title  string
	System string
}

var sections = []Section{
	{
		ID:     "reason_for_referral",
		Title:  "Reason for Referral",
		System: baseSystem + " Summarize why the client was referred and by whom, in one or two paragraphs.",
	},
	{
		ID:     "background",
		Title:  "Background Information",
		System: baseSystem + " Summarize developmental, medical, educational and family history relevant to treatment.",
	},
	{
		ID:     "assessment_results",
		Title:  "Assessment Results",
		System: baseSystem + " Describe the assessment instruments used and interpret the scores reported in the context.",
	},
	{
		ID:     "behavior_summary",
		Title:  "Behaviors of Concern",
		System: baseSystem + " Describe each target behavior with an operational definition, its measured baseline and the hypothesized function.",
	},
	{
		ID:     "medical_necessity",
		Title:  "Medical Necessity",
		System: baseSystem + " Justify the requested service intensity against the payer's medical necessity criteria.",
	},
	{
		ID:     "recommendations",
		Title:  "Recommendations",
		System: baseSystem + " Recommend service hours, settings and caregiver training, each tied to a finding in the context.",
	},
}

// GoalsSystem instructs the model to return treatment goals as JSON
const GoalsSystem = baseSystem + ` Propose measurable treatment goals. Respond with JSON only, in the form
{"goals": [{"title": "...", "description": "...", "baseline": "...", "criteria": "...", "targetDate": "YYYY-MM-DD"}]}.`

// Sections returns the catalogue in report order
func Sections() []Section {
	out := make([]Section, len(sections))
	copy(out, sections)
	return out
}

// LookupSection finds a section by ID
func LookupSection(id string) (Section, bool) {
	for _, s := range sections {
		if s.ID == id {
			return s, true
		}
	}
	return Section{}, false
}

// BuildPrompt renders clinician-supplied context and retrieved guideline
// excerpts into a user prompt. Context keys are emitted in sorted order.
func BuildPrompt(instruction string, context map[string]string, matches []types.ChunkMatch) string {
	var sb strings.Builder

	sb.WriteString(instruction)
	sb.WriteString("\n\n")

	if len(context) > 0 {
		sb.WriteString("Client context:\n")
		keys := make([]string, 0, len(context))
		for k := range context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			v := strings.TrimSpace(context[k])
			if v == "" {
				continue
			}
			fmt.Fprintf(&sb, "- %s: %s\n", k, v)
		}
		sb.WriteString("\n")
	}

	if len(matches) > 0 {
		sb.WriteString("Relevant guideline excerpts:\n")
		for i, m := range matches {
			fmt.Fprintf(&sb, "[%d] %s (%s):\n%s\n\n", i+1, m.DocumentTitle, m.DocumentType, strings.TrimSpace(m.Text))
		}
	}

	return strings.TrimSpace(sb.String())
}
