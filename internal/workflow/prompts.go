package workflow

import (
	"fmt"
	"strings"
)

const decisionSystemPrompt = "You are a logical, concise CEO AI. " +
	"Respond ONLY in valid JSON format. No text outside JSON."

const executionSystemPrompt = "You are a senior Python engineer and operations AI. " +
	"Respond ONLY in strict JSON format — no Markdown, no explanations outside JSON."

// buildDecisionPrompt renders the CEO evaluation prompt for a record.
// guidance is optional extra instruction text.
func buildDecisionPrompt(rec ProjectRecord, guidance string) string {
	var b strings.Builder
	b.WriteString("You are the CEO of Code Company.\n")
	b.WriteString("Evaluate this project proposal and decide whether to approve or reject it.\n\n")
	fmt.Fprintf(&b, "Project Title: %s\n", rec.ProjectTitle)
	fmt.Fprintf(&b, "Summary: %s\n", rec.ProblemSummary)
	fmt.Fprintf(&b, "Source: %s\n\n", rec.SourceLink)
	b.WriteString("Rules:\n")
	b.WriteString("- Approve only if the project involves Python code, coding implementation, or automation.\n")
	b.WriteString("- Reject if it is theoretical or unrelated to coding.\n")
	if guidance != "" {
		fmt.Fprintf(&b, "- %s\n", guidance)
	}
	b.WriteString("- Respond STRICTLY in JSON format, nothing else:\n")
	b.WriteString(`  {"decision": "approve" or "reject", "reason": "short explanation"}`)
	return b.String()
}

// buildExecutionPrompt renders the operations prompt for an approved record.
func buildExecutionPrompt(rec ProjectRecord) string {
	title := rec.ProjectTitle
	if title == "" {
		title = "Unnamed Project"
	}
	summary := rec.ProblemSummary
	if summary == "" {
		summary = "No summary available."
	}

	var b strings.Builder
	b.WriteString("You are the Operations Manager of Code Company (Beta).\n")
	b.WriteString("The CEO has approved the following project.\n\n")
	fmt.Fprintf(&b, "Project Title: %s\n", title)
	fmt.Fprintf(&b, "Description: %s\n\n", summary)
	b.WriteString("Your tasks:\n")
	b.WriteString("1. Write clean, efficient, working Python code that implements this project.\n")
	b.WriteString("2. Explain how your code works in detailed steps.\n")
	b.WriteString("3. Provide a final summary (purpose and expected outcome).\n\n")
	b.WriteString("Respond ONLY in valid JSON format:\n")
	b.WriteString(`{"solution_summary": "Brief summary of the solution", ` +
		`"detailed_steps": "Explain how the code works step by step", ` +
		`"final_code": "Full Python code here", ` +
		`"conclusion": "Final explanation of the project"}`)
	return b.String()
}
