package engine

import "fmt"

type reportTemplate struct {
	instructions string
	minWords     int
}

// reportTemplates holds the supported engine report types.
var reportTemplates = map[string]reportTemplate{
	"research_report": {
		instructions: "Write a detailed, well structured research report that answers the question. " +
			"Use Markdown headings, give concrete facts, figures and dates where the context provides them, " +
			"and cite sources inline as Markdown links. Finish with a conclusion that states your own reasoned opinion.",
		minWords: 800,
	},
	"resource_report": {
		instructions: "Write a bibliography recommendation report for the question. " +
			"For every relevant source in the context give a Markdown link, a short summary and why it is useful. " +
			"Group related sources under Markdown headings.",
		minWords: 500,
	},
	"outline_report": {
		instructions: "Write an outline for a research report on the question. " +
			"Use nested Markdown headings and bullet points covering the main sections, sub-sections and key points " +
			"a full report should contain.",
		minWords: 250,
	},
	"detailed_report": {
		instructions: "Write an in-depth research report that covers every aspect of the question found in the context. " +
			"Use Markdown headings per aspect, cite sources inline as Markdown links and include a references section.",
		minWords: 1500,
	},
}

const systemPrompt = "You are an autonomous research assistant. You write objective, factual, well sourced reports in Markdown."

func planPrompt(query string, n int) string {
	return fmt.Sprintf(`Write %d web search queries that together would gather the information needed to research the following task: "%s".
Respond only with a JSON array of strings.`, n, query)
}

func reportPrompt(query string, tmpl reportTemplate, context string) string {
	return fmt.Sprintf(`Research context:
"""
%s
"""

Question: "%s"

%s
The report should be at least %d words long. Respond with the report in Markdown only.`, context, query, tmpl.instructions, tmpl.minWords)
}

func subtopicsPrompt(query, context string, n int) string {
	return fmt.Sprintf(`Main topic: "%s"

Research context:
"""
%s
"""

List up to %d sub-topics of the main topic that a comprehensive report should cover, based on the research context.
Respond only with a JSON array of strings.`, query, context, n)
}
