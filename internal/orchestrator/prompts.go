package orchestrator

import "fmt"

const simpleSystemPrompt = `You are a helpful conversational assistant.
Answer directly and concisely. Use markdown where it helps readability.`

// synthesisPrompt turns a research answer into the prompt for the SIMPLE
// synthesis pass. The retrieve-then-synthesize pipeline is deterministic:
// research output is never returned to the user directly.
func synthesisPrompt(question, answer string) string {
	return fmt.Sprintf(`Answer the question below using only the research results provided.
Cite sources inline with bracketed numeric markers like [1], [2] matching the order of the source list.

QUESTION:
%s

SEARCH CONTEXT:
%s`, question, answer)
}

const projectSystemPrompt = `You scaffold software projects.
Respond with a single JSON object: keys are file paths, values are complete file contents.
Include a README.md. No prose outside the JSON document.`

const studySystemPrompt = `You create study plans.
Respond with a structured plan: numbered units, each with a goal, key topics,
suggested material and one exercise. Keep it realistic for self-study.`
