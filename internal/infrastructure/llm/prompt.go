package llm

import (
	"fmt"
	"strings"

	"aidigest/internal/domain"
)

const systemPrompt = "You are an expert AI researcher and analyst."

const instructionTemplate = `**Task:** Analyze the following text from an AI news article/research paper. Provide a thorough summary and analysis structured in the following JSON format.

**Instructions:**
1.  Read the entire text carefully.
2.  Provide a one-paragraph **executive_summary** that captures the core announcement or finding.
3.  Generate a **bulleted_analysis** object covering the key implications:
    * **core_innovation**: What is the core innovation? (e.g., new architecture, new technique, new dataset)
    * **impacted_parties**: Who does this impact? (e.g., researchers, developers, specific industries)
    * **future_advancements**: What are the potential future advancements this could enable?
4.  Extract **key_information** as a list of strings:
    * Name of the new model(s), if any.
    * Names of key researchers or organizations.
    * Any specific metrics or benchmarks mentioned (e.g., "achieved 95%% on MMLU").
5.  **categorize** the content as one of the following: %s.

Respond with the JSON object only.

**Input Text:**
%s
`

// buildUserPrompt embeds the (already truncated) article text into the
// fixed instruction template.
func buildUserPrompt(text string) string {
	return fmt.Sprintf(instructionTemplate, categoryList(), text)
}

func categoryList() string {
	names := make([]string, 0, 5)
	for _, c := range domain.Categories() {
		names = append(names, fmt.Sprintf("%q", string(c)))
	}
	return strings.Join(names, ", ")
}
