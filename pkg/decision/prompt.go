package decision

import (
	"fmt"
	"strings"
	"time"

	"github.com/inboxd/inboxd/pkg/chat"
	"github.com/inboxd/inboxd/pkg/tools"
)

const systemPreamble = "You are a tool-calling assistant. Your response must be ONLY valid JSON, nothing else."

// BuildPrompt renders the messages for one engine call. Two modes:
// selection (no fresh tool results yet; pick a tool, or Done/Question) and
// synthesis (fresh results present; answer with Done based strictly on
// them).
func BuildPrompt(catalog *tools.Catalog, in Input) []chat.Message {
	system := systemPreamble
	if in.SystemPrompt != "" {
		system = in.SystemPrompt + "\n\n" + systemPreamble
	}

	var body string
	if in.Synthesis() {
		body = synthesisPrompt(catalog, in)
	} else {
		body = selectionPrompt(catalog, in)
	}

	return []chat.Message{
		chat.SystemMessage(system),
		{Role: chat.MessageRoleUser, Content: body},
	}
}

func contextSection(in Input) string {
	if in.PriorContext == "" {
		return "USER REQUEST: " + in.Input
	}
	if in.InputInContext {
		return "CONVERSATION SO FAR:\n" + in.PriorContext
	}
	return fmt.Sprintf("PREVIOUS CONVERSATION:\n%s\n\nCURRENT USER MESSAGE: %s", in.PriorContext, in.Input)
}

func selectionPrompt(catalog *tools.Catalog, in Input) string {
	var b strings.Builder

	fmt.Fprintf(&b, "TODAY'S DATE: %s\n\n", time.Now().UTC().Format("2006-01-02"))
	fmt.Fprintf(&b, "Available tools:\n%s\n", catalog.Descriptions())
	b.WriteString("- Question: Ask the user for clarification. REQUIRED arg: \"question\" (the question to ask)\n")
	b.WriteString("- Done: Provide the final answer. REQUIRED arg: \"answer\" (the answer text)\n\n")

	b.WriteString(contextSection(in))
	b.WriteString("\n")

	if len(in.PreviousResults) > 0 {
		fmt.Fprintf(&b, "\nPREVIOUS TOOL RESULTS (from earlier in conversation):\n%s\n", strings.Join(in.PreviousResults, "\n"))
	}

	b.WriteString(`
INSTRUCTIONS:
1. If the user's CURRENT question can be answered using information from the PREVIOUS CONVERSATION above, use the Done tool to answer directly.
2. If the question requires NEW information, select the appropriate tool.
3. For clarification needed, use Question.

IMPORTANT: Every tool call MUST include the required arguments. Never call a tool with empty args {}. Do NOT claim an action happened unless a tool actually returned confirmation.

Respond with ONLY this JSON format (no other text):
{"tool_name": "name_of_tool", "tool_args": {"required_arg": "value"}}

JSON response:`)

	return b.String()
}

func synthesisPrompt(catalog *tools.Catalog, in Input) string {
	var b strings.Builder

	fmt.Fprintf(&b, "TODAY'S DATE: %s\n\n", time.Now().UTC().Format("2006-01-02"))
	b.WriteString(contextSection(in))
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "TOOL RESULTS FOR CURRENT REQUEST:\n%s\n\n", strings.Join(in.FreshResults, "\n"))

	b.WriteString("Based on the ACTUAL tool results above, provide a final answer using the Done tool.\n")
	b.WriteString("CRITICAL: Only report what the tools ACTUALLY did. If a draft was created, say \"draft created\", NOT \"sent\".\n\n")

	fmt.Fprintf(&b, "Available tools:\n%s\n\n", catalog.Descriptions())

	b.WriteString(`Respond with ONLY this JSON format (no other text):
{"tool_name": "Done", "tool_args": {"answer": "your synthesized answer based on the tool results"}}

JSON response:`)

	return b.String()
}
