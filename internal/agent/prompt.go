package agent

import "strings"

const answerInstruction = "Respond with the SQL query to answer the question, inside triple backticks."

// BuildPrompt states the schema and the question verbatim, followed by the
// instruction to reply with a single fenced query block.
func BuildPrompt(schema, question string) string {
	var b strings.Builder
	b.Grow(len(schema) + len(question) + 128)
	b.WriteString(schema)
	b.WriteString("\n\nUser question:\n")
	b.WriteString(question)
	b.WriteString("\n\n")
	b.WriteString(answerInstruction)
	b.WriteString("\n")
	return b.String()
}
