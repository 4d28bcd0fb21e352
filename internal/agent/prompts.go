package agent

import (
	"fmt"
	"strings"
)

const (
	fallbackAnswer = "I was unable to complete the analysis within the allowed iterations."
	wrapUpWarning  = "[System: This is your second-to-last turn. Stop calling tools and give your final answer now.]"
)

const systemPromptTemplate = `You are an agent designed to interact with a %s database.
Given an input question, create a syntactically correct %s query to run, then look at the results of the query and return the answer.
Unless the user specifies a specific number of examples they wish to obtain, always limit your query to at most %d results.
You can order the results by a relevant column to return the most interesting examples in the database.
Never query for all the columns from a specific table, only ask for the relevant columns given the question.
Only use the information returned by the tools to construct your final answer.
Check every query with check_query before you run it with run_query. If you get an error while running a query, rewrite the query and try again.
DO NOT make any DML statements (INSERT, UPDATE, DELETE, DROP etc.) to the database.
If the question does not seem related to the database, just return "I don't know" as the answer.
When the answer is a list of rows, call show_table after run_query and reply with a one-line caption.
Otherwise reply with a short plain-text answer.`

func buildSystemPrompt(dialect string, topK int, schema string, tools ToolSet) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, systemPromptTemplate, dialect, dialect, topK)
	if block := tools.PromptBlock(); block != "" {
		sb.WriteString("\n\n" + block)
	}
	if schema = strings.TrimSpace(schema); schema != "" {
		sb.WriteString("\n\nKnown tables and columns:\n" + schema)
	}
	return sb.String()
}

// cleanFinalText drops the ReAct style label some models put on their answer.
func cleanFinalText(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.LastIndex(text, "Final Answer:"); idx >= 0 {
		text = strings.TrimSpace(text[idx+len("Final Answer:"):])
	}
	return text
}
