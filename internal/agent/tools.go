package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yubzen/sqlchat/internal/datasource"
	"github.com/yubzen/sqlchat/internal/providers"
)

var (
	errUnknownTool      = errors.New("unknown tool")
	errMissingParameter = errors.New("required tool parameter is missing")
	errNoResultToShow   = errors.New("run_query has not returned a result yet")
)

const sampleRowsPerTable = 3

type ToolResult struct {
	Output string
	SQL    string
}

type Tool struct {
	Name        string
	Description string
	// Parameters is the JSON schema of the tool input.
	Parameters map[string]any
	Execute    func(ctx context.Context, params map[string]any) (ToolResult, error)
}

type ToolSet struct {
	ordered []Tool
	byName  map[string]Tool
}

func NewToolSet(tools ...Tool) ToolSet {
	byName := make(map[string]Tool, len(tools))
	ordered := make([]Tool, 0, len(tools))
	for _, t := range tools {
		name := strings.TrimSpace(strings.ToLower(t.Name))
		if name == "" {
			continue
		}
		t.Name = name
		if t.Parameters == nil {
			t.Parameters = objectSchema(nil)
		}
		ordered = append(ordered, t)
		byName[name] = t
	}
	return ToolSet{
		ordered: ordered,
		byName:  byName,
	}
}

func (t ToolSet) Get(name string) (Tool, bool) {
	if t.byName == nil {
		return Tool{}, false
	}
	tool, ok := t.byName[strings.ToLower(strings.TrimSpace(name))]
	return tool, ok
}

func (t ToolSet) Names() []string {
	out := make([]string, 0, len(t.ordered))
	for _, tool := range t.ordered {
		out = append(out, tool.Name)
	}
	return out
}

func (t ToolSet) PromptBlock() string {
	if len(t.ordered) == 0 {
		return ""
	}
	lines := make([]string, 0, len(t.ordered)+1)
	lines = append(lines, "Available tools:")
	for _, tool := range t.ordered {
		lines = append(lines, fmt.Sprintf("- %s: %s", tool.Name, strings.TrimSpace(tool.Description)))
	}
	return strings.Join(lines, "\n")
}

func (t ToolSet) ProviderTools() []providers.Tool {
	out := make([]providers.Tool, 0, len(t.ordered))
	for _, tool := range t.ordered {
		out = append(out, providers.Tool{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  tool.Parameters,
		})
	}
	return out
}

type stringProp struct {
	name        string
	description string
}

func objectSchema(props []stringProp) map[string]any {
	properties := make(map[string]any, len(props))
	required := make([]string, 0, len(props))
	for _, p := range props {
		properties[p.name] = map[string]any{
			"type":        "string",
			"description": p.description,
		}
		required = append(required, p.name)
	}
	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}

// runState is what the SQL tools share within one question.
type runState struct {
	lastResult *datasource.QueryResult
	showTable  bool
}

type sqlToolEnv struct {
	querier *datasource.Querier
	schema  *datasource.Schema
	run     *runState
}

func newSQLToolSet(env sqlToolEnv) ToolSet {
	return NewToolSet(
		newListTablesTool(env),
		newDescribeTablesTool(env),
		newCheckQueryTool(env),
		newRunQueryTool(env),
		newShowTableTool(env),
	)
}

func newListTablesTool(env sqlToolEnv) Tool {
	return Tool{
		Name:        "list_tables",
		Description: "List the tables in the database. Input is empty. Call this first.",
		Execute: func(ctx context.Context, params map[string]any) (ToolResult, error) {
			if err := classifyContextErr(ctx.Err()); err != nil {
				return ToolResult{}, err
			}
			tables, err := env.schema.ListTables(ctx)
			if err != nil {
				return ToolResult{}, err
			}
			if len(tables) == 0 {
				return ToolResult{Output: "The database has no tables."}, nil
			}
			return ToolResult{Output: strings.Join(tables, ", ")}, nil
		},
	}
}

func newDescribeTablesTool(env sqlToolEnv) Tool {
	return Tool{
		Name:        "describe_tables",
		Description: "Show the columns of the given tables and a few sample rows. Input is a comma-separated list of table names; make sure they exist by calling list_tables first.",
		Parameters:  objectSchema([]stringProp{{"tables", "Comma-separated table names, for example: reviews, products"}}),
		Execute: func(ctx context.Context, params map[string]any) (ToolResult, error) {
			if err := classifyContextErr(ctx.Err()); err != nil {
				return ToolResult{}, err
			}
			names, err := stringListParam(params, "tables")
			if err != nil {
				return ToolResult{}, err
			}
			var sb strings.Builder
			for i, name := range names {
				table, err := env.schema.DescribeTable(ctx, name)
				if err != nil {
					return ToolResult{}, err
				}
				if i > 0 {
					sb.WriteString("\n\n")
				}
				sb.WriteString(datasource.FormatSchema([]datasource.Table{table}))
				sample, err := env.schema.SampleRows(ctx, table.Name, sampleRowsPerTable)
				if err != nil {
					return ToolResult{}, err
				}
				fmt.Fprintf(&sb, "\n%d sample rows from %s:\n%s", sample.Count, table.Name, sample.Format())
			}
			return ToolResult{Output: sb.String()}, nil
		},
	}
}

func newCheckQueryTool(env sqlToolEnv) Tool {
	return Tool{
		Name:        "check_query",
		Description: "Check a SQL query for mistakes before running it. The database plans the query without executing it. Always use this before run_query.",
		Parameters:  objectSchema([]stringProp{{"query", "The SQL query to check"}}),
		Execute: func(ctx context.Context, params map[string]any) (ToolResult, error) {
			if err := classifyContextErr(ctx.Err()); err != nil {
				return ToolResult{}, err
			}
			query, err := requiredStringParam(params, "query")
			if err != nil {
				return ToolResult{}, err
			}
			if _, err := env.querier.Explain(ctx, query); err != nil {
				return ToolResult{SQL: query}, err
			}
			return ToolResult{Output: "The query is valid.", SQL: query}, nil
		},
	}
}

func newRunQueryTool(env sqlToolEnv) Tool {
	return Tool{
		Name:        "run_query",
		Description: "Run a read-only SQL query and return the rows. If the query is wrong an error is returned; rewrite it, check it and try again.",
		Parameters:  objectSchema([]stringProp{{"query", "A single SELECT statement"}}),
		Execute: func(ctx context.Context, params map[string]any) (ToolResult, error) {
			if err := classifyContextErr(ctx.Err()); err != nil {
				return ToolResult{}, err
			}
			query, err := requiredStringParam(params, "query")
			if err != nil {
				return ToolResult{}, err
			}
			res, err := env.querier.Query(ctx, query)
			if err != nil {
				return ToolResult{SQL: query}, err
			}
			env.run.lastResult = &res
			return ToolResult{Output: res.Format(), SQL: res.SQL}, nil
		},
	}
}

func newShowTableTool(env sqlToolEnv) Tool {
	return Tool{
		Name:        "show_table",
		Description: "Show the rows of the last successful run_query to the user as a table. Use it when the answer is a list of rows rather than a single value, then reply with a one-line caption.",
		Execute: func(ctx context.Context, params map[string]any) (ToolResult, error) {
			if env.run.lastResult == nil {
				return ToolResult{}, errNoResultToShow
			}
			env.run.showTable = true
			return ToolResult{Output: fmt.Sprintf("The %d rows will be shown to the user as a table. Reply with a short caption.", env.run.lastResult.Count)}, nil
		},
	}
}

func requiredStringParam(params map[string]any, key string) (string, error) {
	raw, ok := params[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", errMissingParameter, key)
	}
	value, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("parameter %q must be a string", key)
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("%w: %s", errMissingParameter, key)
	}
	return value, nil
}

// stringListParam accepts either a JSON array of strings or a comma-separated
// string. Models send both.
func stringListParam(params map[string]any, key string) ([]string, error) {
	var parts []string
	switch v := params[key].(type) {
	case nil:
		return nil, fmt.Errorf("%w: %s", errMissingParameter, key)
	case string:
		parts = strings.Split(v, ",")
	case []any:
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("parameter %q must contain strings", key)
			}
			parts = append(parts, s)
		}
	default:
		return nil, fmt.Errorf("parameter %q must be a string", key)
	}

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s", errMissingParameter, key)
	}
	return out, nil
}
