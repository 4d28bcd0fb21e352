package agent

import (
	"context"
	"errors"
	"testing"
)

func TestSQLToolSetNamesAndSchemas(t *testing.T) {
	t.Parallel()

	tools := newSQLToolSet(sqlToolEnv{run: &runState{}})
	want := []string{"list_tables", "describe_tables", "check_query", "run_query", "show_table"}
	got := tools.Names()
	if len(got) != len(want) {
		t.Fatalf("expected %d tools, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("tool %d: expected %s, got %s", i, want[i], got[i])
		}
	}

	defs := tools.ProviderTools()
	for _, def := range defs {
		if def.Parameters["type"] != "object" {
			t.Fatalf("%s: expected object schema", def.Name)
		}
	}
	runQuery, ok := tools.Get(" RUN_QUERY ")
	if !ok {
		t.Fatal("expected case-insensitive lookup")
	}
	required, _ := runQuery.Parameters["required"].([]string)
	if len(required) != 1 || required[0] != "query" {
		t.Fatalf("unexpected required params: %v", required)
	}
}

func TestShowTableRequiresResult(t *testing.T) {
	t.Parallel()

	run := &runState{}
	tool, _ := newSQLToolSet(sqlToolEnv{run: run}).Get("show_table")
	if _, err := tool.Execute(context.Background(), nil); !errors.Is(err, errNoResultToShow) {
		t.Fatalf("expected errNoResultToShow, got %v", err)
	}
	if run.showTable {
		t.Fatal("show_table must not be set without a result")
	}
}

func TestStringListParam(t *testing.T) {
	t.Parallel()

	got, err := stringListParam(map[string]any{"tables": " reviews, products ,"}, "tables")
	if err != nil || len(got) != 2 || got[1] != "products" {
		t.Fatalf("comma form: got %v, %v", got, err)
	}
	got, err = stringListParam(map[string]any{"tables": []any{"reviews"}}, "tables")
	if err != nil || len(got) != 1 {
		t.Fatalf("array form: got %v, %v", got, err)
	}
	if _, err := stringListParam(map[string]any{"tables": " , "}, "tables"); !errors.Is(err, errMissingParameter) {
		t.Fatalf("expected errMissingParameter, got %v", err)
	}
	if _, err := requiredStringParam(map[string]any{"query": 3}, "query"); err == nil {
		t.Fatal("expected non-string rejection")
	}
}

func TestCleanFinalText(t *testing.T) {
	t.Parallel()

	if got := cleanFinalText("Thought: done\nFinal Answer:  42 "); got != "42" {
		t.Fatalf("got %q", got)
	}
	if got := cleanFinalText(" plain "); got != "plain" {
		t.Fatalf("got %q", got)
	}
}
