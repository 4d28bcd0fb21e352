package state

import (
	"context"
	"fmt"
	"testing"
)

func TestRecordQuestionKeepsNewestPerSession(t *testing.T) {
	t.Parallel()

	db, err := Connect(":memory:")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer db.Close()

	session, err := db.CreateSession(context.Background(), "sqlite:reviews.db", "groq", "llama3-8b-8192")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	for i := 1; i <= QuestionLimit+5; i++ {
		if err := db.RecordQuestion(context.Background(), session.ID, fmt.Sprintf("question-%03d", i)); err != nil {
			t.Fatalf("append history %d: %v", i, err)
		}
	}

	history, err := db.SessionQuestions(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("get history: %v", err)
	}
	if len(history) != QuestionLimit {
		t.Fatalf("expected %d entries, got %d", QuestionLimit, len(history))
	}
	if history[0] != "question-006" {
		t.Fatalf("expected oldest retained entry question-006, got %q", history[0])
	}
	if history[len(history)-1] != "question-105" {
		t.Fatalf("expected newest entry question-105, got %q", history[len(history)-1])
	}
}

func TestRecentQuestionsAcrossSessions(t *testing.T) {
	t.Parallel()

	db, err := Connect(":memory:")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	first, _ := db.CreateSession(ctx, "sqlite:reviews.db", "groq", "m")
	second, _ := db.CreateSession(ctx, "sqlite:reviews.db", "groq", "m")

	for _, q := range []string{"how many reviews?", "top products"} {
		if err := db.RecordQuestion(ctx, first.ID, q); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	for _, q := range []string{"how many reviews?", "  ", "Which reviews mention SERVICE?"} {
		if err := db.RecordQuestion(ctx, second.ID, q); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	recent, err := db.RecentQuestions(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	want := []string{"top products", "how many reviews?", "Which reviews mention SERVICE?"}
	if fmt.Sprint(recent) != fmt.Sprint(want) {
		t.Fatalf("expected %v, got %v", want, recent)
	}

	found, err := db.SearchQuestions(ctx, "service", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(found) != 1 || found[0].SessionID != second.ID || found[0].Source != "sqlite:reviews.db" {
		t.Fatalf("unexpected search result: %#v", found)
	}

	literal, err := db.SearchQuestions(ctx, "100%", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(literal) != 0 {
		t.Fatalf("expected %% to be matched literally, got %#v", literal)
	}
}
