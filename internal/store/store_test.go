package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAppendAndRecentExchanges(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i := 1; i <= 4; i++ {
		err := s.AppendExchange(ctx, Exchange{
			SessionID: "sess-a",
			User:      fmt.Sprintf("question %d", i),
			Assistant: fmt.Sprintf("answer %d", i),
			Route:     "chat",
		})
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	recent, err := s.RecentExchanges(ctx, "sess-a", 3)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("expected 3 exchanges, got %d", len(recent))
	}
	// Oldest first, covering the last three turns.
	if recent[0].User != "question 2" || recent[2].User != "question 4" {
		t.Errorf("wrong window or order: %+v", recent)
	}
	if recent[0].Assistant != "answer 2" {
		t.Errorf("assistant text wrong: %+v", recent[0])
	}
}

func TestSessionTrimming(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		err := s.AppendExchange(ctx, Exchange{
			SessionID: "sess-long",
			User:      fmt.Sprintf("u%d", i),
			Assistant: "a",
			Route:     "chat",
		})
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	all, err := s.RecentExchanges(ctx, "sess-long", 100)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(all) != keepPerSession {
		t.Fatalf("expected session trimmed to %d, got %d", keepPerSession, len(all))
	}
	if all[len(all)-1].User != "u24" {
		t.Errorf("latest exchange must survive trimming: %+v", all[len(all)-1])
	}
	if all[0].User != "u15" {
		t.Errorf("oldest kept exchange should be u15, got %+v", all[0])
	}
}

func TestSessionsIsolated(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_ = s.AppendExchange(ctx, Exchange{SessionID: "a", User: "from a", Assistant: "r", Route: "chat"})
	_ = s.AppendExchange(ctx, Exchange{SessionID: "b", User: "from b", Assistant: "r", Route: "search"})

	recentA, err := s.RecentExchanges(ctx, "a", 10)
	if err != nil {
		t.Fatalf("recent a: %v", err)
	}
	if len(recentA) != 1 || recentA[0].User != "from a" {
		t.Errorf("session a leaked: %+v", recentA)
	}

	sessions, err := s.ActiveSessions(ctx)
	if err != nil {
		t.Fatalf("active sessions: %v", err)
	}
	if sessions != 2 {
		t.Errorf("expected 2 active sessions, got %d", sessions)
	}

	total, err := s.TotalExchanges(ctx)
	if err != nil {
		t.Fatalf("total: %v", err)
	}
	if total != 2 {
		t.Errorf("expected 2 total exchanges, got %d", total)
	}
}

func TestRecentExchanges_EmptySession(t *testing.T) {
	s := openTestStore(t)
	recent, err := s.RecentExchanges(context.Background(), "nope", 3)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 0 {
		t.Errorf("expected no exchanges, got %+v", recent)
	}
}

func TestOpenIdempotentSchema(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reopen.db")
	ctx := context.Background()

	s1, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if err := s1.AppendExchange(ctx, Exchange{SessionID: "s", User: "u", Assistant: "a", Route: "chat"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	s1.Close()

	s2, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	total, err := s2.TotalExchanges(ctx)
	if err != nil {
		t.Fatalf("total after reopen: %v", err)
	}
	if total != 1 {
		t.Errorf("history should survive reopen, got %d", total)
	}
}
