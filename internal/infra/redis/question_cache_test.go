package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"whatsapp-quiz-bot/internal/domain"
)

func TestQuestionCacheRoundTrip(t *testing.T) {
	mr, client := newClient(t)
	defer mr.Close()

	cache := NewQuestionCache(client, time.Minute)
	ctx := context.Background()

	q := domain.Question{
		Index:  2,
		Prompt: "What does TTL stand for?",
		Options: []domain.Option{
			{Label: "A", Text: "Time to live"},
			{Label: "B", Text: "Total talk length"},
		},
		CorrectIndex: 0,
		Points:       2,
	}
	if err := cache.PutQuestion(ctx, "quiz-1", q); err != nil {
		t.Fatalf("put question: %v", err)
	}
	if !mr.Exists("quizbot:quiz:quiz-1:questions") {
		t.Fatalf("expected hash key to be set")
	}

	got, err := cache.GetQuestion(ctx, "quiz-1", 2)
	if err != nil {
		t.Fatalf("get question: %v", err)
	}
	if got.Prompt != q.Prompt || got.CorrectIndex != q.CorrectIndex || got.Points != q.Points {
		t.Fatalf("question did not round-trip: %+v", got)
	}
}

func TestQuestionCacheMiss(t *testing.T) {
	mr, client := newClient(t)
	defer mr.Close()

	cache := NewQuestionCache(client, time.Minute)
	_, err := cache.GetQuestion(context.Background(), "quiz-1", 0)
	if !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected ErrQuestionNotFound, got %v", err)
	}
}

func TestWhitelistMembership(t *testing.T) {
	mr, client := newClient(t)
	defer mr.Close()

	wl := NewWhitelist(client)
	ctx := context.Background()

	ok, err := wl.IsAllowed(ctx, "group-1@g.us")
	if err != nil {
		t.Fatalf("check empty whitelist: %v", err)
	}
	if ok {
		t.Fatalf("expected empty whitelist to deny")
	}

	added, err := wl.Add(ctx, "group-1@g.us")
	if err != nil || !added {
		t.Fatalf("add: added=%v err=%v", added, err)
	}
	if added, _ := wl.Add(ctx, "group-1@g.us"); added {
		t.Fatalf("expected second add to report no change")
	}

	if ok, _ := wl.IsAllowed(ctx, "group-1@g.us"); !ok {
		t.Fatalf("expected member to be allowed")
	}

	members, err := wl.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(members) != 1 || members[0] != "group-1@g.us" {
		t.Fatalf("unexpected members: %v", members)
	}

	removed, err := wl.Remove(ctx, "group-1@g.us")
	if err != nil || !removed {
		t.Fatalf("remove: removed=%v err=%v", removed, err)
	}
	if ok, _ := wl.IsAllowed(ctx, "group-1@g.us"); ok {
		t.Fatalf("expected removed member to be denied")
	}
}
