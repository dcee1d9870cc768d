package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"whatsapp-quiz-bot/internal/domain"
	"whatsapp-quiz-bot/internal/infra/memory"
)

type fakeCompleter struct {
	calls   int
	content string
	err     error
}

func (f *fakeCompleter) Complete(_ context.Context, _, _ string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.content, nil
}

const sampleGeneration = "```json\n" + `{
  "prompt": "What is 2 + 2?",
  "options": ["3", "4", "5", "22"],
  "correct_index": 1,
  "explanation": "Basic arithmetic.",
  "difficulty": "medium"
}` + "\n```"

func TestEngineGeneratesAndCaches(t *testing.T) {
	completer := &fakeCompleter{content: sampleGeneration}
	engine := NewEngine(completer, memory.NewQuestionCache(time.Minute), "general knowledge", 5)
	ctx := context.Background()

	quizID, total, err := engine.StartQuiz(ctx)
	if err != nil {
		t.Fatalf("start quiz: %v", err)
	}
	if total != 5 {
		t.Fatalf("expected total 5, got %d", total)
	}

	q, err := engine.Question(ctx, quizID, 0)
	if err != nil {
		t.Fatalf("question: %v", err)
	}
	if q.Prompt != "What is 2 + 2?" || q.CorrectIndex != 1 || q.Points != 2 {
		t.Fatalf("unexpected question %+v", q)
	}
	if q.Options[1].Label != "B" || q.Options[1].Text != "4" {
		t.Fatalf("unexpected options %+v", q.Options)
	}

	// StartQuiz generated question 0; the re-read must hit the cache.
	if completer.calls != 1 {
		t.Fatalf("expected one completion call, got %d", completer.calls)
	}
}

func TestEngineQuestionIndexOutOfRange(t *testing.T) {
	engine := NewEngine(&fakeCompleter{content: sampleGeneration}, memory.NewQuestionCache(time.Minute), "general knowledge", 3)
	if _, err := engine.Question(context.Background(), "quiz-1", 3); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected ErrQuestionNotFound, got %v", err)
	}
}

func TestEnginePropagatesCompleterFailure(t *testing.T) {
	completer := &fakeCompleter{err: errors.New("upstream timeout")}
	engine := NewEngine(completer, memory.NewQuestionCache(time.Minute), "general knowledge", 3)
	if _, _, err := engine.StartQuiz(context.Background()); err == nil {
		t.Fatalf("expected start quiz to fail")
	}
}

func TestEngineRejectsMalformedGeneration(t *testing.T) {
	completer := &fakeCompleter{content: `{"prompt": "", "options": [], "correct_index": 0}`}
	engine := NewEngine(completer, memory.NewQuestionCache(time.Minute), "general knowledge", 3)
	if _, err := engine.Question(context.Background(), "quiz-1", 0); err == nil {
		t.Fatalf("expected malformed generation to fail")
	}
}
