package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"whatsapp-quiz-bot/internal/domain"
)

// Completer produces a completion for a system+user prompt pair.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// QuestionCache stores generated questions keyed by quiz and index.
type QuestionCache interface {
	GetQuestion(ctx context.Context, quizID string, index int) (domain.Question, error)
	PutQuestion(ctx context.Context, quizID string, q domain.Question) error
}

// Engine generates quiz questions lazily, one at a time, as the quiz
// advances. Each generated question is cached so redeliveries and other
// instances see identical text and the same answer key. Concurrent requests
// for the same question collapse into a single generation call.
type Engine struct {
	completer Completer
	cache     QuestionCache
	topic     string
	total     int
	sf        singleflight.Group
}

func NewEngine(completer Completer, cache QuestionCache, topic string, totalQuestions int) *Engine {
	return &Engine{
		completer: completer,
		cache:     cache,
		topic:     topic,
		total:     totalQuestions,
	}
}

func (e *Engine) StartQuiz(ctx context.Context) (string, int, error) {
	quizID := uuid.NewString()
	// Generate the first question eagerly so a quiz never starts without one.
	if _, err := e.Question(ctx, quizID, 0); err != nil {
		return "", 0, err
	}
	return quizID, e.total, nil
}

func (e *Engine) Question(ctx context.Context, quizID string, index int) (domain.Question, error) {
	if index < 0 || index >= e.total {
		return domain.Question{}, domain.ErrQuestionNotFound
	}

	q, err := e.cache.GetQuestion(ctx, quizID, index)
	if err == nil {
		return q, nil
	}
	if !errors.Is(err, domain.ErrQuestionNotFound) {
		return domain.Question{}, err
	}

	key := fmt.Sprintf("%s:%d", quizID, index)
	result, err, _ := e.sf.Do(key, func() (interface{}, error) {
		// Re-check the cache in case another goroutine generated it.
		if q, err := e.cache.GetQuestion(ctx, quizID, index); err == nil {
			return q, nil
		}

		q, err := e.generate(ctx, index)
		if err != nil {
			return domain.Question{}, err
		}
		if err := e.cache.PutQuestion(ctx, quizID, q); err != nil {
			return domain.Question{}, err
		}
		return q, nil
	})
	if err != nil {
		return domain.Question{}, err
	}
	return result.(domain.Question), nil
}

type generatedQuestion struct {
	Prompt       string   `json:"prompt"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_index"`
	Explanation  string   `json:"explanation"`
	Difficulty   string   `json:"difficulty"`
}

const questionSystemPrompt = `You are a quiz question generator. Respond with ONLY valid JSON (no markdown, no code fences, no explanations) in this format:

{
  "prompt": "Question text?",
  "options": ["Option A", "Option B", "Option C", "Option D"],
  "correct_index": 0,
  "explanation": "One short sentence explaining the correct answer.",
  "difficulty": "easy"
}

Rules:
- Exactly 4 options, exactly one correct (correct_index is 0-based)
- "difficulty" must be "easy", "medium" or "hard"
- Make the question factually accurate and self-contained
- Return ONLY the JSON object, nothing else`

func (e *Engine) generate(ctx context.Context, index int) (domain.Question, error) {
	user := fmt.Sprintf(
		"Topic: %s. Generate question %d of %d. Questions early in the quiz should be easier, later ones harder.",
		e.topic, index+1, e.total,
	)

	content, err := e.completer.Complete(ctx, questionSystemPrompt, user)
	if err != nil {
		return domain.Question{}, fmt.Errorf("generate question %d: %w", index, err)
	}

	var gen generatedQuestion
	if err := json.Unmarshal([]byte(cleanJSONContent(content)), &gen); err != nil {
		return domain.Question{}, fmt.Errorf("generate question %d: invalid JSON: %w", index, err)
	}
	return buildQuestion(index, gen)
}

func buildQuestion(index int, gen generatedQuestion) (domain.Question, error) {
	if gen.Prompt == "" || len(gen.Options) < 2 || len(gen.Options) > len(domain.OptionLabels) {
		return domain.Question{}, fmt.Errorf("generate question %d: malformed question", index)
	}
	if gen.CorrectIndex < 0 || gen.CorrectIndex >= len(gen.Options) {
		return domain.Question{}, fmt.Errorf("generate question %d: correct_index out of range", index)
	}

	options := make([]domain.Option, len(gen.Options))
	for i, text := range gen.Options {
		options[i] = domain.Option{Label: domain.OptionLabels[i], Text: text}
	}
	return domain.Question{
		Index:        index,
		Prompt:       gen.Prompt,
		Options:      options,
		CorrectIndex: gen.CorrectIndex,
		Explanation:  gen.Explanation,
		Points:       difficultyPoints(gen.Difficulty),
	}, nil
}

func difficultyPoints(difficulty string) int {
	switch difficulty {
	case "hard":
		return 3
	case "medium":
		return 2
	default:
		return 1
	}
}
