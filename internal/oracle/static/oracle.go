package static

import (
	"context"

	"github.com/google/uuid"

	"whatsapp-quiz-bot/internal/domain"
)

// Oracle serves a fixed question set. Used for local development and demos
// when no LLM endpoint is configured, and in tests.
type Oracle struct {
	questions []domain.Question
}

func NewOracle(questions []domain.Question) *Oracle {
	if len(questions) == 0 {
		questions = SampleQuestions()
	}
	return &Oracle{questions: questions}
}

func (o *Oracle) StartQuiz(_ context.Context) (string, int, error) {
	return uuid.NewString(), len(o.questions), nil
}

func (o *Oracle) Question(_ context.Context, _ string, index int) (domain.Question, error) {
	if index < 0 || index >= len(o.questions) {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return o.questions[index], nil
}

// Tutor is the ask-mode companion to Oracle. It points the learner back at
// the options instead of calling out to a model.
type Tutor struct{}

func (Tutor) Answer(_ context.Context, q domain.Question, _ string) (string, error) {
	return "I can't go deeper on this one, but re-read the options for \"" + q.Prompt + "\" carefully. One of them fits better than the rest.", nil
}

// SampleQuestions is a small general-knowledge set.
func SampleQuestions() []domain.Question {
	qs := []domain.Question{
		{
			Prompt: "What is the capital of Australia?",
			Options: []domain.Option{
				{Text: "Sydney"}, {Text: "Canberra"}, {Text: "Melbourne"}, {Text: "Perth"},
			},
			CorrectIndex: 1,
			Explanation:  "Canberra was purpose-built as the capital in 1913.",
			Points:       1,
		},
		{
			Prompt: "Which planet has the most moons?",
			Options: []domain.Option{
				{Text: "Jupiter"}, {Text: "Mars"}, {Text: "Saturn"}, {Text: "Neptune"},
			},
			CorrectIndex: 2,
			Explanation:  "Saturn passed Jupiter with over 140 confirmed moons.",
			Points:       2,
		},
		{
			Prompt: "In what year did the World Wide Web become publicly available?",
			Options: []domain.Option{
				{Text: "1989"}, {Text: "1991"}, {Text: "1995"}, {Text: "1998"},
			},
			CorrectIndex: 1,
			Explanation:  "CERN opened the web to the public in August 1991.",
			Points:       3,
		},
	}
	for i := range qs {
		qs[i].Index = i
		for j := range qs[i].Options {
			qs[i].Options[j].Label = domain.OptionLabels[j]
		}
	}
	return qs
}
