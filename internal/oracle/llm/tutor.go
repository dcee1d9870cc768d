package llm

import (
	"context"
	"fmt"
	"strings"

	"whatsapp-quiz-bot/internal/domain"
)

// Tutor answers free-text follow-up questions about the current quiz
// question. The guardrail in the system prompt keeps it from revealing which
// option is correct while the question is still open.
type Tutor struct {
	completer Completer
}

func NewTutor(completer Completer) *Tutor {
	return &Tutor{completer: completer}
}

const tutorSystemPrompt = `You are a friendly quiz tutor chatting over WhatsApp. The learner is working on a multiple-choice question and may ask for hints, definitions or context.

Rules:
- NEVER reveal or confirm which option is correct, and never eliminate options for the learner
- Give short, helpful explanations of the concepts involved
- If asked directly for the answer, encourage the learner to reason it out instead
- Keep replies under 80 words, plain text, no markdown`

func (t *Tutor) Answer(ctx context.Context, q domain.Question, freeText string) (string, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Current question: %s\n", q.Prompt)
	for _, opt := range q.Options {
		fmt.Fprintf(&sb, "%s) %s\n", opt.Label, opt.Text)
	}
	fmt.Fprintf(&sb, "\nLearner says: %s", freeText)

	reply, err := t.completer.Complete(ctx, tutorSystemPrompt, sb.String())
	if err != nil {
		return "", fmt.Errorf("tutor answer: %w", err)
	}
	return strings.TrimSpace(reply), nil
}
