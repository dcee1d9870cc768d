package app

import (
	"fmt"
	"strings"

	"whatsapp-quiz-bot/internal/domain"
)

// Fixed notices. WhatsApp renders *bold* for asterisk-wrapped text.
const (
	msgTryAgain          = "⚠️ Something went wrong on our side. Please try again."
	msgUnauthorizedGroup = "🚫 This group is not authorized to use the quiz bot."
	msgGroupOnly         = "🚫 This bot only runs inside authorized groups."
	msgCancelled         = "🛑 Quiz cancelled. Send *START* whenever you want a new one."
	msgNothingToStop     = "No active quiz to cancel."
	msgNextReminder      = "You haven't answered the current question yet! Reply with *A*, *B*, *C* or *D*."
	msgGroupNextReminder = "No one has answered the current question yet. Waiting for answers before *NEXT*."
	msgAnswerFormat      = "Please reply with *A*, *B*, *C* or *D* — or *ASK* followed by your question."
	msgAllAnswered       = "✅ Everyone answered! Send *NEXT* for the next question."
	msgFinishedHint      = "🏁 Quiz finished! Send *START* to play again."
	msgRankingGroupsOnly = "*RANKING* only works in group quizzes."
)

func formatWelcome(isGroup bool) string {
	who := "Test your knowledge"
	if isGroup {
		who = "Challenge your group"
	}
	return fmt.Sprintf(`🎯 *Welcome to the Quiz Bot!*

%s with multiple-choice questions and get instant feedback.

📝 Answer with *A*, *B*, *C* or *D*
💬 Send *ASK* + your question to get help during the quiz
🏆 See how you rank when it's over

Send *START* to begin, or *HELP* for the full command list.`, who)
}

func formatHelp(isGroup bool) string {
	var b strings.Builder
	b.WriteString(`📖 *Available Commands:*

*START* — begin a new quiz
*NEXT* — move to the next question
*STOP* — cancel the current quiz
*STATUS* — show your progress
*ASK* + your question — get help with the current question
*RULES* — how scoring works
*HELP* — show this message`)
	if isGroup {
		b.WriteString("\n*RANKING* — show the group scoreboard")
	}
	b.WriteString("\n\nDuring the quiz, answer with *A*, *B*, *C* or *D*.")
	return b.String()
}

func formatRules() string {
	return `📋 *Rules*

• Each question has exactly one correct option.
• Only your first answer per question counts.
• Points are awarded per question; harder questions are worth more.
• Send *NEXT* after answering to move on.
• In groups, every participant may answer each question once.`
}

func formatQuizStarted(starter string, isGroup bool) string {
	if isGroup && starter != "" {
		return fmt.Sprintf("🎯 *Quiz started by %s!*\n\nGet ready...", starter)
	}
	return "🎯 *Quiz started!*\n\nGet ready..."
}

func formatQuestion(q domain.Question, index, total int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📝 *Question %d/%d*\n\n❓ %s\n\n", index+1, total, q.Prompt)
	for i, opt := range q.Options {
		label := opt.Label
		if label == "" && i < len(domain.OptionLabels) {
			label = domain.OptionLabels[i]
		}
		fmt.Fprintf(&b, "*%s)* %s\n", label, opt.Text)
	}
	b.WriteString("\n💬 *Reply with:* A, B, C or D")
	b.WriteString("\nℹ️ *Need help?* Send: ASK + your question")
	return b.String()
}

func formatFeedback(correct bool, q domain.Question) string {
	var b strings.Builder
	if correct {
		b.WriteString("✅ *Correct!*\n\n")
	} else {
		b.WriteString("❌ *Incorrect*\n\n")
		if q.CorrectIndex >= 0 && q.CorrectIndex < len(q.Options) {
			opt := q.Options[q.CorrectIndex]
			fmt.Fprintf(&b, "✔️ *Correct answer:* %s) %s\n\n", opt.Label, opt.Text)
		}
	}
	if q.Explanation != "" {
		fmt.Fprintf(&b, "💡 %s\n\n", q.Explanation)
	}
	b.WriteString("Send *NEXT* to continue")
	return b.String()
}

func formatGroupFeedback(name string, correct bool, points, answered, participants int) string {
	var b strings.Builder
	if correct {
		fmt.Fprintf(&b, "✅ *%s* got it right (+%d)\n", name, points)
	} else {
		fmt.Fprintf(&b, "❌ *%s* missed this one\n", name)
	}
	if participants > 0 {
		fmt.Fprintf(&b, "📊 %d/%d participants answered", answered, participants)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatStatus(sess *domain.FlowSession) string {
	switch sess.State {
	case domain.StateInQuiz, domain.StateInAskMode:
		if sess.IsGroup {
			return fmt.Sprintf("📊 *Status:* question %d/%d, %d participants",
				sess.CurrentIndex+1, sess.TotalQuestions, len(sess.Group.Participants))
		}
		return fmt.Sprintf("📊 *Status:* question %d/%d, score %d",
			sess.CurrentIndex+1, sess.TotalQuestions, sess.Score)
	case domain.StateFinished:
		return msgFinishedHint
	default:
		return "No quiz in progress. Send *START* to begin."
	}
}

func formatRanking(g *domain.GroupState) string {
	ranking := g.Ranking()
	if len(ranking) == 0 {
		return "🏆 *Ranking*\n\nNo answers yet."
	}
	var b strings.Builder
	b.WriteString("🏆 *Ranking*\n\n")
	for i, t := range ranking {
		fmt.Fprintf(&b, "%s *%s* — %d pts (%d/%d correct)\n",
			medal(i), t.DisplayName, t.Score, t.CorrectCount, t.AnsweredCount)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatFinalRanking(g *domain.GroupState) string {
	var b strings.Builder
	b.WriteString("🏁 *Quiz finished!*\n\n")
	b.WriteString(formatRanking(g))
	b.WriteString("\n\nSend *START* to play again.")
	return b.String()
}

func formatResults(r domain.QuizResult) string {
	pct := r.Percentage()
	return fmt.Sprintf(`🏁 *Quiz finished!*

🎯 *Score:* %d points
✅ *Correct:* %d/%d (%.0f%%)
%s

Send *START* to play again.`,
		r.Score, r.CorrectCount, r.TotalQuestions, pct, rankTitle(pct))
}

func formatChatAnswer(answer string) string {
	return "💬 " + answer + "\n\nReply with *A*, *B*, *C* or *D* when you're ready to answer."
}

// rankTitle maps the correctness rate onto the career-track ladder shown in
// the final results.
func rankTitle(pct float64) string {
	switch {
	case pct >= 90:
		return "🏆 *Rank:* Ambassador"
	case pct >= 75:
		return "🌟 *Rank:* Specialist III"
	case pct >= 60:
		return "⭐ *Rank:* Specialist II"
	case pct >= 40:
		return "📚 *Rank:* Specialist I"
	default:
		return "🌱 *Rank:* Beginner"
	}
}

func medal(pos int) string {
	switch pos {
	case 0:
		return "🥇"
	case 1:
		return "🥈"
	case 2:
		return "🥉"
	default:
		return fmt.Sprintf("%d.", pos+1)
	}
}
