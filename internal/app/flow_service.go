package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"whatsapp-quiz-bot/internal/domain"
)

// SessionStore abstracts how flow sessions are stored (in-memory, Redis, etc).
// Load has create-on-read semantics: a missing or corrupt record yields a
// fresh IDLE session.
type SessionStore interface {
	Load(ctx context.Context, entityID string, isGroup bool) (*domain.FlowSession, error)
	Save(ctx context.Context, session *domain.FlowSession) error
	Delete(ctx context.Context, entityID string) error
	// Active lists sessions currently in a quiz (IN_QUIZ or IN_ASK_MODE).
	Active(ctx context.Context) ([]*domain.FlowSession, error)
}

// Whitelist answers whether a group may run the bot.
type Whitelist interface {
	IsAllowed(ctx context.Context, groupID string) (bool, error)
}

// QuizOracle supplies quiz content one question at a time.
type QuizOracle interface {
	StartQuiz(ctx context.Context) (quizID string, totalQuestions int, err error)
	Question(ctx context.Context, quizID string, index int) (domain.Question, error)
}

// ChatOracle answers free-text questions against the current question's context.
type ChatOracle interface {
	Answer(ctx context.Context, question domain.Question, freeText string) (string, error)
}

// MessageSink delivers formatted text to an entity.
type MessageSink interface {
	SendText(ctx context.Context, recipient, text string) error
}

// ResultLogger records completed quizzes. Logging is best-effort; a logger
// failure never rolls back a finished quiz.
type ResultLogger interface {
	LogResult(ctx context.Context, result domain.QuizResult) error
}

// Inbound is one webhook-delivered message after transport extraction.
type Inbound struct {
	EntityID  string
	IsGroup   bool
	MessageID string
	// SenderID identifies the participant inside a group; for individual
	// conversations it equals EntityID.
	SenderID   string
	SenderName string
	Text       string
}

// Config wires the flow service's collaborators.
type Config struct {
	Sessions  SessionStore
	Whitelist Whitelist
	Quiz      QuizOracle
	Chat      ChatOracle
	Sink      MessageSink
	Results   ResultLogger // optional
	Limiter   *EntityLimiter
	// GroupOnly rejects individual senders with a fixed notice.
	GroupOnly bool
	Now       func() time.Time // test hook; defaults to time.Now
}

// FlowService is the conversational flow state machine. All transitions for
// one entity are serialized behind a per-entity lock: acquire before load,
// release after save.
type FlowService struct {
	sessions  SessionStore
	whitelist Whitelist
	quiz      QuizOracle
	chat      ChatOracle
	sink      MessageSink
	results   ResultLogger
	limiter   *EntityLimiter
	groupOnly bool
	now       func() time.Time

	locks entityLocks
	hub   rankingHub
}

func NewFlowService(c Config) *FlowService {
	now := c.Now
	if now == nil {
		now = time.Now
	}
	return &FlowService{
		sessions:  c.Sessions,
		whitelist: c.Whitelist,
		quiz:      c.Quiz,
		chat:      c.Chat,
		sink:      c.Sink,
		results:   c.Results,
		limiter:   c.Limiter,
		groupOnly: c.GroupOnly,
		now:       now,
	}
}

// HandleMessage runs one inbound message through the gate, the parser and
// the state machine, persists the outcome and emits the replies.
//
// Failure semantics: an oracle failure leaves the stored session exactly as
// it was before the command and emits a retry notice; a duplicate message id
// is dropped with no outbound message at all.
func (s *FlowService) HandleMessage(ctx context.Context, in Inbound) error {
	if s.limiter != nil && !s.limiter.Allow(in.EntityID) {
		log.Printf("rate limited, dropping message from %s", in.EntityID)
		return nil
	}

	if in.IsGroup {
		allowed, err := s.whitelist.IsAllowed(ctx, in.EntityID)
		if err != nil {
			return fmt.Errorf("whitelist check: %w", err)
		}
		if !allowed {
			s.send(ctx, in.EntityID, msgUnauthorizedGroup)
			return domain.ErrUnauthorizedEntity
		}
	} else if s.groupOnly {
		s.send(ctx, in.EntityID, msgGroupOnly)
		return domain.ErrUnauthorizedEntity
	}

	unlock := s.locks.lock(in.EntityID)
	defer unlock()

	sess, err := s.sessions.Load(ctx, in.EntityID, in.IsGroup)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	if in.MessageID != "" && sess.LastMessageID == in.MessageID {
		return domain.ErrDuplicateDelivery
	}

	// Transitions are prepared on a copy and committed as a whole; a failed
	// oracle call must not leave a half-applied transition behind.
	next := sess.Clone()
	next.LastMessageID = in.MessageID

	cmd := domain.ParseCommand(in.Text)
	replies, terr := s.transition(ctx, next, in, cmd)
	if terr != nil && !errors.Is(terr, domain.ErrInvalidTransition) {
		if errors.Is(terr, domain.ErrOracleUnavailable) {
			log.Printf("oracle failure for %s: %v", in.EntityID, terr)
			s.send(ctx, in.EntityID, msgTryAgain)
			return terr
		}
		return terr
	}

	next.UpdatedAt = s.now()
	if err := s.sessions.Save(ctx, next); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	for _, reply := range replies {
		s.send(ctx, in.EntityID, reply)
	}

	if next.IsGroup && next.Group != nil {
		s.hub.broadcast(in.EntityID, rankingSnapshot(next, s.now()))
	}
	return terr
}

// transition applies one parsed command to the session copy and returns the
// replies to emit. An ErrInvalidTransition return still carries the reminder
// reply; only the de-duplication token is persisted in that case.
func (s *FlowService) transition(ctx context.Context, sess *domain.FlowSession, in Inbound, cmd domain.Command) ([]string, error) {
	// Global commands keep their meaning in every state.
	switch cmd.Kind {
	case domain.CmdHelp:
		return []string{formatHelp(sess.IsGroup)}, nil
	case domain.CmdRules:
		return []string{formatRules()}, nil
	case domain.CmdStatus:
		return []string{formatStatus(sess)}, nil
	case domain.CmdRanking:
		if sess.IsGroup {
			return []string{formatRanking(sess.Group)}, nil
		}
		return []string{msgRankingGroupsOnly}, domain.ErrInvalidTransition
	case domain.CmdStop:
		if sess.State == domain.StateInQuiz || sess.State == domain.StateInAskMode {
			sess.ResetQuiz()
			return []string{msgCancelled}, nil
		}
		return []string{msgNothingToStop}, domain.ErrInvalidTransition
	}

	switch sess.State {
	case domain.StateIdle:
		if cmd.Kind == domain.CmdStart {
			return s.startQuiz(ctx, sess, in)
		}
		return []string{formatWelcome(sess.IsGroup)}, nil
	case domain.StateInQuiz:
		return s.fromInQuiz(ctx, sess, in, cmd)
	case domain.StateInAskMode:
		return s.fromAskMode(ctx, sess, in, cmd)
	case domain.StateFinished:
		if cmd.Kind == domain.CmdStart {
			return s.startQuiz(ctx, sess, in)
		}
		return []string{msgFinishedHint}, nil
	}
	return []string{formatWelcome(sess.IsGroup)}, nil
}

func (s *FlowService) fromInQuiz(ctx context.Context, sess *domain.FlowSession, in Inbound, cmd domain.Command) ([]string, error) {
	switch cmd.Kind {
	case domain.CmdAnswer:
		if sess.IsGroup {
			return s.groupAnswer(ctx, sess, in, cmd.Option)
		}
		return s.userAnswer(ctx, sess, cmd.Option)
	case domain.CmdNext:
		return s.advance(ctx, sess)
	case domain.CmdAsk:
		return s.askQuestion(ctx, sess, cmd.Text)
	default:
		if sess.IsGroup {
			// Stray chatter during a group quiz is ignored rather than
			// answered, to keep the group readable.
			return nil, nil
		}
		return []string{msgAnswerFormat}, domain.ErrInvalidTransition
	}
}

func (s *FlowService) fromAskMode(ctx context.Context, sess *domain.FlowSession, in Inbound, cmd domain.Command) ([]string, error) {
	switch cmd.Kind {
	case domain.CmdAnswer:
		sess.State = domain.StateInQuiz
		return s.userAnswer(ctx, sess, cmd.Option)
	case domain.CmdNext:
		sess.State = domain.StateInQuiz
		return s.advance(ctx, sess)
	default:
		// Anything else keeps the tutoring conversation going.
		text := cmd.Text
		if cmd.Kind != domain.CmdAsk {
			text = strings.TrimSpace(in.Text)
		}
		return s.askQuestion(ctx, sess, text)
	}
}

func (s *FlowService) startQuiz(ctx context.Context, sess *domain.FlowSession, in Inbound) ([]string, error) {
	quizID, total, err := s.quiz.StartQuiz(ctx)
	if err != nil {
		return nil, oracleFailure("start quiz", err)
	}
	first, err := s.quiz.Question(ctx, quizID, 0)
	if err != nil {
		return nil, oracleFailure("load first question", err)
	}

	sess.ResetQuiz()
	sess.State = domain.StateInQuiz
	sess.QuizID = quizID
	sess.TotalQuestions = total
	if sess.IsGroup {
		sess.Group.OpenRound(0)
	}

	return []string{
		formatQuizStarted(in.SenderName, sess.IsGroup),
		formatQuestion(first, 0, total),
	}, nil
}

func (s *FlowService) userAnswer(ctx context.Context, sess *domain.FlowSession, option int) ([]string, error) {
	if sess.Answered() {
		// At-most-once scoring: a second answer for the same question index
		// is dropped, not overwritten.
		return nil, nil
	}
	q, err := s.quiz.Question(ctx, sess.QuizID, sess.CurrentIndex)
	if err != nil {
		return nil, oracleFailure("load question", err)
	}

	correct := option == q.CorrectIndex
	sess.Answers = append(sess.Answers, option)
	if correct {
		sess.Score += q.PointsOrDefault()
		sess.CorrectCount++
	}
	return []string{formatFeedback(correct, q)}, nil
}

func (s *FlowService) groupAnswer(ctx context.Context, sess *domain.FlowSession, in Inbound, option int) ([]string, error) {
	round := sess.Group.CurrentRound()
	if round == nil || round.Index != sess.CurrentIndex {
		return nil, nil
	}
	if round.HasAnswered(in.SenderID) {
		// One answer per participant per open question; repeats are rejected
		// silently, never overwritten.
		return nil, nil
	}

	q, err := s.quiz.Question(ctx, sess.QuizID, sess.CurrentIndex)
	if err != nil {
		return nil, oracleFailure("load question", err)
	}

	correct := option == q.CorrectIndex
	points := 0
	if correct {
		points = q.PointsOrDefault()
	}

	tally := sess.Group.Tally(in.SenderID, in.SenderName)
	tally.AnsweredCount++
	if correct {
		tally.CorrectCount++
		tally.Score += points
	}
	round.Answers = append(round.Answers, domain.AnswerRecord{
		UserID:      in.SenderID,
		OptionIndex: option,
		Correct:     correct,
		Points:      points,
		AnsweredAt:  s.now(),
	})

	replies := []string{formatGroupFeedback(in.SenderName, correct, points, len(round.Answers), len(sess.Group.Participants))}
	if everyParticipantAnswered(sess.Group, round) {
		replies = append(replies, msgAllAnswered)
	}
	return replies, nil
}

func (s *FlowService) advance(ctx context.Context, sess *domain.FlowSession) ([]string, error) {
	if sess.IsGroup {
		round := sess.Group.CurrentRound()
		if round == nil || len(round.Answers) == 0 {
			return []string{msgGroupNextReminder}, domain.ErrInvalidTransition
		}
	} else if !sess.Answered() {
		return []string{msgNextReminder}, domain.ErrInvalidTransition
	}

	next := sess.CurrentIndex + 1
	if next >= sess.TotalQuestions {
		return s.finish(ctx, sess)
	}

	q, err := s.quiz.Question(ctx, sess.QuizID, next)
	if err != nil {
		// The index increment must not commit when the question that
		// justifies it could not be loaded.
		return nil, oracleFailure("load next question", err)
	}

	sess.CurrentIndex = next
	sess.State = domain.StateInQuiz
	if sess.IsGroup {
		sess.Group.OpenRound(next)
	}
	return []string{formatQuestion(q, next, sess.TotalQuestions)}, nil
}

func (s *FlowService) finish(ctx context.Context, sess *domain.FlowSession) ([]string, error) {
	sess.CurrentIndex = sess.TotalQuestions
	sess.State = domain.StateFinished

	if sess.IsGroup {
		for _, t := range sess.Group.Ranking() {
			s.logResult(ctx, domain.QuizResult{
				EntityID:       sess.EntityID,
				UserID:         t.UserID,
				QuizID:         sess.QuizID,
				Score:          t.Score,
				CorrectCount:   t.CorrectCount,
				AnsweredCount:  t.AnsweredCount,
				TotalQuestions: sess.TotalQuestions,
				FinishedAt:     s.now(),
			})
		}
		return []string{formatFinalRanking(sess.Group)}, nil
	}

	result := domain.QuizResult{
		EntityID:       sess.EntityID,
		UserID:         sess.EntityID,
		QuizID:         sess.QuizID,
		Score:          sess.Score,
		CorrectCount:   sess.CorrectCount,
		AnsweredCount:  len(sess.Answers),
		TotalQuestions: sess.TotalQuestions,
		FinishedAt:     s.now(),
	}
	s.logResult(ctx, result)
	return []string{formatResults(result)}, nil
}

func (s *FlowService) askQuestion(ctx context.Context, sess *domain.FlowSession, text string) ([]string, error) {
	q, err := s.quiz.Question(ctx, sess.QuizID, sess.CurrentIndex)
	if err != nil {
		return nil, oracleFailure("load question", err)
	}
	answer, err := s.chat.Answer(ctx, q, text)
	if err != nil {
		return nil, oracleFailure("answer question", err)
	}
	if !sess.IsGroup {
		sess.State = domain.StateInAskMode
	}
	return []string{formatChatAnswer(answer)}, nil
}

func (s *FlowService) logResult(ctx context.Context, result domain.QuizResult) {
	if s.results == nil {
		return
	}
	if err := s.results.LogResult(ctx, result); err != nil {
		log.Printf("log quiz result for %s: %v", result.EntityID, err)
	}
}

func (s *FlowService) send(ctx context.Context, recipient, text string) {
	if err := s.sink.SendText(ctx, recipient, text); err != nil {
		log.Printf("send to %s: %v", recipient, err)
	}
}

// ActiveSessions lists sessions currently inside a quiz, for the admin API.
func (s *FlowService) ActiveSessions(ctx context.Context) ([]*domain.FlowSession, error) {
	return s.sessions.Active(ctx)
}

// ResetEntity drops an entity's session (admin reset).
func (s *FlowService) ResetEntity(ctx context.Context, entityID string) error {
	unlock := s.locks.lock(entityID)
	defer unlock()
	return s.sessions.Delete(ctx, entityID)
}

// SubscribeRanking returns a channel receiving ranking snapshots for a group
// entity after every committed mutation. The caller must invoke the returned
// cancel function to avoid leaks.
func (s *FlowService) SubscribeRanking(entityID string) (<-chan domain.RankingSnapshot, func()) {
	return s.hub.subscribe(entityID)
}

func everyParticipantAnswered(g *domain.GroupState, round *domain.QuestionRound) bool {
	for id := range g.Participants {
		if !round.HasAnswered(id) {
			return false
		}
	}
	return len(g.Participants) > 0
}

func rankingSnapshot(sess *domain.FlowSession, now time.Time) domain.RankingSnapshot {
	ranking := sess.Group.Ranking()
	entries := make([]domain.RankingEntry, 0, len(ranking))
	for _, t := range ranking {
		entries = append(entries, domain.RankingEntry{
			UserID:        t.UserID,
			DisplayName:   t.DisplayName,
			Score:         t.Score,
			CorrectCount:  t.CorrectCount,
			AnsweredCount: t.AnsweredCount,
		})
	}
	return domain.RankingSnapshot{
		EntityID:  sess.EntityID,
		QuizID:    sess.QuizID,
		Entries:   entries,
		UpdatedAt: now,
	}
}

func oracleFailure(op string, err error) error {
	return fmt.Errorf("%s: %w: %s", op, domain.ErrOracleUnavailable, err)
}
