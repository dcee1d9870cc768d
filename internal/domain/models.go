package domain

import (
	"sort"
	"time"
)

// FlowState is the conversational mode of a single entity (user or group).
type FlowState string

const (
	StateIdle      FlowState = "idle"
	StateInQuiz    FlowState = "in_quiz"
	StateInAskMode FlowState = "in_ask_mode"
	StateFinished  FlowState = "finished"
)

// OptionLabels maps zero-based option indices to the letters users reply with.
var OptionLabels = []string{"A", "B", "C", "D"}

// Option represents one answer choice of a question.
type Option struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// Question models an MCQ question with exactly one correct option.
type Question struct {
	Index        int      `json:"index"`
	Prompt       string   `json:"prompt"`
	Options      []Option `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
	Explanation  string   `json:"explanation"`
	Points       int      `json:"points"` // defaults to 1 if zero
}

// PointsOrDefault returns the question's point value, defaulting to 1.
func (q Question) PointsOrDefault() int {
	if q.Points > 0 {
		return q.Points
	}
	return 1
}

// ParticipantTally is a participant's running counters within one group quiz.
type ParticipantTally struct {
	UserID        string `json:"userId"`
	DisplayName   string `json:"displayName"`
	Score         int    `json:"score"`
	CorrectCount  int    `json:"correctCount"`
	AnsweredCount int    `json:"answeredCount"`
	// JoinedOrder records the order of the participant's first response in
	// the quiz; it is the final ranking tie-breaker.
	JoinedOrder int `json:"joinedOrder"`
}

// AnswerRecord is one participant's answer for one group question.
type AnswerRecord struct {
	UserID      string    `json:"userId"`
	OptionIndex int       `json:"optionIndex"`
	Correct     bool      `json:"correct"`
	Points      int       `json:"points"`
	AnsweredAt  time.Time `json:"answeredAt"`
}

// QuestionRound is the state of one open question in a group quiz.
// Answers are append-only; a participant appears at most once.
type QuestionRound struct {
	Index   int            `json:"index"`
	Answers []AnswerRecord `json:"answers"`
}

// HasAnswered reports whether the participant already answered this round.
func (r *QuestionRound) HasAnswered(userID string) bool {
	for _, a := range r.Answers {
		if a.UserID == userID {
			return true
		}
	}
	return false
}

// GroupState holds the group-specific part of a session.
type GroupState struct {
	Participants map[string]*ParticipantTally `json:"participants"`
	Rounds       []QuestionRound              `json:"rounds"`
}

// CurrentRound returns the round for the open question, or nil.
func (g *GroupState) CurrentRound() *QuestionRound {
	if g == nil || len(g.Rounds) == 0 {
		return nil
	}
	return &g.Rounds[len(g.Rounds)-1]
}

// OpenRound appends a fresh round for the given question index.
func (g *GroupState) OpenRound(index int) {
	g.Rounds = append(g.Rounds, QuestionRound{Index: index})
}

// Tally returns the participant's tally, creating it on first response.
func (g *GroupState) Tally(userID, displayName string) *ParticipantTally {
	if g.Participants == nil {
		g.Participants = make(map[string]*ParticipantTally)
	}
	if t, ok := g.Participants[userID]; ok {
		if displayName != "" {
			t.DisplayName = displayName
		}
		return t
	}
	t := &ParticipantTally{
		UserID:      userID,
		DisplayName: displayName,
		JoinedOrder: len(g.Participants),
	}
	g.Participants[userID] = t
	return t
}

// Ranking returns tallies ordered by score desc, correct count desc, then
// first-response order. The sort is a total order: repeated calls over the
// same tallies yield the same sequence.
func (g *GroupState) Ranking() []ParticipantTally {
	if g == nil {
		return nil
	}
	out := make([]ParticipantTally, 0, len(g.Participants))
	for _, t := range g.Participants {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].CorrectCount != out[j].CorrectCount {
			return out[i].CorrectCount > out[j].CorrectCount
		}
		return out[i].JoinedOrder < out[j].JoinedOrder
	})
	return out
}

// FlowSession is one entity's quiz lifecycle. Exactly one live session
// exists per entity id; it is mutated only by the flow state machine.
type FlowSession struct {
	EntityID       string      `json:"entityId"`
	IsGroup        bool        `json:"isGroup"`
	State          FlowState   `json:"state"`
	QuizID         string      `json:"quizId,omitempty"`
	TotalQuestions int         `json:"totalQuestions"`
	CurrentIndex   int         `json:"currentIndex"`
	Answers        []int       `json:"answers"`
	Score          int         `json:"score"`
	CorrectCount   int         `json:"correctCount"`
	Group          *GroupState `json:"group,omitempty"`
	// LastMessageID is the de-duplication token for at-least-once webhook
	// delivery; a message whose id matches it is dropped without effect.
	LastMessageID string    `json:"lastMessageId,omitempty"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// NewFlowSession returns a fresh IDLE session for the entity.
func NewFlowSession(entityID string, isGroup bool) *FlowSession {
	s := &FlowSession{
		EntityID: entityID,
		IsGroup:  isGroup,
		State:    StateIdle,
	}
	if isGroup {
		s.Group = &GroupState{Participants: make(map[string]*ParticipantTally)}
	}
	return s
}

// Answered reports whether the current question has been answered
// (individual sessions only).
func (s *FlowSession) Answered() bool {
	return len(s.Answers) > s.CurrentIndex
}

// ResetQuiz clears all quiz progress, returning the session to IDLE.
// The de-duplication token survives the reset.
func (s *FlowSession) ResetQuiz() {
	s.State = StateIdle
	s.QuizID = ""
	s.TotalQuestions = 0
	s.CurrentIndex = 0
	s.Answers = nil
	s.Score = 0
	s.CorrectCount = 0
	if s.IsGroup {
		s.Group = &GroupState{Participants: make(map[string]*ParticipantTally)}
	}
}

// Clone deep-copies the session so a transition can be prepared without
// touching the stored state until it commits.
func (s *FlowSession) Clone() *FlowSession {
	cp := *s
	cp.Answers = append([]int(nil), s.Answers...)
	if s.Group != nil {
		g := &GroupState{Participants: make(map[string]*ParticipantTally, len(s.Group.Participants))}
		for id, t := range s.Group.Participants {
			tc := *t
			g.Participants[id] = &tc
		}
		g.Rounds = make([]QuestionRound, len(s.Group.Rounds))
		for i, r := range s.Group.Rounds {
			g.Rounds[i] = QuestionRound{
				Index:   r.Index,
				Answers: append([]AnswerRecord(nil), r.Answers...),
			}
		}
		cp.Group = g
	}
	return &cp
}

// RankingEntry is a snapshot-friendly view of a participant tally.
type RankingEntry struct {
	UserID        string `json:"userId"`
	DisplayName   string `json:"displayName"`
	Score         int    `json:"score"`
	CorrectCount  int    `json:"correctCount"`
	AnsweredCount int    `json:"answeredCount"`
}

// RankingSnapshot captures the ordered scoreboard of a group session.
type RankingSnapshot struct {
	EntityID  string         `json:"entityId"`
	QuizID    string         `json:"quizId"`
	Entries   []RankingEntry `json:"entries"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// QuizResult is the record persisted when a quiz completes.
type QuizResult struct {
	EntityID       string
	UserID         string
	QuizID         string
	Score          int
	CorrectCount   int
	AnsweredCount  int
	TotalQuestions int
	FinishedAt     time.Time
}

// Percentage returns the correct-answer rate in [0,100].
func (r QuizResult) Percentage() float64 {
	if r.TotalQuestions == 0 {
		return 0
	}
	return float64(r.CorrectCount) / float64(r.TotalQuestions) * 100
}
