package domain

import "errors"

var (
	// ErrUnauthorizedEntity is returned when a message comes from an entity
	// the whitelist does not cover; the sender gets a fixed notice and no
	// session is touched.
	ErrUnauthorizedEntity = errors.New("entity not authorized")
	// ErrInvalidTransition indicates a command that is not valid in the
	// session's current state; the sender gets a reminder, state unchanged.
	ErrInvalidTransition = errors.New("command not valid in current state")
	// ErrOracleUnavailable indicates a downstream quiz or Q&A service
	// failure; the session is left exactly as before the command.
	ErrOracleUnavailable = errors.New("oracle unavailable")
	// ErrDuplicateDelivery indicates a message id that was already
	// processed; it is dropped silently with no outbound message.
	ErrDuplicateDelivery = errors.New("duplicate message delivery")
	// ErrQuestionNotFound indicates a question index outside the quiz.
	ErrQuestionNotFound = errors.New("question not found")
)
