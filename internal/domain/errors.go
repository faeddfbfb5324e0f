package domain

import "errors"

var (
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrDuelNotFound is returned when a duel is not running (never started, finished or exited).
	ErrDuelNotFound = errors.New("duel not found")
	// ErrInvalidConfig rejects a duel configuration that cannot be played.
	ErrInvalidConfig = errors.New("invalid duel configuration")
	// ErrUnknownTier indicates a difficulty tier outside easy/medium/hard.
	ErrUnknownTier = errors.New("unknown difficulty tier")
	// ErrUnknownMode indicates a duel mode outside alternating/catchup.
	ErrUnknownMode = errors.New("unknown duel mode")
	// ErrInvalidQuestion indicates a malformed question.
	ErrInvalidQuestion = errors.New("invalid question")
	// ErrNotEnoughQuestions is returned when a side would start with an empty queue.
	ErrNotEnoughQuestions = errors.New("not enough questions")
)
