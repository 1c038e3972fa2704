package domain

import "errors"

var (
	// ErrInvalidTransition is returned when a start is attempted with an
	// empty or malformed question batch.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrInvalidPhase is returned when an action is illegal in the current phase.
	ErrInvalidPhase = errors.New("action not allowed in current phase")
	// ErrStaleSubmission is returned when an answer targets a question that is
	// no longer the active one. Presentation layers typically swallow it.
	ErrStaleSubmission = errors.New("submission for a non-current question")
	// ErrWriteFailed wraps persistence failures; the previously committed
	// state stays readable and the caller may retry with a fresh read.
	ErrWriteFailed = errors.New("state write failed")
	// ErrCorruptState marks an unreadable persisted record. Stores recover
	// from it locally by substituting the default lobby state; it never
	// reaches controller callers.
	ErrCorruptState = errors.New("persisted state is corrupt")
	// ErrQuestionSetNotFound indicates the requested question set could not be loaded.
	ErrQuestionSetNotFound = errors.New("question set not found")
)
