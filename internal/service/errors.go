package service

import "errors"

// Lifecycle errors surfaced to the HTTP edge. All session-mutating calls on
// an already-finished session redirect to the terminal view instead of
// returning an error; only genuinely exceptional states live here.
var (
	// ErrAlreadyCompleted means the candidate's email is in the completion
	// registry; no new session may be created for it.
	ErrAlreadyCompleted = errors.New("assessment already completed for this email")

	// ErrSessionNotFound means the attempt token resolved to no session.
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidNavigation means the submitted question ID does not match the
	// engine's current pointer. Usually a stale page, never a hard failure.
	ErrInvalidNavigation = errors.New("question does not match current position")
)
