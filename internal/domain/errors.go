package domain

import "errors"

var (
	// ErrPackNotFound indicates the question pack could not be loaded.
	ErrPackNotFound = errors.New("question pack not found")
	// ErrSessionActive is returned when configure is called mid-session.
	ErrSessionActive = errors.New("session already active")
	// ErrSessionNotConfigured is returned for round operations before configure.
	ErrSessionNotConfigured = errors.New("session not configured")
	// ErrRoundInProgress is returned when a round must finish before the operation.
	ErrRoundInProgress = errors.New("round in progress")
	// ErrQuestionNotOpen is returned when closing with no open question.
	ErrQuestionNotOpen = errors.New("no question open")
	// ErrNotJoined is returned when a player acts before joining.
	ErrNotJoined = errors.New("player has not joined")
	// ErrNoActiveQuestion is returned when answering with no question active.
	ErrNoActiveQuestion = errors.New("no active question")
)
