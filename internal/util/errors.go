package util

import "errors"

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrEmailRegistered     = errors.New("email already registered")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrGameNotFound        = errors.New("game not found")
	ErrPerformanceNotFound = errors.New("no performance record for subject")
	ErrInvalidSubject      = errors.New("unknown subject")
	ErrConcurrentUpdate    = errors.New("performance record was updated concurrently, please retry")
	ErrQuestionGeneration  = errors.New("question generation failed")
	ErrAIUnavailable       = errors.New("ai provider not configured")
)
