package domain

import "errors"

var (
	// ErrNoContent indicates the document source yielded no usable text.
	ErrNoContent = errors.New("no usable text in document")
	// ErrSessionNotFound is returned when a quiz session has not been started.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrSessionCompleted is returned when launching a bundle whose session already finished.
	ErrSessionCompleted = errors.New("quiz session already completed")
	// ErrBundleNotFound indicates the requested bundle sequence does not exist.
	ErrBundleNotFound = errors.New("bundle not found")
	// ErrPollNotFound indicates an answer event referenced an unknown or expired poll.
	ErrPollNotFound = errors.New("poll record not found")
)
