package app

import (
	"errors"

	"gopherai-chat/internal/identity"
)

var (
	ErrMissingCredential = identity.ErrMissingCredential
	ErrInvalidCredential = identity.ErrInvalidCredential

	ErrInvalidInput     = errors.New("invalid input")
	ErrSessionNotFound  = errors.New("session not found")
	ErrMessageEmpty     = errors.New("message content is empty")
	ErrGenerationFailed = errors.New("generation failed")
	ErrExtractionFailed = errors.New("document extraction failed")
	ErrStorageFailed    = errors.New("storage failed")
	ErrConcurrentUpdate = errors.New("session was modified concurrently")

	ErrUsernameExists = errors.New("username already exists")
	ErrEmailExists    = errors.New("email already exists")
	ErrLoginFailed    = errors.New("invalid username or password")
)
