package app

import "errors"

var (
	// ErrInvalidInput marks payloads rejected at the boundary before they
	// reach the repository.
	ErrInvalidInput = errors.New("invalid input")
	// ErrEmailTaken indicates a signup with an already-registered email.
	ErrEmailTaken = errors.New("email already exists")
	// ErrInvalidCredentials indicates a failed login.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrMirrorDisabled indicates no poster mirror is configured.
	ErrMirrorDisabled = errors.New("poster mirror disabled")
	// ErrPosterNotMirrored indicates the poster has not been copied yet.
	ErrPosterNotMirrored = errors.New("poster not mirrored")
)
