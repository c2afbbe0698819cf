// Package services holds the use cases behind the HTTP API: onboarding, check-ins,
// the feed, the leaderboard, badges and the routine library.
package services

import "errors"

var (
	// ErrInvalidInput is returned before any mutation when a request fails validation.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUserNotFound is returned for an unknown user id or username.
	ErrUserNotFound = errors.New("user not found")
	// ErrUsernameTaken is returned when onboarding picks an existing username.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrInvalidCredentials is returned by Authenticate for a wrong username or password.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrRoutineNotFound is returned for an unknown saved routine id.
	ErrRoutineNotFound = errors.New("routine not found")
)
