package domain

import "errors"

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a uniqueness constraint was violated.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalid marks rejected input (bad cart, unavailable variant, bad credentials payload).
	ErrInvalid = errors.New("invalid input")
	// ErrNotConfigured is returned when a required external credential is absent.
	ErrNotConfigured = errors.New("not configured")
	// ErrInvalidSignature is returned when a webhook payload fails verification.
	ErrInvalidSignature = errors.New("invalid signature")
	// ErrUpstream wraps failures of the payment provider or fulfillment vendor.
	ErrUpstream = errors.New("upstream failure")
)
