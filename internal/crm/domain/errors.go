package domain

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDuplicateUsername  = errors.New("username already exists")
	ErrUnauthorized       = errors.New("not permitted")
	ErrServiceUnavailable = errors.New("generation service unavailable")
	ErrUnauthenticated    = errors.New("generation service rejected credentials")
	ErrNotFound           = errors.New("record not found")
	ErrInvalidInput       = errors.New("invalid input")
)
