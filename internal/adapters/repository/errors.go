package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrIssuerNotFound = errors.New("issuer not found")
	ErrScoreNotFound  = errors.New("score not found")
	ErrDuplicateEvent = errors.New("duplicate event")
	ErrDuplicateIssuer = errors.New("duplicate issuer")
)
