package domain

import "errors"

var (
	// ErrInvalidSelection is returned when an action names an id that is not
	// part of the collection currently on screen.
	ErrInvalidSelection = errors.New("invalid selection")
	// ErrInvalidAction is returned for unknown action types, kinds or arguments.
	ErrInvalidAction = errors.New("invalid action")
	// ErrDataFetch wraps every failure of the batched hierarchy load.
	ErrDataFetch = errors.New("data fetch failed")
	// ErrMalformedDocument marks a provider document that could not be decoded.
	ErrMalformedDocument = errors.New("malformed document")
	ErrSessionNotFound   = errors.New("session not found")
)
