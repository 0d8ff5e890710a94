package domain

import "errors"

// ErrSessionNotFound is returned when a session ID cannot be found.
var ErrSessionNotFound = errors.New("session not found")

// ErrSessionClosed is returned when evaluating on a console that was closed.
var ErrSessionClosed = errors.New("session closed")

// ErrUnknownFormatter is returned when a formatter name is not registered.
var ErrUnknownFormatter = errors.New("unknown formatter")

// ErrSnippetNotFound is returned when a named snippet does not exist.
var ErrSnippetNotFound = errors.New("snippet not found")

// ErrRecordNotFound is returned when a history record does not exist.
var ErrRecordNotFound = errors.New("record not found")
