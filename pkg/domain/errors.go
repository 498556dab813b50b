package domain

import "errors"

// ErrMissingLogger is returned when an actor receives a domain message before
// it has been bound to its session logger.
var ErrMissingLogger = errors.New("session logger not bound")

// ErrInvalidArgument is returned when a required field is absent.
var ErrInvalidArgument = errors.New("invalid argument")

// ErrUnknownType is returned when a type string is outside the closed set of variable types.
var ErrUnknownType = errors.New("unknown variable type")

// ErrUnresolvedReference is returned when a (namespace, name) key was never created in the session.
var ErrUnresolvedReference = errors.New("unresolved variable reference")

// ErrDuplicateDependant is returned when the same dependant registers twice on a variable.
var ErrDuplicateDependant = errors.New("dependant already registered")

// ErrSessionNotFound is returned when a session ID cannot be found.
var ErrSessionNotFound = errors.New("session not found")

// ErrSessionExists is returned when a live session with the same ID is already open.
var ErrSessionExists = errors.New("session already exists")

// ErrWorkbookNotFound is returned when a workbook ID cannot be loaded.
var ErrWorkbookNotFound = errors.New("workbook not found")

// ErrResultNotFound is returned when no evaluation result is stored for a session ID.
var ErrResultNotFound = errors.New("result not found")
