package domain

import "errors"

// ErrValidation is returned by validators when prompt input is rejected.
// The engine recovers from it by re-prompting.
var ErrValidation = errors.New("input validation failed")

// ErrRecognitionFailure is returned when no rule matches and no fallback exists.
var ErrRecognitionFailure = errors.New("no rule matched the input")

// ErrUnknownDialog is returned when a step references an unregistered dialog.
var ErrUnknownDialog = errors.New("unknown dialog reference")

// ErrStorageConflict is returned when a scope could not be saved because
// its version token changed since it was loaded.
var ErrStorageConflict = errors.New("storage conflict")

// ErrExpression is returned when an expression cannot be evaluated.
var ErrExpression = errors.New("expression evaluation failed")

// ErrTemplate is returned when a template cannot be rendered.
var ErrTemplate = errors.New("template rendering failed")

// ErrInvalidPath is returned for property paths that do not address a scope.
var ErrInvalidPath = errors.New("invalid property path")
