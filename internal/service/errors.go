package service

import "errors"

var (
	// ErrEmptyQuery query content is empty or whitespace
	ErrEmptyQuery = errors.New("query content is required")
	// ErrNotFound referenced record does not exist
	ErrNotFound = errors.New("not found")
	// ErrInvalidWorker worker payload failed validation
	ErrInvalidWorker = errors.New("invalid worker data")
	// ErrInvalidInput request payload failed validation
	ErrInvalidInput = errors.New("invalid input")
	// ErrQueryFinished query already reached a terminal status
	ErrQueryFinished = errors.New("query already finished")
	// ErrFinalizeDeferred a task of the query is still open
	ErrFinalizeDeferred = errors.New("finalize deferred")
)
