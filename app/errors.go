package app

import "errors"

var (
	ErrIdentifierNotFound  = errors.New("identifier query returned no rows")
	ErrAmbiguousIdentifier = errors.New("identifier query returned more than one row")
	ErrResolveTimeout      = errors.New("timed out waiting for identifier")
	ErrResolutionPending   = errors.New("identifier resolution already pending")
	ErrAlreadyStarted      = errors.New("controller already started")
	ErrUnknownSchema       = errors.New("unknown schema")
	ErrInvalidUniqueKey    = errors.New("unique key is not a unique column")
)
