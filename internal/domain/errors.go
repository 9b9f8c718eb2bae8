package domain

import "errors"

var (
	ErrNotFound        = errors.New("record not found")
	ErrSkipNotAllowed  = errors.New("only the connect accounts step can be skipped")
	ErrUnknownAction   = errors.New("unknown wizard action")
	ErrAlreadyComplete = errors.New("onboarding already completed")
)
