package model

import "github.com/m-mizutani/goerr/v2"

var (
	// ErrValidation is a local input error. No request was sent.
	ErrValidation = goerr.New("validation failed")

	ErrRequestInFlight   = goerr.New("request already in flight")
	ErrFeedbackSubmitted = goerr.New("feedback already submitted")
	ErrNoResponse        = goerr.New("no response to give feedback on")
	ErrNotInPanel        = goerr.New("current view has no input panel")
	ErrTicketCompleted   = goerr.New("request already completed")
)
