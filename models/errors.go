package models

import "errors"

// Configuration errors (fatal at construction)
var (
	ErrInvalidOptionsLength = errors.New("invalid options length")
	ErrInvalidDuration      = errors.New("invalid duration")
)

// Authorization errors
var (
	ErrNotAdmin      = errors.New("caller is not the admin")
	ErrNotAuthorized = errors.New("caller is not authorized to view results")
	ErrInvalidViewer = errors.New("invalid viewer identity")
)

// State errors
var (
	ErrVotingNotStarted  = errors.New("voting has not started")
	ErrVotingClosed      = errors.New("voting is closed")
	ErrAlreadyVoted      = errors.New("identity has already voted")
	ErrAlreadyFinalized  = errors.New("survey is already finalized")
	ErrNotFinalized      = errors.New("survey is not finalized")
	ErrVotingNotEnded    = errors.New("voting has not ended")
	ErrResultsLocked     = errors.New("results are locked until finalization")
	ErrNotQueued         = errors.New("identity is not queued")
	ErrAlreadyAuthorized = errors.New("identity already has view access")
)

// Input errors
var (
	ErrInvalidOption = errors.New("invalid option id")
	ErrInvalidProof  = errors.New("malformed or unbound ballot proof")
)
