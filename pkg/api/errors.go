package api

import "errors"

var (
	ErrNoHandlerMatched = errors.New("no handler matched request")
	ErrAlreadyRunning   = errors.New("engine already running")
	ErrNotRunning       = errors.New("engine not running")
	ErrEngineClosed     = errors.New("engine closed")
	ErrNoRealNetwork    = errors.New("no real network in test context")
	ErrResponderFailed  = errors.New("responder failed")
	ErrInvalidHandler   = errors.New("invalid handler")
	ErrInvalidRuleFile  = errors.New("invalid rule file")
)
