package main

import "errors"

// Proxy errors
var (
	ErrLoadRules    = errors.New("loading rules file")
	ErrOpenEventLog = errors.New("opening event log")
	ErrOpenEventDB  = errors.New("opening event database")
	ErrStartProxy   = errors.New("starting proxy")
)
