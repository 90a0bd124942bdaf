package logging

import "errors"

var (
	ErrCreateLogFile = errors.New("logging: create log file")
	ErrOpenDatabase  = errors.New("logging: open event database")
	ErrWriteEvent    = errors.New("logging: write event")
	ErrMarshalData   = errors.New("logging: marshal event data")
	ErrCloseWriter   = errors.New("logging: close writer")
)
