package net

import "errors"

var (
	ErrListen          = errors.New("listen failed")
	ErrProxyClosed     = errors.New("proxy closed")
	ErrUpstreamFailed  = errors.New("upstream request failed")
	ErrTLSNotSupported = errors.New("TLS interception not supported")
)
