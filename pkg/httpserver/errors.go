package httpserver

import "errors"

var (
	// ErrStart wraps every failure that keeps Run from serving.
	ErrStart = errors.New("httpserver: start failed")
	// ErrShutdown wraps a failed graceful shutdown.
	ErrShutdown = errors.New("httpserver: graceful shutdown failed")
	// ErrAlreadyRunning is joined with ErrStart when Run is called twice.
	ErrAlreadyRunning = errors.New("httpserver: already running")
)
