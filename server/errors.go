package server

import "errors"

var (
	ErrConnClosed   = errors.New("server: connection closed")
	ErrServerClosed = errors.New("server: server closed")
)
