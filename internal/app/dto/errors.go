package dto

import "errors"

// Editor errors
var (
	ErrNilCommand         = errors.New("command is nil")
	ErrInvalidCommand     = errors.New("invalid command")
	ErrUnsupportedCommand = errors.New("unsupported command")
	ErrSaveFailed         = errors.New("flow save failed")
	ErrNoRepository       = errors.New("no flow repository configured")
	ErrNoSelection        = errors.New("no node selected")
)
