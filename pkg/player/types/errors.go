package types

import (
	"errors"
	"fmt"
)

var (
	ErrNotSupported = errors.New("not supported by the engine")
	ErrClosed       = errors.New("the player is closed")
)

type ErrAllocation struct {
	Width  int
	Height int
	Reason any
}

func (e ErrAllocation) Error() string {
	return fmt.Sprintf("unable to allocate a %dx%d frame buffer: %v", e.Width, e.Height, e.Reason)
}

type ErrCommand struct {
	Command string
	Err     error
}

func (e ErrCommand) Error() string {
	return fmt.Sprintf("command '%s' failed: %v", e.Command, e.Err)
}

func (e ErrCommand) Unwrap() error {
	return e.Err
}
