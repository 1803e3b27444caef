package client

import (
	"errors"
	"fmt"
)

var (
	ErrNotConnected = errors.New("client: not connected")
	ErrBusy         = errors.New("client: a command is already in flight")
	ErrTimeout      = errors.New("client: connect timed out")
	ErrLoginFailed  = errors.New("client: login failed")
)

// LoginError is returned by Connect when the device traps one of the login
// rounds. It matches ErrLoginFailed with errors.Is and unwraps to the
// *protocol.TrapError.
type LoginError struct {
	Round int
	Err   error
}

func (e *LoginError) Error() string {
	return fmt.Sprintf("login failed: %s", e.Err)
}

func (e *LoginError) Unwrap() error {
	return e.Err
}

func (e *LoginError) Is(target error) bool {
	return target == ErrLoginFailed
}
