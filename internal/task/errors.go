package task

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSpec is returned by New when the field tables or executor break the contract.
	ErrInvalidSpec = errors.New("invalid task spec")

	// ErrMissingOutput means the executor did not produce a declared output.
	ErrMissingOutput = errors.New("missing declared output")

	// ErrUndeclaredOutput means the executor produced an output the spec does not declare.
	ErrUndeclaredOutput = errors.New("undeclared output")

	// ErrOutputType means an output value cannot be converted to its declared type.
	ErrOutputType = errors.New("output type mismatch")
)

// CommandError describes a subprocess that exited unsuccessfully.
type CommandError struct {
	Program  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("command %q exited with code %d", e.Program, e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}
