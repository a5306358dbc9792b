// Package exitcode provides the process exit codes of a probe run.
//
// Exit codes:
//   - 0: Success (no vulnerable record, or the run was declined)
//   - 1: At least one vulnerable record
//   - 2: Invalid configuration or the results could not be written
package exitcode

import (
	"errors"
	"fmt"
)

// Code represents a process exit code.
type Code int

const (
	// Success indicates no vulnerability was found.
	Success Code = 0
	// Vulnerable indicates at least one probe reported a vulnerability.
	Vulnerable Code = 1
	// Failure indicates a configuration or persistence error.
	Failure Code = 2
)

// codeStrings maps exit codes to short names.
var codeStrings = map[Code]string{
	Success:    "success",
	Vulnerable: "vulnerabilities_found",
	Failure:    "error",
}

// codeDescriptions provides detailed descriptions for exit codes.
var codeDescriptions = map[Code]string{
	Success:    "No vulnerabilities detected in tested areas",
	Vulnerable: "One or more security vulnerabilities were found",
	Failure:    "The run could not be configured or its results could not be saved",
}

// String returns the short name of the code.
func (c Code) String() string {
	if s, ok := codeStrings[c]; ok {
		return s
	}
	return fmt.Sprintf("unknown(%d)", int(c))
}

// Description returns a human-readable description of the code.
func (c Code) Description() string {
	if s, ok := codeDescriptions[c]; ok {
		return s
	}
	return "Unknown exit code"
}

// FromVulnerable maps a vulnerable count to an exit code: 1 iff count > 0.
func FromVulnerable(count int) Code {
	if count > 0 {
		return Vulnerable
	}
	return Success
}

// Error carries an exit code through a command's error return.
type Error struct {
	Code Code
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Code.Description()
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// WithCode wraps err so that Of reports code for it.
func WithCode(code Code, err error) error {
	return &Error{Code: code, Err: err}
}

// Of returns the exit code for an error returned by a command. nil maps to
// Success, an *Error to its code, anything else to Failure.
func Of(err error) Code {
	if err == nil {
		return Success
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return Failure
}
