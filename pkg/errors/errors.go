package errors

import (
	"errors"
	"fmt"
)

// New returns an error with the given message. If args are provided, the
// message is treated as a format string.
func New(msg string, args ...interface{}) error {
	if len(args) == 0 {
		return errors.New(msg)
	}
	return fmt.Errorf(msg, args...)
}

type contextError struct {
	context string
	err     error
}

// WithContext annotates `err` with a description of what was being done when
// it occurred. The resulting message reads "context: err".
func WithContext(err error, context string) error {
	return contextError{context: context, err: err}
}

func (err contextError) Error() string {
	return fmt.Sprintf("%s: %s", err.context, err.err)
}

func (err contextError) Unwrap() error {
	return err.err
}

// RootCause strips all the context added by WithContext, and returns the
// original error.
func RootCause(err error) error {
	for {
		ctxErr, ok := err.(contextError)
		if !ok {
			return err
		}
		err = ctxErr.err
	}
}

// FriendlyError is an error whose message is meant to be read by the operator
// as is. It isn't decorated with the context chain when printed.
type FriendlyError struct {
	msg string
}

// NewFriendlyError creates a FriendlyError from a format string.
func NewFriendlyError(template string, args ...interface{}) error {
	return FriendlyError{msg: fmt.Sprintf(template, args...)}
}

func (err FriendlyError) Error() string {
	return err.msg
}

// FriendlyMessage returns the message to show to the operator.
func (err FriendlyError) FriendlyMessage() string {
	return err.msg
}

type friendlyError interface {
	FriendlyMessage() string
}

// GetPrintableMessage returns the friendly message of the root cause if there
// is one. Otherwise, it returns the full error message including context.
func GetPrintableMessage(err error) string {
	if friendly, ok := RootCause(err).(friendlyError); ok {
		return friendly.FriendlyMessage()
	}
	return err.Error()
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
