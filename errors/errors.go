// Package errors is a thin layer over the standard errors package that every
// package in this module uses for creating and wrapping errors.
package errors

import (
	stdErr "errors"
	"fmt"
	"runtime"
)

// RuntimeFileInfo makes Wrap annotate messages with the caller's function, file and line.
var RuntimeFileInfo = false

func As(err error, target any) bool {
	return stdErr.As(err, target)
}

func Is(err, target error) bool {
	return stdErr.Is(err, target)
}

func Join(errs ...error) error {
	return stdErr.Join(errs...)
}

func New(text string) error {
	return stdErr.New(text)
}

func Newf(text string, args ...any) error {
	return fmt.Errorf(text, args...)
}

func Unwrap(err error) error {
	return stdErr.Unwrap(err)
}

// Wrap prefixes err with a formatted message. The result still matches err
// through Is and As. Wrapping a nil error returns nil.
func Wrap(err error, msg string, args ...any) error {
	if err == nil {
		return nil
	}
	if RuntimeFileInfo {
		if info, ok := callerInfo(2); ok {
			msg += " " + info
		}
	}

	msg += ": %w"
	args = append(args, err)

	return fmt.Errorf(msg, args...)
}

func callerInfo(skip int) (string, bool) {
	pc, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "", false
	}
	name := "unknown"
	if rf := runtime.FuncForPC(pc); rf != nil {
		name = rf.Name()
	}

	return fmt.Sprintf("function=%s file=%s line=%d", name, file, line), true
}
