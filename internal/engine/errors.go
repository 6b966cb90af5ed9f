package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/bamsammich/ferry/internal/transport"
)

// Code classifies a transfer failure. Codes are errors so callers can test
// with errors.Is(err, engine.LockTimeout).
type Code string

const (
	SourceNotFound           Code = "SourceNotFound"
	DestinationExists        Code = "DestinationExists"
	DestinationFolderMissing Code = "DestinationFolderMissing"
	LockTimeout              Code = "LockTimeout"
	TruncatedSource          Code = "TruncatedSource"
	ChannelFault             Code = "ChannelFault"
	PartialTreeFailure       Code = "PartialTreeFailure"
	InvalidRequest           Code = "InvalidRequest"
	TransferFailed           Code = "TransferFailed"
)

func (c Code) Error() string { return string(c) }

// TransferError is a classified failure on one path.
type TransferError struct {
	Err  error
	Code Code
	Path string
}

func (e *TransferError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	if e.Path != "" {
		b.WriteString(" ")
		b.WriteString(e.Path)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *TransferError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Code}
	}
	return []error{e.Code, e.Err}
}

// JobFailure pairs a job with the error that ended it.
type JobFailure struct {
	Err error
	Job Job
}

// TreeFailure reports a tree copy that ran to the end with some files
// failing. Total counts every file the plan produced.
type TreeFailure struct {
	Failures []JobFailure
	Total    int
}

func (e *TreeFailure) Error() string {
	msg := fmt.Sprintf("%d of %d files failed", len(e.Failures), e.Total)
	if len(e.Failures) > 0 {
		msg += ", first: " + e.Failures[0].Err.Error()
	}
	return msg
}

func (e *TreeFailure) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures)+1)
	errs = append(errs, PartialTreeFailure)
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}

// AbortError reports a tree copy stopped by a fatal error. Completed lists
// the jobs that finished before the abort.
type AbortError struct {
	Cause     error
	Completed []Job
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("copy aborted after %d files: %v", len(e.Completed), e.Cause)
}

func (e *AbortError) Unwrap() error { return e.Cause }

// IsFatal reports whether err ends the whole copy rather than one file:
// a lost channel or a cancelled context.
func IsFatal(err error) bool {
	return errors.Is(err, ChannelFault) ||
		errors.Is(err, transport.ErrChannelFault) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// classify wraps err as a TransferError on p. notExist is the code used
// when err is a missing-path error; errors already classified pass through.
func classify(err error, p string, notExist Code) *TransferError {
	var te *TransferError
	if errors.As(err, &te) {
		return te
	}
	code := TransferFailed
	switch {
	case errors.Is(err, transport.ErrChannelFault):
		code = ChannelFault
	case notExist != "" && errors.Is(err, fs.ErrNotExist):
		code = notExist
	}
	return &TransferError{Code: code, Path: p, Err: err}
}
