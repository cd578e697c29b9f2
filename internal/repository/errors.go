package repository

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("link not found")
	ErrConflict     = errors.New("code already exists")
	ErrInvalidInput = errors.New("invalid input")
	ErrServer       = errors.New("server error")
	ErrTransport    = errors.New("transport error")
)

// Default user-facing messages, used when the server does not send one
const (
	MsgConflict       = "This code already exists."
	MsgInvalidInput   = "Invalid link data."
	MsgCreateFailed   = "Failed to create link."
	MsgDeleteFailed   = "Failed to delete link."
	MsgListFailed     = "Failed to load links."
	MsgGetFailed      = "Failed to load link stats."
	MsgNotFound       = "No link exists for this code."
	MsgHealthFailed   = "Unable to reach health endpoint."
	MsgTransportError = "Unable to reach the TinyLink API."
)

// APIError describes a failed API call. Kind is one of the package sentinels,
// so callers branch with errors.Is(err, repository.ErrConflict) and friends.
type APIError struct {
	Kind    error
	Status  int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	var msg string
	if e.Status != 0 {
		msg = fmt.Sprintf("%v (status %d): %s", e.Kind, e.Status, e.Message)
	} else {
		msg = fmt.Sprintf("%v: %s", e.Kind, e.Message)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *APIError) Unwrap() []error {
	errs := []error{e.Kind}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Message returns the text to show the user for err
func Message(err error) string {
	if err == nil {
		return ""
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return MsgNotFound
	case errors.Is(err, ErrConflict):
		return MsgConflict
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, ErrTransport):
		return MsgTransportError
	default:
		return err.Error()
	}
}

func newAPIError(kind error, status int, serverMsg, fallback string) *APIError {
	msg := serverMsg
	if msg == "" {
		msg = fallback
	}
	return &APIError{Kind: kind, Status: status, Message: msg}
}

func transportError(fallback string, err error) *APIError {
	return &APIError{Kind: ErrTransport, Message: fallback, Err: err}
}
