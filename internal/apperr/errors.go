package apperr

import (
	"errors"
	"net/http"
)

// Sentinel errors for the chat layer. Services return these (possibly
// wrapped); transports translate them once at the edge.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrNotFound     = errors.New("not found")
	ErrAccessDenied = errors.New("access denied")
	ErrForbidden    = errors.New("forbidden")
	ErrRoomClosed   = errors.New("room closed")
	ErrInvalidReply = errors.New("invalid reply reference")
	ErrUploadFailed = errors.New("upload failed")
)

// HTTPStatus maps a service error to an HTTP status code.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAccessDenied), errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrRoomClosed), errors.Is(err, ErrInvalidReply), errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Code returns the stable machine-readable code used in JSON bodies and
// socket error events.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrBadRequest):
		return "BAD_REQUEST"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrAccessDenied):
		return "ACCESS_DENIED"
	case errors.Is(err, ErrForbidden):
		return "FORBIDDEN"
	case errors.Is(err, ErrRoomClosed):
		return "ROOM_CLOSED"
	case errors.Is(err, ErrInvalidReply):
		return "INVALID_REPLY"
	case errors.Is(err, ErrUploadFailed):
		return "UPLOAD_FAILED"
	default:
		return "INTERNAL"
	}
}
