package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, HTTPStatus(ErrNotFound))
	assert.Equal(t, http.StatusForbidden, HTTPStatus(ErrAccessDenied))
	assert.Equal(t, http.StatusForbidden, HTTPStatus(ErrForbidden))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(ErrRoomClosed))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(ErrInvalidReply))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(ErrBadRequest))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("boom")))
}

func TestWrappedErrorsKeepTheirMapping(t *testing.T) {
	wrapped := fmt.Errorf("%w: emoji required", ErrBadRequest)
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(wrapped))
	assert.Equal(t, "BAD_REQUEST", Code(wrapped))
}

func TestCode(t *testing.T) {
	assert.Equal(t, "NOT_FOUND", Code(ErrNotFound))
	assert.Equal(t, "ROOM_CLOSED", Code(ErrRoomClosed))
	assert.Equal(t, "UPLOAD_FAILED", Code(ErrUploadFailed))
	assert.Equal(t, "INTERNAL", Code(errors.New("boom")))
}
