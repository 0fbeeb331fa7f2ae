package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewInvalidTransition_NamesCurrentStatus(t *testing.T) {
	err := NewInvalidTransition("delivery note", "dispatched", "void")

	assert.Equal(t, CodeInvalidTransition, err.Code)
	assert.Equal(t, http.StatusBadRequest, err.HTTPStatus)
	assert.Contains(t, err.Message, `"dispatched"`)
	assert.Equal(t, "dispatched", err.Details["currentStatus"])
}

func TestHelpers_SeeThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("void delivery note: %w", NewInvalidTransition("delivery note", "voided", "void"))

	assert.True(t, IsInvalidTransition(wrapped))
	assert.False(t, IsNotFound(wrapped))
	assert.Equal(t, http.StatusBadRequest, GetHTTPStatus(wrapped))
	assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus(errors.New("boom")))
}

func TestWithDetail(t *testing.T) {
	err := NewPostingFailure("insufficient stock").WithDetail("lines", []string{"a"})

	assert.Equal(t, CodePostingFailure, err.Code)
	assert.Equal(t, []string{"a"}, err.Details["lines"])
}
