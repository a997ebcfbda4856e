package utils

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorMessage(t *testing.T) {
	cause := errors.New("boom")

	assert.Equal(t, "Svc.Op: failed: boom", E(CodeInternal, "Svc.Op", "failed", cause).Error())
	assert.Equal(t, "Svc.Op: failed", E(CodeInternal, "Svc.Op", "failed", nil).Error())
	assert.Equal(t, "failed", E(CodeInternal, "", "failed", nil).Error())
	assert.ErrorIs(t, E(CodeInternal, "Svc.Op", "failed", cause), cause)
}

func TestCodeHelpersSeeWrappedErrors(t *testing.T) {
	err := fmt.Errorf("outer: %w", E(CodeSessionClosed, "engine.RecordAnswer", "closed", nil))

	assert.True(t, IsCode(err, CodeSessionClosed))
	assert.False(t, IsCode(err, CodeConflict))
	assert.Equal(t, CodeSessionClosed, CodeOf(err))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeInvalidArgument:          http.StatusBadRequest,
		CodeUnauthorized:             http.StatusUnauthorized,
		CodeForbidden:                http.StatusForbidden,
		CodeNotFound:                 http.StatusNotFound,
		CodeInvalidTransition:        http.StatusConflict,
		CodeSessionClosed:            http.StatusConflict,
		CodeFeedbackAlreadyGenerated: http.StatusConflict,
		CodeNoCurrentQuestion:        http.StatusUnprocessableEntity,
		CodeOracleUnavailable:        http.StatusServiceUnavailable,
		CodeTimeout:                  http.StatusGatewayTimeout,
		CodeInternal:                 http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, HTTPStatus(E(code, "op", "msg", nil)), code)
	}

	assert.Equal(t, http.StatusNotFound, HTTPStatus(fmt.Errorf("wrap: %w", ErrNotFound)))
	assert.Equal(t, http.StatusConflict, HTTPStatus(ErrConflict))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("x")))
}
