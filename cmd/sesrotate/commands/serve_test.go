package commands

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/systmms/sesrotate/internal/logging"
	"github.com/systmms/sesrotate/internal/rotation"
)

func testRotateHandler() http.Handler {
	// Requests that fail validation never reach the rotator, so a nil
	// rotator is fine for these cases.
	return rotateHandler(nil, logging.NewWithWriter(io.Discard, false, true))
}

func TestRotateHandlerRejectsGet(t *testing.T) {
	rec := httptest.NewRecorder()
	testRotateHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rotate", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRotateHandlerRejectsInvalidJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/rotate", strings.NewReader("{not json"))
	testRotateHandler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRotateHandlerRejectsUnknownStep(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/rotate", strings.NewReader(
		`{"SecretId":"arn:x","ClientRequestToken":"t","Step":"deleteSecret"}`))
	testRotateHandler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown step")
}

func TestRotateHandlerRequiresIdentifiers(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/rotate", strings.NewReader(
		`{"Step":"createSecret"}`))
	testRotateHandler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusForRotationError(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest,
		statusForRotationError(rotation.NotConfiguredError{SecretID: "arn:x"}))
	assert.Equal(t, http.StatusBadRequest,
		statusForRotationError(rotation.UnknownVersionError{SecretID: "arn:x", Token: "t"}))
	assert.Equal(t, http.StatusInternalServerError,
		statusForRotationError(rotation.VerificationExhaustedError{Attempts: 5}))
	assert.Equal(t, http.StatusServiceUnavailable,
		statusForRotationError(errors.New("ThrottlingException: rate limit exceeded")))
}
