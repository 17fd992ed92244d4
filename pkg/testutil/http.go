// Package testutil holds helpers for handler and client tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"userdir/pkg/contracts/userapi"
)

// NewJSONRequest marshals body (when non-nil) into a JSON request.
func NewJSONRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err, "failed to marshal request body")
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// NewRequestWithBody sends body verbatim as JSON.
func NewRequestWithBody(t *testing.T, method, path, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func DoRequest(handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

// DecodeEnvelope reads the response body as the store's response envelope.
func DecodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) userapi.Envelope {
	t.Helper()
	var env userapi.Envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env), "failed to decode envelope: %s", rr.Body.String())
	return env
}

// DecodeData decodes the envelope's data member into T.
func DecodeData[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	env := DecodeEnvelope(t, rr)
	require.True(t, env.Success, "expected success envelope, got %q", env.Message)
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out), "failed to decode data")
	return out
}

// DecodeFieldErrors decodes the envelope's errors member.
func DecodeFieldErrors(t *testing.T, rr *httptest.ResponseRecorder) []userapi.FieldError {
	t.Helper()
	env := DecodeEnvelope(t, rr)
	var out []userapi.FieldError
	require.NoError(t, json.Unmarshal(env.Errors, &out), "failed to decode errors")
	return out
}

func AssertStatus(t *testing.T, rr *httptest.ResponseRecorder, expected int) {
	t.Helper()
	assert.Equal(t, expected, rr.Code, "unexpected status code: %s", rr.Body.String())
}

// AssertFailure checks the status and the failure envelope's message.
func AssertFailure(t *testing.T, rr *httptest.ResponseRecorder, status int, message string) {
	t.Helper()
	AssertStatus(t, rr, status)
	env := DecodeEnvelope(t, rr)
	assert.False(t, env.Success, "expected success=false")
	assert.Equal(t, message, env.Message)
}
