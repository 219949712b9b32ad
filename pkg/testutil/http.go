// Package testutil holds the HTTP helpers shared by the handler tests:
// request builders and assertions over the JSON envelopes the transport
// layer produces.
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
)

// NewJSONRequest builds a request with body marshaled to JSON.
func NewJSONRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()

	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err, "marshal request body")
		bodyReader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, bodyReader)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// NewRequest builds a bodyless request.
func NewRequest(t *testing.T, method, path string) *http.Request {
	t.Helper()
	return httptest.NewRequest(method, path, nil)
}

// NewRequestWithBody builds a request with a raw string body, for payloads
// that must stay malformed.
func NewRequestWithBody(t *testing.T, method, path, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// DoRequest runs a request through the handler and returns the recorder.
func DoRequest(handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

// UnmarshalResponse decodes the response body into T.
func UnmarshalResponse[T any](t *testing.T, rr *httptest.ResponseRecorder) *T {
	t.Helper()
	var result T
	require.NoError(t, json.Unmarshal(readBody(t, rr), &result), "unmarshal response")
	return &result
}

// AssertStatus asserts the response status code.
func AssertStatus(t *testing.T, rr *httptest.ResponseRecorder, expected int) {
	t.Helper()
	assert.Equal(t, expected, rr.Code, "unexpected status code")
}

// AssertStatusOK asserts a 200.
func AssertStatusOK(t *testing.T, rr *httptest.ResponseRecorder) {
	t.Helper()
	AssertStatus(t, rr, http.StatusOK)
}

// AssertStatusAndError asserts the status code and the error code in the
// JSON error envelope.
func AssertStatusAndError(t *testing.T, rr *httptest.ResponseRecorder, expectedStatus int, expectedCode string) {
	t.Helper()
	AssertStatus(t, rr, expectedStatus)

	var envelope map[string]any
	require.NoError(t, json.Unmarshal(readBody(t, rr), &envelope), "unmarshal error envelope")
	assert.Equal(t, expectedCode, envelope["error"], "unexpected error code")
}

// AssertJSONContains asserts the response JSON holds key with the expected
// value.
func AssertJSONContains(t *testing.T, rr *httptest.ResponseRecorder, key string, expectedValue any) {
	t.Helper()
	var result map[string]any
	require.NoError(t, json.Unmarshal(readBody(t, rr), &result), "unmarshal response")
	assert.Equal(t, expectedValue, result[key], "unexpected value for key %q", key)
}

// AssertJSONHasKey asserts the response JSON holds key at all.
func AssertJSONHasKey(t *testing.T, rr *httptest.ResponseRecorder, key string) {
	t.Helper()
	var result map[string]any
	require.NoError(t, json.Unmarshal(readBody(t, rr), &result), "unmarshal response")
	_, ok := result[key]
	assert.True(t, ok, "expected key %q in response", key)
}

func readBody(t *testing.T, rr *httptest.ResponseRecorder) []byte {
	t.Helper()
	// Bytes, not ReadAll: the same response is often read by several
	// assertions, so the buffer must not be consumed.
	return rr.Body.Bytes()
}
