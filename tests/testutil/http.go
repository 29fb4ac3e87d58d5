package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/flipflop/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/require"
)

// JSONBody encodes v for a request body. Strings are sent verbatim so tests
// can post malformed JSON; nil means no body.
func JSONBody(t *testing.T, v any) io.Reader {
	t.Helper()
	switch b := v.(type) {
	case nil:
		return nil
	case string:
		return bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(v)
		require.NoError(t, err)
		return bytes.NewReader(data)
	}
}

// Perform sends one request through h. A non-nil body is sent as JSON.
func Perform(t *testing.T, h http.Handler, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	require.Zero(t, len(headers)%2, "headers must be key/value pairs")

	req := httptest.NewRequest(method, path, JSONBody(t, body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// DecodeResponse unmarshals the API envelope
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeData unmarshals the envelope and its data into out
func DecodeData(t *testing.T, w *httptest.ResponseRecorder, out any) dto.Response {
	t.Helper()
	var raw struct {
		dto.Response
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw), w.Body.String())
	if out != nil {
		require.NoError(t, json.Unmarshal(raw.Data, out))
	}
	return raw.Response
}

// ErrorCode returns the envelope's error code, failing when there is none
func ErrorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	resp := DecodeResponse(t, w)
	require.NotNil(t, resp.Error, w.Body.String())
	return resp.Error.Code
}
