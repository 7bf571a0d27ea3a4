package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/go-chi/chi/v5"
)

// jsonRequest builds a request whose body is v marshaled as JSON. A string
// is written as-is so tests can send deliberately malformed payloads.
func jsonRequest(method, target string, v any) *http.Request {
	var buf bytes.Buffer
	switch body := v.(type) {
	case nil:
	case string:
		buf.WriteString(body)
	default:
		json.NewEncoder(&buf).Encode(v)
	}
	r := httptest.NewRequest(method, target, &buf)
	r.Header.Set("Content-Type", "application/json")
	return r
}

// routed injects chi URL parameters into the request context, alternating
// key and value.
func routed(r *http.Request, pairs ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(pairs); i += 2 {
		rctx.URLParams.Add(pairs[i], pairs[i+1])
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// errorBody decodes the error envelope written by response.WriteError.
func errorBody(rec *httptest.ResponseRecorder) map[string]string {
	var body map[string]string
	json.Unmarshal(rec.Body.Bytes(), &body)
	return body
}

const validID = "id-12345"
const validID2 = "id-67890"
