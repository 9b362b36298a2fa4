package controllers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"eventflow/internal/delivery/http/helpers"
	"eventflow/internal/delivery/http/middleware"
	"eventflow/internal/domain"

	"github.com/stretchr/testify/require"
)

const (
	eventUUID  = "7f8c1c52-6a1d-4c55-9b5e-0a7d4c1e2f30"
	reportUUID = "0b3e8f2a-1c4d-4e5f-8a6b-7c8d9e0f1a2b"
)

var (
	testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
	organizer  = domain.Identity{UserID: "org-1", Role: domain.RoleUser, Email: "org@example.com"}
	reviewer   = domain.Identity{UserID: "mgr-1", Role: domain.RoleManager}
)

// serve routes a single request through a mux so that path values are populated.
func serve(t *testing.T, pattern string, handler http.HandlerFunc, method, target, body string, caller *domain.Identity) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc(pattern, handler)

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if caller != nil {
		req = req.WithContext(middleware.WithIdentity(req.Context(), *caller))
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, data any) *helpers.APIError {
	t.Helper()
	var envelope struct {
		Data  json.RawMessage   `json:"data"`
		Error *helpers.APIError `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	if data != nil && envelope.Error == nil {
		require.NoError(t, json.Unmarshal(envelope.Data, data))
	}
	return envelope.Error
}
