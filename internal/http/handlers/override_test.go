package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearbrook/scheduler/internal/override"
)

func newOverrideHandler(t *testing.T) *OverrideHandler {
	t.Helper()
	session := override.NewSession(override.Config{})
	t.Cleanup(session.Close)
	return NewOverrideHandler(OverrideConfig{Session: session})
}

func getStatus(t *testing.T, h *OverrideHandler) overrideStatusResponse {
	t.Helper()
	rec := httptest.NewRecorder()
	h.Status(rec, httptest.NewRequest(http.MethodGet, "/override/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp overrideStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestOverrideEnableDisable(t *testing.T) {
	h := newOverrideHandler(t)

	assert.False(t, getStatus(t, h).Active)

	rec := httptest.NewRecorder()
	h.Enable(rec, httptest.NewRequest(http.MethodPost, "/override/enable", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	status := getStatus(t, h)
	assert.True(t, status.Active)
	assert.Equal(t, "frontdesk", status.Actor)

	rec = httptest.NewRecorder()
	h.Disable(rec, httptest.NewRequest(http.MethodPost, "/override/disable", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, getStatus(t, h).Active)
}

func TestOverrideTouch(t *testing.T) {
	h := newOverrideHandler(t)

	rec := httptest.NewRecorder()
	h.Enable(rec, httptest.NewRequest(http.MethodPost, "/override/enable", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.Touch(rec, httptest.NewRequest(http.MethodPost, "/override/touch", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp overrideStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Active)
}
