package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"brightcall/services/registry"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlacer struct {
	calls     []string
	twimlURLs []string
	err       error
}

func (f *fakePlacer) PlaceCall(to, twimlURL, statusCallbackURL string) (string, error) {
	f.calls = append(f.calls, to)
	f.twimlURLs = append(f.twimlURLs, twimlURL)
	if f.err != nil {
		return "", f.err
	}
	return "CA123", nil
}

func newCallRouter(placer *fakePlacer) (*gin.Engine, registry.Registry) {
	gin.SetMode(gin.TestMode)
	reg := registry.NewMemoryRegistry()
	h := NewCallHandler(reg, placer, "https://relay.example.com/")

	r := gin.New()
	r.POST("/api/calls/trigger", h.TriggerCall)
	return r, reg
}

func TestTriggerCallRegistersSessionAndDials(t *testing.T) {
	placer := &fakePlacer{}
	router, reg := newCallRouter(placer)

	body := `{"to":"+15550123","name":"Ada","organization":"Analytical Engines","email":"ada@example.com"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/calls/trigger", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "CA123", resp["call_sid"])
	require.NotEmpty(t, resp["correlation_id"])

	sess, ok := reg.Get(resp["correlation_id"])
	require.True(t, ok)
	assert.Equal(t, "Ada", sess.LeadName)
	assert.Equal(t, "+15550123", sess.To)

	require.Len(t, placer.calls, 1)
	assert.Equal(t, "+15550123", placer.calls[0])
	assert.Contains(t, placer.twimlURLs[0], "https://relay.example.com/twiml?cid=")
}

func TestTriggerCallMissingDestination(t *testing.T) {
	placer := &fakePlacer{}
	router, _ := newCallRouter(placer)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/calls/trigger", strings.NewReader(`{"name":"Ada"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, placer.calls)
}

func TestTriggerCallPlacementFailure(t *testing.T) {
	placer := &fakePlacer{err: errors.New("provider unavailable")}
	router, _ := newCallRouter(placer)

	body := `{"to":"+15550123","name":"Ada","organization":"Analytical Engines"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/calls/trigger", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
}
