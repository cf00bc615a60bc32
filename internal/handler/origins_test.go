package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/pulsepy/internal/handler"
	"github.com/sakif/pulsepy/internal/origin"
)

func getOrigins(t *testing.T, h *handler.OriginsHandler, target, host string) handler.OriginsResponse {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, target, nil)
	if host != "" {
		req.Host = host
	}
	rr := httptest.NewRecorder()

	h.HandleOrigins(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var got handler.OriginsResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	return got
}

func TestOriginsHandler_HandleOrigins(t *testing.T) {
	defaults := origin.Defaults{RemoteBases: []string{"https://backup.example.com"}}

	t.Run("static dev host from query", func(t *testing.T) {
		h := handler.NewOriginsHandler(defaults, origin.APIModeServer)

		got := getOrigins(t, h, "/api/origins?host=localhost:5500", "")

		assert.True(t, got.StaticDev)
		assert.Equal(t, []string{origin.LocalEmulatorBase}, got.Bases)
		assert.Equal(t, origin.FunctionsLocalBase, got.Functions)
		assert.Equal(t, []string{origin.LocalEmulatorBase, origin.FunctionsLocalBase}, got.Priority)
		assert.Equal(t, origin.LocalEmulatorBase, got.Primary)
	})

	t.Run("request host with overrides", func(t *testing.T) {
		h := handler.NewOriginsHandler(defaults, origin.APIModeServer)

		got := getOrigins(t, h, "/api/origins?apiBase=https://a.example.com/,https://a.example.com", "pulsepy.netlify.app")

		assert.False(t, got.StaticDev)
		assert.Equal(t, []string{
			"https://a.example.com",
			"https://backup.example.com",
			origin.ProductionRemoteBase,
		}, got.Bases)
		assert.Equal(t, origin.FunctionsRemoteBase, got.Functions)
		assert.Equal(t, "https://a.example.com", got.Primary)
	})

	t.Run("configured functions mode", func(t *testing.T) {
		h := handler.NewOriginsHandler(origin.Defaults{}, origin.APIModeFunctions)

		got := getOrigins(t, h, "/api/origins", "pulsepy.netlify.app")

		assert.Equal(t, origin.FunctionsRemoteBase, got.Primary)
		assert.Equal(t, []string{origin.FunctionsRemoteBase, origin.ProductionRemoteBase}, got.Priority)
	})

	t.Run("query overrides configured mode", func(t *testing.T) {
		h := handler.NewOriginsHandler(origin.Defaults{}, origin.APIModeFunctions)

		got := getOrigins(t, h, "/api/origins?apiMode=server", "pulsepy.netlify.app")

		assert.Equal(t, origin.ProductionRemoteBase, got.Primary)
	})
}
