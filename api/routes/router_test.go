package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freightdesk/freightdesk-backend/internal/indents"
	"github.com/freightdesk/freightdesk-backend/internal/loadboard"
	"github.com/freightdesk/freightdesk-backend/internal/trips"
	pkgAuth "github.com/freightdesk/freightdesk-backend/pkg/auth"
	"github.com/freightdesk/freightdesk-backend/pkg/auth/session"
	"github.com/freightdesk/freightdesk-backend/pkg/config"
	"github.com/freightdesk/freightdesk-backend/pkg/enums"
	"github.com/freightdesk/freightdesk-backend/pkg/logger"
	"github.com/freightdesk/freightdesk-backend/pkg/metrics"
)

type stubSessions struct{}

func (stubSessions) HasSession(context.Context, string) (bool, error) { return true, nil }

// Embedded nil interfaces: any call past request validation would panic.
type stubTrips struct{ trips.Service }

type stubIndents struct{ indents.Service }

type stubBoard struct{ cards []loadboard.IndentCard }

func (b stubBoard) Snapshot() []loadboard.IndentCard { return b.cards }

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "dev", Port: "8080", CORSOrigins: []string{"http://localhost:3000"}},
		JWT: config.JWTConfig{Secret: "secret", Issuer: "freightdesk", ExpirationMinutes: 60},
	}
}

func newTestRouter(t *testing.T) (http.Handler, *config.Config) {
	t.Helper()
	cfg := testConfig()
	reg := prometheus.NewRegistry()
	board := stubBoard{cards: []loadboard.IndentCard{{ID: uuid.New(), ShortID: "IND-1", Status: enums.IndentStatusOpen}}}
	h := NewRouter(Params{
		Config:   cfg,
		Logger:   logger.Nop(),
		Sessions: stubSessions{},
		Gatherer: reg,
		HTTP:     metrics.NewHTTPMetrics(reg),
		Trips:    stubTrips{},
		Indents:  stubIndents{},
		Board:    board,
		Hub:      loadboard.NewHub(4, nil),
	})
	return h, cfg
}

func bearer(t *testing.T, cfg *config.Config, role enums.UserRole) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   role,
		JTI:    session.NewAccessID(),
	})
	require.NoError(t, err)
	return "Bearer " + token
}

func TestHealthLive(t *testing.T) {
	h, _ := newTestRouter(t)
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "dev", resp.Header().Get("X-FreightDesk-Env"))
}

func TestMetricsEndpointExposesHTTPHistogram(t *testing.T) {
	h, _ := newTestRouter(t)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health/live", nil))

	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "request_duration_seconds")
}

func TestAdminRoutesRequireAuth(t *testing.T) {
	h, cfg := newTestRouter(t)

	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/admin/dashboard", nil))
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/dashboard", nil)
	req.Header.Set("Authorization", bearer(t, cfg, enums.UserRoleClient))
	resp = httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestClientRoutesRejectAdmins(t *testing.T) {
	h, cfg := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/client/indents", nil)
	req.Header.Set("Authorization", bearer(t, cfg, enums.UserRoleAdmin))
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestLegacyEndpointsKeepFlatErrorBody(t *testing.T) {
	h, cfg := newTestRouter(t)

	for _, path := range []string{"/api/assign-truck", "/api/update-indent-status"} {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{}`))
		req.Header.Set("Authorization", bearer(t, cfg, enums.UserRoleAdmin))
		resp := httptest.NewRecorder()
		h.ServeHTTP(resp, req)

		require.Equal(t, http.StatusBadRequest, resp.Code, path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		_, isString := body["error"].(string)
		assert.True(t, isString, "%s: expected flat error, got %v", path, body)
	}
}

func TestPublicLoadBoardSnapshot(t *testing.T) {
	h, _ := newTestRouter(t)

	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/public/loadboard", nil))
	require.Equal(t, http.StatusOK, resp.Code)

	var body struct {
		Data []loadboard.IndentCard `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "IND-1", body.Data[0].ShortID)
}

func TestPublicLoadBoardStreamStartsWithSnapshot(t *testing.T) {
	h, _ := newTestRouter(t)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/public/loadboard/stream", nil).WithContext(ctx)
	resp := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		h.ServeHTTP(resp, req)
		close(done)
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, "text/event-stream", resp.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(resp.Body.String(), "event: snapshot\ndata: "))
	assert.Contains(t, resp.Body.String(), "IND-1")
}
