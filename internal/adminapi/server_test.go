package adminapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/oonrumail/bearerbox/internal/msg"
	"github.com/oonrumail/bearerbox/internal/smscconn"
)

type fakeDriver struct{ queued int }

func (d *fakeDriver) Open(cb smscconn.Callbacks) error     { return nil }
func (d *fakeDriver) SendMsg(m *msg.Msg) error             { return nil }
func (d *fakeDriver) Shutdown(finishSending bool)          {}
func (d *fakeDriver) Queued() int                          { return d.queued }
func (d *fakeDriver) Stop()                                {}
func (d *fakeDriver) Start()                               {}

func newTestConn(t *testing.T, id string) *smscconn.SMSCConn {
	t.Helper()
	f, err := smscconn.NewFilters(smscconn.FilterConfig{})
	require.NoError(t, err)
	return smscconn.New(id, id, f, &fakeDriver{}, zaptest.NewLogger(t))
}

func TestHealthAlwaysOK(t *testing.T) {
	s := NewServer(smscconn.NewRouter(nil), nil, zaptest.NewLogger(t))
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyWithNoConnectionsConfigured(t *testing.T) {
	s := NewServer(smscconn.NewRouter(nil), nil, zaptest.NewLogger(t))
	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyUnavailableWhenAllConnectionsDead(t *testing.T) {
	c := newTestConn(t, "a")
	c.Shutdown(false)
	s := NewServer(smscconn.NewRouter([]*smscconn.SMSCConn{c}), nil, zaptest.NewLogger(t))

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStatusAllListsConnections(t *testing.T) {
	c := newTestConn(t, "a")
	s := NewServer(smscconn.NewRouter([]*smscconn.SMSCConn{c}), func() int { return 3 }, zaptest.NewLogger(t))

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp statusResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.SMSCConnections, 1)
	require.Equal(t, "a", resp.SMSCConnections[0].ID)
	require.Equal(t, 3, resp.SmsboxConnections)
}

func TestStatusOneReturnsNotFoundForUnknownID(t *testing.T) {
	s := NewServer(smscconn.NewRouter(nil), nil, zaptest.NewLogger(t))
	req := httptest.NewRequest(http.MethodGet, "/status/missing", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatusOneReturnsConnectionInfo(t *testing.T) {
	c := newTestConn(t, "a")
	s := NewServer(smscconn.NewRouter([]*smscconn.SMSCConn{c}), nil, zaptest.NewLogger(t))

	req := httptest.NewRequest(http.MethodGet, "/status/a", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var info smscconn.Info
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&info))
	require.Equal(t, "a", info.ID)
}

func TestCORSDisabledByDefault(t *testing.T) {
	s := NewServer(smscconn.NewRouter(nil), nil, zaptest.NewLogger(t))
	req := httptest.NewRequest(http.MethodOptions, "/status", nil)
	req.Header.Set("Origin", "https://dashboard.example")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	s := NewServer(smscconn.NewRouter(nil), nil, zaptest.NewLogger(t),
		WithCORSOrigins([]string{"https://dashboard.example"}))
	req := httptest.NewRequest(http.MethodOptions, "/status", nil)
	req.Header.Set("Origin", "https://dashboard.example")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	require.Equal(t, "https://dashboard.example", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestBasicAuthDisabledByDefault(t *testing.T) {
	s := NewServer(smscconn.NewRouter(nil), nil, zaptest.NewLogger(t))
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestBasicAuthRejectsMissingOrWrongCredentials(t *testing.T) {
	hash, err := HashPassword("secret")
	require.NoError(t, err)
	s := NewServer(smscconn.NewRouter(nil), nil, zaptest.NewLogger(t), WithBasicAuth("admin", hash))

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/status", nil)
	req.SetBasicAuth("admin", "wrong")
	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBasicAuthAllowsCorrectCredentials(t *testing.T) {
	hash, err := HashPassword("secret")
	require.NoError(t, err)
	s := NewServer(smscconn.NewRouter(nil), nil, zaptest.NewLogger(t), WithBasicAuth("admin", hash))

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.SetBasicAuth("admin", "secret")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpointServesPrometheusFormat(t *testing.T) {
	s := NewServer(smscconn.NewRouter(nil), nil, zaptest.NewLogger(t))
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}
