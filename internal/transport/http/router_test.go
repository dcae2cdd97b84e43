package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cwrk-planet/coderjam/internal/domain"
	"github.com/cwrk-planet/coderjam/internal/service"
	httpmw "github.com/cwrk-planet/coderjam/internal/transport/http/middleware"
	"github.com/cwrk-planet/coderjam/internal/transport/ws"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type padSvcMock struct {
	mock.Mock
}

func (m *padSvcMock) Create(ctx context.Context) (*domain.Pad, string, error) {
	args := m.Called(ctx)
	pad, _ := args.Get(0).(*domain.Pad)
	return pad, args.String(1), args.Error(2)
}

func (m *padSvcMock) Get(ctx context.Context, id, key string) (*domain.Pad, error) {
	args := m.Called(ctx, id, key)
	pad, _ := args.Get(0).(*domain.Pad)
	return pad, args.Error(1)
}

type fixedStats struct{ st service.RoomStats }

func (f fixedStats) Stats() service.RoomStats { return f.st }

type fixedConns int

func (n fixedConns) Count() int { return int(n) }

func newTestRouter(t *testing.T, pads PadSvc) http.Handler {
	t.Helper()
	h := NewHandler(pads, fixedStats{service.RoomStats{Rooms: 2, Participants: 5}}, fixedConns(7), "test")
	sessions := service.NewSessionService(nil, nil, service.NewRegistry(), nil)
	return NewRouter(h, ws.NewServer(ws.NewHub(), sessions, ws.Options{}), nil)
}

func do(t *testing.T, h http.Handler, method, path string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestCreatePad(t *testing.T) {
	m := &padSvcMock{}
	m.On("Create", mock.Anything).Return(&domain.Pad{ID: "abc123"}, "secret", nil).Once()
	router := newTestRouter(t, m)

	rec := do(t, router, http.MethodPost, "/api/pad", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, CreatePadResponse{ID: "abc123", Key: "secret"}, decodeBody[CreatePadResponse](t, rec))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	m.AssertExpectations(t)
}

func TestCreatePad_Failure(t *testing.T) {
	m := &padSvcMock{}
	m.On("Create", mock.Anything).Return(nil, "", errors.New("db gone"))
	router := newTestRouter(t, m)

	rec := do(t, router, http.MethodPost, "/api/pad", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, map[string]string{"error": "internal error"}, decodeBody[map[string]string](t, rec))
}

func TestGetPad(t *testing.T) {
	out := []domain.OutputEntry{{Text: "42", Type: domain.OutputLog}}
	m := &padSvcMock{}
	m.On("Get", mock.Anything, "abc123", "k").
		Return(&domain.Pad{ID: "abc123", Language: domain.LanguageGo, Code: "package main", Output: out, CreatedAt: time.Unix(0, 0).UTC()}, nil)
	m.On("Get", mock.Anything, "abc123", "wrong").Return(nil, domain.ErrBadKey)
	m.On("Get", mock.Anything, "zzz999", "k").Return(nil, domain.ErrPadNotFound)
	m.On("Get", mock.Anything, "bad-id", "k").Return(nil, domain.ErrInvalidPadID)
	router := newTestRouter(t, m)
	key := func(k string) http.Header { return http.Header{httpmw.HeaderPadKey: {k}} }

	rec := do(t, router, http.MethodGet, "/api/pad/abc123", key("k"))
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[PadResponse](t, rec)
	assert.Equal(t, domain.LanguageGo, got.Language)
	assert.Equal(t, "package main", got.Code)
	assert.Equal(t, out, got.Output)

	rec = do(t, router, http.MethodGet, "/api/pad/abc123", key("wrong"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "bad key", decodeBody[map[string]string](t, rec)["error"])

	rec = do(t, router, http.MethodGet, "/api/pad/zzz999", key("k"))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/pad/bad-id", key("k"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// no key never reaches the service
	rec = do(t, router, http.MethodGet, "/api/pad/abc123", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	m.AssertNumberOfCalls(t, "Get", 4)
}

func TestHealthAndStats(t *testing.T) {
	router := newTestRouter(t, &padSvcMock{})

	rec := do(t, router, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = do(t, router, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	health := decodeBody[HealthResponse](t, rec)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "test", health.Environment)

	rec = do(t, router, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, StatsResponse{Rooms: 2, Participants: 5, Connections: 7}, decodeBody[StatsResponse](t, rec))
}

func TestMetricsExposed(t *testing.T) {
	router := newTestRouter(t, &padSvcMock{})

	rec := do(t, router, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "coderjam_rooms_active"))
}

func TestCORSPreflight(t *testing.T) {
	router := newTestRouter(t, &padSvcMock{})

	rec := do(t, router, http.MethodOptions, "/api/pad", http.Header{
		"Origin":                        {"https://pad.example"},
		"Access-Control-Request-Method": {"POST"},
	})
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
