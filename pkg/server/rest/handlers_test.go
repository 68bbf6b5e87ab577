package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"lintang/knooppuntx/pkg/datastructure"
	"lintang/knooppuntx/pkg/graphmanager"
	"lintang/knooppuntx/pkg/server"
	"lintang/knooppuntx/pkg/server/rest/service"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLoopService struct {
	got service.LoopRequest
	err error
}

func (f *fakeLoopService) PlanLoop(ctx context.Context, req service.LoopRequest) (*datastructure.RouteResult, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	return &datastructure.RouteResult{
		RouteID:         "r-1",
		Junctions:       []string{"12", "47", "3", "12"},
		ActualDistanceM: 30120,
		Message:         "SUCCESS",
	}, nil
}

type fakeHealth struct{}

func (fakeHealth) Health(ctx context.Context) graphmanager.Health {
	return graphmanager.Health{Loaded: true, GraphSource: graphmanager.SourcePrebuilt, RawNodes: 42}
}

func newTestRouter(svc LoopService) (*chi.Mux, *metrics) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	r := chi.NewRouter()
	r.Use(PromeHttpMiddleware(m))
	LoopRouter(r, svc, fakeHealth{}, m, nil)
	return r, m
}

func post(r http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/loops", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestPlanLoopHandler(t *testing.T) {
	svc := &fakeLoopService{}
	r, m := newTestRouter(svc)

	rec := post(r, `{"start_address":" Markt 1, Gent ","distance_km":30,"planned_datetime":"2026-10-20T14:00","debug":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res datastructure.RouteResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "r-1", res.RouteID)
	assert.Equal(t, []string{"12", "47", "3", "12"}, res.Junctions)

	assert.Equal(t, "Markt 1, Gent", svc.got.StartAddress)
	assert.InDelta(t, 30, svc.got.DistanceKm, 1e-9)
	require.NotNil(t, svc.got.PlannedAt)
	assert.Equal(t, 14, svc.got.PlannedAt.Hour())
	assert.True(t, svc.got.Debug)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LoopQueryCount.WithLabelValues("true")))
}

func TestPlanLoopHandlerCoordinates(t *testing.T) {
	svc := &fakeLoopService{}
	r, _ := newTestRouter(svc)

	rec := post(r, `{"start_lat":51.05,"start_lon":3.72,"distance_km":50,"tolerance":0.15}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, svc.got.StartLat)
	assert.InDelta(t, 51.05, *svc.got.StartLat, 1e-9)
	assert.InDelta(t, 0.15, svc.got.Tolerance, 1e-9)
	assert.Nil(t, svc.got.PlannedAt)
}

func TestPlanLoopHandlerRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"distance too short", `{"start_address":"Gent","distance_km":5}`},
		{"distance too long", `{"start_address":"Gent","distance_km":250}`},
		{"no start", `{"distance_km":30}`},
		{"half a coordinate", `{"start_lat":51.05,"distance_km":30}`},
		{"bad latitude", `{"start_lat":91,"start_lon":3.7,"distance_km":30}`},
		{"bad planned time", `{"start_address":"Gent","distance_km":30,"planned_datetime":"tomorrow"}`},
		{"not json", `distance=30`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeLoopService{}
			r, _ := newTestRouter(svc)
			rec := post(r, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Zero(t, svc.got.DistanceKm)
		})
	}
}

func TestPlanLoopHandlerErrorMapping(t *testing.T) {
	tests := []struct {
		code error
		want int
	}{
		{server.ErrAddressNotGeocodable, http.StatusNotFound},
		{server.ErrNoNetworkNearPoint, http.StatusNotFound},
		{server.ErrTooFewJunctions, http.StatusNotFound},
		{server.ErrNoLoopFound, http.StatusNotFound},
		{server.ErrBadParamInput, http.StatusBadRequest},
		{server.ErrServiceUnavailable, http.StatusServiceUnavailable},
		{server.ErrInternalServerError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.code.Error(), func(t *testing.T) {
			svc := &fakeLoopService{err: server.WrapErrorf(nil, tt.code, "nope")}
			r, _ := newTestRouter(svc)
			rec := post(r, `{"start_address":"Gent","distance_km":30}`)
			assert.Equal(t, tt.want, rec.Code)

			var body ErrResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "nope", body.ErrorText)
		})
	}
}

func TestHealthHandler(t *testing.T) {
	r, m := newTestRouter(&fakeLoopService{})
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var h graphmanager.Health
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &h))
	assert.True(t, h.Loaded)
	assert.Equal(t, 42, h.RawNodes)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.totalRequests.WithLabelValues("/api/health", http.MethodGet, "200")))
}

func TestObserveSearch(t *testing.T) {
	_, m := newTestRouter(&fakeLoopService{})
	m.ObserveSearch(graphmanager.SourcePrebuilt, 1200, 14, true, 0.4)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.searchTimeouts.WithLabelValues(graphmanager.SourcePrebuilt)))
}
