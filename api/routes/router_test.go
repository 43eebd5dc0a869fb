package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/luismarin-dev/ordena-backend/internal/assignments"
	"github.com/luismarin-dev/ordena-backend/pkg/config"
)

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(context.Context) error { return s.err }

type stubRouterService struct{}

func (stubRouterService) Assign(_ context.Context, _ uuid.UUID) (*assignments.AssignResult, error) {
	return &assignments.AssignResult{Assignments: []assignments.AssignmentDTO{}}, nil
}

func (stubRouterService) ListForUser(_ context.Context, _ assignments.ListParams) (*assignments.AssignmentList, error) {
	return &assignments.AssignmentList{}, nil
}

func (stubRouterService) AdvanceStatus(_ context.Context, _ assignments.AdvanceStatusInput) (*assignments.AssignmentDTO, error) {
	return nil, nil
}

func testRouter(dbErr error) http.Handler {
	return NewRouter(Deps{
		Config:      &config.Config{App: config.AppConfig{Env: "test"}},
		DB:          stubPinger{err: dbErr},
		Redis:       stubPinger{},
		Assignments: stubRouterService{},
		MerchantID:  "m1",
	})
}

func TestHealthRoutes(t *testing.T) {
	router := testRouter(nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "test", rec.Header().Get("X-Ordena-Env"))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestReadinessFailsWhenDatabaseDown(t *testing.T) {
	router := testRouter(context.DeadlineExceeded)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAssignRouteWired(t *testing.T) {
	router := testRouter(nil)

	body := strings.NewReader(`{"user_id":"` + uuid.NewString() + `"}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/fulfillment/assign", body))
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data struct {
			Assigned int `json:"assigned"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Zero(t, envelope.Data.Assigned)
}

func TestMetricsRouteWired(t *testing.T) {
	router := testRouter(nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}
