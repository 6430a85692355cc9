package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/farmops/internal/auth"
	"github.com/mamadbah2/farmops/internal/cache"
	"github.com/mamadbah2/farmops/internal/domain/models"
	"github.com/mamadbah2/farmops/internal/repository/memory"
	"github.com/mamadbah2/farmops/internal/server/handlers"
	"github.com/mamadbah2/farmops/internal/service/dashboard"
	"github.com/mamadbah2/farmops/internal/service/records"
	"github.com/mamadbah2/farmops/internal/service/reporting"
	"github.com/mamadbah2/farmops/internal/service/suggestions"
	"github.com/mamadbah2/farmops/internal/service/users"
)

const secret = "router-test-secret-0123456789abcdef"

type testServer struct {
	t       *testing.T
	backend *memory.Backend
	handler http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	b := memory.New()
	for _, p := range []models.Profile{
		{ID: "mgr", Email: "mariama@farm.test", FullName: "Mariama Bah", Role: models.RoleManager, Status: models.StatusActive},
		{ID: "wrk", Email: "ousmane@farm.test", FullName: "Ousmane Camara", Role: models.RoleWorker, AssignedShed: "Shed A", Status: models.StatusActive},
		{ID: "rep", Email: "fatou@farm.test", FullName: "Fatou Sylla", Role: models.RoleSalesRep, Status: models.StatusActive},
	} {
		require.NoError(t, b.Insert(context.Background(), models.TableProfiles, p))
	}

	views := cache.NewViews(time.Minute)
	dash := dashboard.NewService(b, 1000, views, time.UTC, nil)
	h := handlers.New(handlers.Services{
		Dashboard:   dash,
		Records:     records.NewService(b, views, nil),
		Users:       users.NewService(b, nil, views, users.FarmSettings{BirdStartCount: 1000, Timezone: "UTC"}, nil, nil),
		Reports:     reporting.NewService(b, 1000, nil, nil, nil),
		Suggestions: suggestions.NewService(nil, dash, nil, nil),
	}, nil)
	resolver := auth.NewResolver(nil, secret, b)

	return &testServer{t: t, backend: b, handler: New(h, auth.Middleware(resolver, nil), nil)}
}

func (s *testServer) token(sub string) string {
	s.t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: sub, ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte(secret))
	require.NoError(s.t, err)
	return tok
}

func (s *testServer) do(method, path, user, body string) *httptest.ResponseRecorder {
	s.t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+s.token(user))
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthzAndRequestID(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAuthAndRoles(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/dashboard", "", "").Code)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/api/dashboard", "wrk", "").Code)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPost, "/api/eggs", "rep", `{}`).Code)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/api/users", "rep", "").Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/dashboard/sales", "rep", "").Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/dashboard/worker", "wrk", "").Code)
}

func TestWorkerRecordsEggsIntoOwnShed(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/api/eggs", "wrk", `{"date":"2024-03-14","shed":"Shed Z","collection_time":"Morning","total_eggs":95,"broken_eggs":2,"crates":99,"pieces":99}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var row models.EggCollection
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &row))
	assert.Equal(t, "Shed A", row.Shed)
	assert.Equal(t, 3, row.Crates)
	assert.Equal(t, 5, row.Pieces)
	assert.Equal(t, "Ousmane Camara", row.CollectedBy)
	assert.Equal(t, 1, s.backend.Len(models.TableEggCollection))
}

func TestValidationAndDecodeErrors(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/api/mortality", "mgr", `{"date":"2024-03-14","shed":"Shed A","count":0}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.JSONEq(t, `{"error":"validation failed","fields":{"count":"must be at least 1"}}`, rec.Body.String())

	rec = s.do(http.MethodPost, "/api/mortality", "mgr", `{"date":"14/03/2024","shed":"Shed A","count":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, "/api/eggs?from=yesterday", "mgr", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodDelete, "/api/eggs/missing", "mgr", "").Code)
}

func TestSaleTotalIsRecomputed(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/api/sales", "rep", `{"date":"2024-03-14","item_sold":"Eggs (crate)","quantity":"12","unit":"crate","unit_price":"2.755","total_price":"1.00"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var sale models.Sale
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sale))
	assert.Equal(t, "33.06", sale.TotalPrice.StringFixed(2))
}

func TestDashboardReflectsWrites(t *testing.T) {
	s := newTestServer(t)

	var before dashboard.View
	require.NoError(t, json.Unmarshal(s.do(http.MethodGet, "/api/dashboard", "mgr", "").Body.Bytes(), &before))
	assert.True(t, before.Available)
	assert.Equal(t, 1000, before.ActiveBirds)

	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/mortality", "wrk", `{"date":"2024-03-14","count":4,"cause":"heat"}`).Code)

	var after dashboard.View
	require.NoError(t, json.Unmarshal(s.do(http.MethodGet, "/api/dashboard", "mgr", "").Body.Bytes(), &after))
	assert.Equal(t, 996, after.ActiveBirds)
}

func TestTaskStatusByAssignee(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/api/tasks", "mgr", `{"description":"Clean drinkers","assigned_to":"wrk","due_date":"2024-03-15"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var task models.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &task))

	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPatch, "/api/tasks/"+task.ID+"/status", "rep", `{"status":"Completed"}`).Code)
	rec = s.do(http.MethodPatch, "/api/tasks/"+task.ID+"/status", "wrk", `{"status":"Completed"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"status":"Completed"`)
}

func TestReportCSV(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/eggs", "mgr", `{"date":"2024-03-14","shed":"Shed B","total_eggs":31}`).Code)

	rec := s.do(http.MethodGet, "/api/reports/eggs?format=csv&shed=Shed%20B", "mgr", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "2024-03-14,Shed B,,31,0,1,1,Mariama Bah")

	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/api/reports/eggs", "rep", "").Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/reports/profits", "mgr", "").Code)
}

func TestOptionalFeaturesAnswerUnavailable(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusServiceUnavailable, s.do(http.MethodPost, "/api/ai/suggestions", "mgr", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, s.do(http.MethodGet, "/api/snapshots", "mgr", "").Code)

	rec := s.do(http.MethodGet, "/api/ai/suggestions", "mgr", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}
