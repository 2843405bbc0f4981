package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"buybackd/events"
	"buybackd/models"
	"buybackd/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *service.MockCycleRepository, *service.MockHolderRepository, *service.MockActivityRepository, *orchestratorStub) {
	t.Helper()
	cycles := new(service.MockCycleRepository)
	holders := new(service.MockHolderRepository)
	dists := new(service.MockDistributionRepository)
	activity := new(service.MockActivityRepository)
	orch := &orchestratorStub{}
	hub := NewHub(events.NewBus())
	server := NewServer(":0", orch, cycles, holders, dists, activity, hub)
	return server, cycles, holders, activity, orch
}

// orchestratorStub avoids spinning real pipeline goroutines in handler
// tests.
type orchestratorStub struct {
	inProgress bool
	runs       chan bool
}

func (o *orchestratorStub) RunCycle(ctx context.Context, manual bool) (*service.CycleSummary, error) {
	if o.runs != nil {
		o.runs <- manual
	}
	return &service.CycleSummary{Cycle: &models.Cycle{}}, nil
}

func (o *orchestratorStub) InProgress() bool { return o.inProgress }

func TestServer_HandleHealth(t *testing.T) {
	server, _, _, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	server.httpServer.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServer_HandleHolders(t *testing.T) {
	server, _, holders, _, _ := newTestServer(t)

	holders.On("GetAll", mock.Anything).Return([]*models.TokenHolder{
		{WalletAddress: "wallet1", Balance: 300, Rank: 1},
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/holders", nil)
	rec := httptest.NewRecorder()
	server.httpServer.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Holders []*models.TokenHolder `json:"holders"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Holders, 1)
	assert.Equal(t, "wallet1", body.Holders[0].WalletAddress)
}

func TestServer_HandleHolders_Error(t *testing.T) {
	server, _, holders, _, _ := newTestServer(t)

	holders.On("GetAll", mock.Anything).Return(nil, errors.New("db down"))

	req := httptest.NewRequest(http.MethodGet, "/api/holders", nil)
	rec := httptest.NewRecorder()
	server.httpServer.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestServer_HandleCycles_LimitClamped(t *testing.T) {
	server, cycles, _, _, _ := newTestServer(t)

	cycles.On("GetRecent", mock.Anything, 100).Return([]*models.Cycle{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/cycles?limit=5000", nil)
	rec := httptest.NewRecorder()
	server.httpServer.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	cycles.AssertExpectations(t)
}

func TestServer_HandleActivity_DefaultLimit(t *testing.T) {
	server, _, _, activity, _ := newTestServer(t)

	activity.On("GetRecent", mock.Anything, 50).Return([]*models.Activity{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/activity", nil)
	rec := httptest.NewRecorder()
	server.httpServer.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	activity.AssertExpectations(t)
}

func TestServer_HandleTrigger(t *testing.T) {
	server, _, _, _, orch := newTestServer(t)
	orch.runs = make(chan bool, 1)

	req := httptest.NewRequest(http.MethodPost, "/api/cycles/trigger", nil)
	rec := httptest.NewRecorder()
	server.httpServer.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)

	select {
	case manual := <-orch.runs:
		assert.True(t, manual)
	case <-time.After(time.Second):
		t.Fatal("cycle was never started")
	}
}

func TestServer_HandleTrigger_Conflict(t *testing.T) {
	server, _, _, _, orch := newTestServer(t)
	orch.inProgress = true

	req := httptest.NewRequest(http.MethodPost, "/api/cycles/trigger", nil)
	rec := httptest.NewRecorder()
	server.httpServer.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestServer_HandleStatus(t *testing.T) {
	server, _, _, _, orch := newTestServer(t)
	orch.inProgress = true

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	server.httpServer.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"cycleInProgress":true}`, rec.Body.String())
}
