package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"buybackd/service"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// Server exposes the dashboard read API and the websocket feed.
type Server struct {
	httpServer   *http.Server
	orchestrator service.CycleOrchestrator
	cycles       service.CycleRepository
	holders      service.HolderRepository
	dists        service.DistributionRepository
	activity     service.ActivityRepository
	hub          *Hub
}

// NewServer wires the handlers onto a router listening on addr. The
// repositories read through the pool, outside any unit of work.
func NewServer(
	addr string,
	orchestrator service.CycleOrchestrator,
	cycles service.CycleRepository,
	holders service.HolderRepository,
	dists service.DistributionRepository,
	activity service.ActivityRepository,
	hub *Hub,
) *Server {
	s := &Server{
		orchestrator: orchestrator,
		cycles:       cycles,
		holders:      holders,
		dists:        dists,
		activity:     activity,
		hub:          hub,
	}

	r := mux.NewRouter()
	r.HandleFunc("/api/health", s.handleHealth).Methods("GET")
	r.HandleFunc("/api/status", s.handleStatus).Methods("GET")
	r.HandleFunc("/api/holders", s.handleHolders).Methods("GET")
	r.HandleFunc("/api/cycles", s.handleCycles).Methods("GET")
	r.HandleFunc("/api/cycles/trigger", s.handleTrigger).Methods("POST")
	r.HandleFunc("/api/cycles/{id}/distributions", s.handleDistributions).Methods("GET")
	r.HandleFunc("/api/activity", s.handleActivity).Methods("GET")
	r.HandleFunc("/api/ws", s.hub.HandleWebSocket)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Start begins serving. Blocks until the listener fails or Shutdown is
// called.
func (s *Server) Start() error {
	log.WithField("addr", s.httpServer.Addr).Info("API server listening")
	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and closes the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"cycleInProgress": s.orchestrator.InProgress(),
	})
}

func (s *Server) handleHolders(w http.ResponseWriter, r *http.Request) {
	holders, err := s.holders.GetAll(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load holders")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"holders": holders})
}

func (s *Server) handleCycles(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, 20, 100)
	cycles, err := s.cycles.GetRecent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load cycles")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cycles": cycles})
}

func (s *Server) handleDistributions(w http.ResponseWriter, r *http.Request) {
	cycleID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid cycle id")
		return
	}

	cycle, err := s.cycles.GetByID(r.Context(), cycleID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load cycle")
		return
	}
	if cycle == nil {
		writeError(w, http.StatusNotFound, "cycle not found")
		return
	}

	dists, err := s.dists.GetByCycle(r.Context(), cycleID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load distributions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cycle": cycle, "distributions": dists})
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, 50, 200)
	entries, err := s.activity.GetRecent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load activity")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"activity": entries})
}

// handleTrigger starts a manual cycle. The run continues in the
// background; the response only acknowledges the start.
func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	if s.orchestrator.InProgress() {
		writeError(w, http.StatusConflict, "a cycle is already in progress")
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
		defer cancel()
		if _, err := s.orchestrator.RunCycle(ctx, true); err != nil &&
			!errors.Is(err, service.ErrCycleInProgress) {
			log.WithError(err).Error("Manual cycle failed")
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func queryLimit(r *http.Request, def, max int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.WithError(err).Error("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
