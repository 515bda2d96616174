// Admin HTTP server exposing the engine's command boundary as JSON
package admin

import (
	"context"
	"encoding/json"
	"net/http"

	"tollsim/internal/sim"
)

// Server exposes engine state queries and commands over HTTP. Rendering is
// left to external dashboards; every response is JSON.
type Server struct {
	Engine *sim.Engine
}

// NewServer creates an admin server around the engine.
func NewServer(engine *sim.Engine) *Server {
	return &Server{Engine: engine}
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /state", s.handleState)
	mux.HandleFunc("GET /snapshot", s.handleSnapshot)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /toll", s.handleToll)
	mux.HandleFunc("POST /scenario", s.handleScenario)
	mux.HandleFunc("POST /reset", s.handleReset)
	return mux
}

// Start serves until the context is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.routes()}
	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()
	return srv.ListenAndServe()
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Engine.CurrentState())
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.Engine.LastSnapshot()
	if !ok {
		http.Error(w, "no snapshot yet", http.StatusNotFound)
		return
	}
	writeJSON(w, snap)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status":          "ok",
		"scenario":        s.Engine.Scenario(),
		"toll_price":      s.Engine.TollPrice(),
		"active_vehicles": s.Engine.ActiveVehicles(),
	})
}

func (s *Server) handleToll(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Price float64 `json:"price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	applied := s.Engine.UpdateTollPrice(req.Price)
	writeJSON(w, map[string]float64{"proposed": req.Price, "applied": applied})
}

func (s *Server) handleScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if err := s.Engine.SetScenario(req.Name); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]string{"scenario": req.Name})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.Engine.Reset()
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
