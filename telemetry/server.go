package telemetry

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
)

// Server exposes a Counters snapshot over HTTP while a simulation is
// running, for the same "watch a long run" use case the teacher's
// akita-derived monitoring package serves (spec.md §2 ambient stack).
type Server struct {
	counters *Counters
	http     *http.Server
}

// NewServer builds (without starting) a Server backed by counters.
func NewServer(addr string, counters *Counters) *Server {
	r := mux.NewRouter()
	s := &Server{counters: counters}
	r.HandleFunc("/counters", s.handleCounters).Methods(http.MethodGet)
	s.http = &http.Server{Addr: addr, Handler: r}
	return s
}

func (s *Server) handleCounters(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.counters.Snapshot())
}

// Serve starts the HTTP server in a background goroutine. Call
// Shutdown(ctx) to stop it.
func (s *Server) Serve() {
	go func() {
		_ = s.http.ListenAndServe()
	}()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.http.Close()
}
