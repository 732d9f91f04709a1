package api

import (
	"encoding/json"
	"net/http"
	"time"
)

const serviceVersion = "1.0.0"

// RoomCounter exposes the room registry occupancy the health endpoint
// reports.
type RoomCounter interface {
	Count() int
}

// SessionCounter exposes the number of bound connections.
type SessionCounter interface {
	Count() int
}

// ConnectionStats exposes transport-level statistics.
type ConnectionStats interface {
	Stats() map[string]int
}

// Server is the HTTP surface next to the websocket endpoint: a health
// check and a service info page. No room mutation happens here.
type Server struct {
	rooms       RoomCounter
	sessions    SessionCounter
	connections ConnectionStats
	router      *http.ServeMux
	startedAt   time.Time
}

// NewServer creates the HTTP API server.
func NewServer(rooms RoomCounter, sessions SessionCounter, connections ConnectionStats) *Server {
	s := &Server{
		rooms:       rooms,
		sessions:    sessions,
		connections: connections,
		router:      http.NewServeMux(),
		startedAt:   time.Now(),
	}

	s.router.Handle("/health", s.corsMiddleware(s.jsonMiddleware(http.HandlerFunc(s.healthCheck))))
	s.router.Handle("/", s.corsMiddleware(s.jsonMiddleware(http.HandlerFunc(s.serviceInfo))))
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type HealthResponse struct {
	Status      string         `json:"status"`
	Timestamp   time.Time      `json:"timestamp"`
	Uptime      string         `json:"uptime"`
	Rooms       int            `json:"rooms"`
	Sessions    int            `json:"sessions"`
	Connections map[string]int `json:"connections"`
}

type InfoResponse struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// GET /health
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := HealthResponse{
		Status:      "healthy",
		Timestamp:   time.Now(),
		Uptime:      time.Since(s.startedAt).Round(time.Second).String(),
		Rooms:       s.rooms.Count(),
		Sessions:    s.sessions.Count(),
		Connections: s.connections.Stats(),
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// GET /
func (s *Server) serviceInfo(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		s.sendError(w, "Not found", http.StatusNotFound)
		return
	}
	if r.Method != http.MethodGet {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	json.NewEncoder(w).Encode(InfoResponse{
		Service: "focushub",
		Version: serviceVersion,
		Message: "Focus session coordination server",
	})
}

func (s *Server) sendError(w http.ResponseWriter, message string, code int) {
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   http.StatusText(code),
		Code:    code,
		Message: message,
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}
