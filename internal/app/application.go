package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"focushub/internal/api"
	"focushub/internal/config"
	"focushub/internal/hub"
	"focushub/internal/room"
	"focushub/internal/router"
	"focushub/internal/session"
	"focushub/internal/websocket"
)

// Application wires every component together. Initialization order
// follows the dependency chain: rooms and sessions first, then the
// transport registry, router, hub, and finally the HTTP surfaces.
type Application struct {
	config      *config.Config
	rooms       *room.Registry
	sessions    *session.Manager
	registry    *websocket.Registry
	eventRouter *router.Router
	eventHub    *hub.Hub
	apiServer   *api.Server
	httpServer  *http.Server
}

func NewApplication(cfg *config.Config) (*Application, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	rooms := room.NewRegistry(room.Settings{
		BaseRatePerSecond:    cfg.Session.BaseRatePerSecond,
		PenaltyPerDistracted: cfg.Session.PenaltyPerDistracted,
	})
	sessions := session.NewManager()
	registry := websocket.NewRegistry()

	eventRouter := router.NewRouter(rooms, sessions, registry, cfg.Session)
	eventHub := hub.NewHub(eventRouter, cfg.Session.MetricsInterval)

	// Countdown expirations flow through the hub so the router only ever
	// runs on the hub goroutine.
	rooms.SetTimerExpireFunc(eventHub.TimerExpired)

	apiServer := api.NewServer(rooms, sessions, registry)
	wsHandler := websocket.NewHandler(registry, eventHub,
		cfg.WebSocket.PingInterval, cfg.WebSocket.ReadTimeout, cfg.WebSocket.BufferSize)

	// The API server routes /health and / on its own mux; a single
	// catch-all mount avoids routing the same paths twice.
	mux := http.NewServeMux()
	mux.Handle("/", apiServer)
	mux.HandleFunc("/ws", wsHandler.HandleWebSocket)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      mux,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	return &Application{
		config:      cfg,
		rooms:       rooms,
		sessions:    sessions,
		registry:    registry,
		eventRouter: eventRouter,
		eventHub:    eventHub,
		apiServer:   apiServer,
		httpServer:  httpServer,
	}, nil
}

// Start launches the hub, then the HTTP server. The hub must be running
// before the first websocket frame can arrive.
func (app *Application) Start(ctx context.Context) error {
	log.Printf("Starting focushub on %s", app.httpServer.Addr)

	if err := app.eventHub.Start(ctx); err != nil {
		return fmt.Errorf("failed to start hub: %w", err)
	}

	serverErrCh := make(chan error, 1)
	go func() {
		if err := app.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	select {
	case err := <-serverErrCh:
		app.eventHub.Stop()
		return err
	case <-time.After(100 * time.Millisecond):
		log.Printf("focushub started")
		return nil
	case <-ctx.Done():
		app.eventHub.Stop()
		return ctx.Err()
	}
}

// Stop shuts down in reverse order: HTTP first so no new connections
// arrive, then the hub, then pending room timers.
func (app *Application) Stop(ctx context.Context) error {
	log.Printf("Shutting down focushub")

	if err := app.httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	if err := app.eventHub.Stop(); err != nil {
		log.Printf("Hub shutdown error: %v", err)
	}
	for _, rm := range app.rooms.Rooms() {
		app.rooms.Delete(rm.Code())
	}

	log.Printf("focushub shutdown complete")
	return nil
}

// Addr returns the server address.
func (app *Application) Addr() string {
	return app.httpServer.Addr
}
