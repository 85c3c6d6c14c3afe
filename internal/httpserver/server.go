package httpserver

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Integration is an optional upstream (payments, vendor) whose credentials may
// be missing without taking the storefront down.
type Integration interface {
	Configured() bool
}

// Server owns the HTTP listener for the store API.
type Server struct {
	httpServer *http.Server
	logger     *log.Logger
}

// New builds a Server with all store routes.
func New(addr string, logger *log.Logger, db *pgxpool.Pool, deps Deps) (*Server, error) {
	router, err := buildRouter(logger, db, deps)
	if err != nil {
		return nil, err
	}
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			// checkout waits on the payment provider before answering
			WriteTimeout: 45 * time.Second,
			IdleTimeout:  2 * time.Minute,
			ErrorLog:     logger,
		},
		logger: logger,
	}, nil
}

// ListenAndServe binds the configured address and serves until Shutdown.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln. It returns nil after a clean Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Printf("http: listening addr=%s", ln.Addr())
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight checkouts and
// webhook deliveries until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Printf("http: draining connections")
	return s.httpServer.Shutdown(ctx)
}

func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// readyHandler fails only when the order store is unreachable. Integrations
// are reported so operators can see that checkout or fulfillment is disabled.
func readyHandler(db *pgxpool.Pool, integrations map[string]Integration) gin.HandlerFunc {
	names := make([]string, 0, len(integrations))
	for name := range integrations {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(c *gin.Context) {
		report := gin.H{}
		for _, name := range names {
			state := "disabled"
			if integrations[name] != nil && integrations[name].Configured() {
				state = "configured"
			}
			report[name] = state
		}

		if db == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "reason": "db not configured", "integrations": report})
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "reason": "db not reachable", "integrations": report})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "integrations": report})
	}
}
