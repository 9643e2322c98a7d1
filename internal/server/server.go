// Package server exposes the assistant over HTTP: chat turns, direct risk
// assessment, case listings, and session management.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/guardline/guardline/config"
	"github.com/guardline/guardline/internal/agent/core"
	"github.com/guardline/guardline/internal/agent/oracle"
	"github.com/guardline/guardline/internal/agent/telemetry"
	"github.com/guardline/guardline/internal/assessment"
	"github.com/guardline/guardline/internal/store"
	"github.com/guardline/guardline/session"
	"github.com/guardline/guardline/session/inmemory"
	"github.com/guardline/guardline/session/redisstore"
)

// Server wires the orchestrator behind an HTTP API.
type Server struct {
	cfg      *config.Config
	orch     *core.Orchestrator
	sessions session.Store
	cases    store.CaseStore
	logger   *log.Logger
}

// Run boots the whole service: config is already validated, so any failure
// here is a wiring or connectivity problem.
func Run(cfg *config.Config, addr string) error {
	ctx := context.Background()
	logger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)

	sessions, err := buildSessionStore(ctx, cfg)
	if err != nil {
		return err
	}

	deps, err := core.NewDependencies(ctx, cfg, log.New(log.Writer(), "[DEPS] ", log.LstdFlags))
	if err != nil {
		return err
	}
	registry, err := core.BuildRegistry(cfg, deps)
	if err != nil {
		return err
	}
	tele := telemetry.NewTelemetry(cfg.Telemetry)
	orchLogger := log.New(log.Writer(), "[ORCH] ", log.LstdFlags)
	orch := core.NewOrchestrator(cfg, orchLogger, tele, registry, oracle.NewClient(cfg.Oracle), sessions)

	srv := &Server{cfg: cfg, orch: orch, sessions: sessions, cases: deps.Cases, logger: logger}

	e := srv.buildEcho()
	if addr == "" {
		addr = cfg.Server.Address
	}
	logger.Printf("listening on %s", addr)
	return e.Start(addr)
}

func buildSessionStore(ctx context.Context, cfg *config.Config) (session.Store, error) {
	storeType, err := session.ParseStoreType(cfg.Session.Store)
	if err != nil {
		return nil, err
	}
	switch storeType {
	case session.RedisStore:
		client, err := redisstore.Conn(ctx,
			cfg.Storage.Redis.Host,
			cfg.Storage.Redis.Port,
			cfg.Storage.Redis.Password,
			cfg.Storage.Redis.DB,
			cfg.Storage.Redis.Timeout,
		)
		if err != nil {
			return nil, fmt.Errorf("redis connection failed (%s:%s): %w", cfg.Storage.Redis.Host, cfg.Storage.Redis.Port, err)
		}
		return redisstore.NewStore(client), nil
	default:
		return inmemory.NewStore(), nil
	}
}

func (s *Server) buildEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.HTTPErrorHandler = s.errorHandler
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	if s.cfg.Telemetry.Enabled {
		e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	}

	api := e.Group("/api")
	api.POST("/chat", s.handleChat)
	api.POST("/assess", s.handleAssess)
	api.GET("/capabilities", s.handleCapabilities)
	api.GET("/sessions/:id/cases", s.handleSessionCases)
	api.DELETE("/sessions/:id", s.handleClearSession)

	return e
}

// errorHandler maps domain errors to status codes and renders a uniform
// JSON error body.
func (s *Server) errorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	msg := err.Error()
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		code = he.Code
		if he.Message != nil {
			msg = fmt.Sprint(he.Message)
		}
	case errors.Is(err, session.ErrBusy):
		code = http.StatusConflict
	case errors.Is(err, core.ErrEmptyMessage), errors.Is(err, assessment.ErrInvalidInput):
		code = http.StatusBadRequest
	}
	req := c.Request()
	s.logger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
	if !c.Response().Committed {
		_ = c.JSON(code, map[string]any{"error": msg})
	}
}
