// Package server exposes the orchestration engine, the agent registry,
// and the prompt registry over an HTTP API.
//
// All routes live under /api/v1. Task processing is asynchronous from
// the API's perspective: request_action initializes a task and runs one
// pipeline pass, post_event feeds an agent's follow-up event into the
// next pass, and task_status reads the resulting state.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/meshworks/taskmesh/logging"
	"github.com/meshworks/taskmesh/orchestrator"
	"github.com/meshworks/taskmesh/prompts"
	"github.com/meshworks/taskmesh/ratelimit"
	"github.com/meshworks/taskmesh/registry"
)

// LimitResourceAPI names the rate limiter resource covering inbound
// API requests.
const LimitResourceAPI = "api"

// Version reported by the status endpoint.
const Version = "0.1.0"

// Config holds the HTTP server settings.
type Config struct {
	// ListenAddr is the address to bind, e.g. ":8000".
	ListenAddr string

	// ReadTimeout and WriteTimeout bound one request round trip.
	// Zero values default to 15s.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Logger for request and lifecycle logging. Nil uses the default.
	Logger *logging.Logger

	// Limiter, when set, throttles inbound requests against the
	// LimitResourceAPI resource. Unlimited when nil or when the
	// resource has no configured capacity.
	Limiter ratelimit.Limiter
}

// Server serves the orchestration API.
type Server struct {
	engine   *orchestrator.Engine
	registry registry.Registry
	prompts  *prompts.Registry
	log      *logging.Logger
	limiter  ratelimit.Limiter
	started  time.Time

	router *gin.Engine
	http   *http.Server
}

// New wires the API around an engine, its registry, and a prompt
// registry.
func New(engine *orchestrator.Engine, reg registry.Registry, promptReg *prompts.Registry, cfg Config) *Server {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8000"
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 15 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 15 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default().WithComponent("server")
	}
	if promptReg == nil {
		promptReg = prompts.NewRegistry()
	}

	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		engine:   engine,
		registry: reg,
		prompts:  promptReg,
		log:      cfg.Logger,
		limiter:  cfg.Limiter,
		started:  time.Now(),
	}

	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())
	if s.limiter != nil {
		router.Use(s.rateLimit())
	}

	api := router.Group("/api/v1")
	{
		api.GET("/status", s.getStatus)
		api.POST("/register_agent", s.registerAgent)
		api.GET("/discover_agents", s.discoverAgents)
		api.POST("/request_action", s.requestAction)
		api.POST("/execute_agent", s.executeAgent)
		api.POST("/execute_tool_on_agent", s.executeToolOnAgent)
		api.POST("/post_event", s.postEvent)
		api.GET("/task_status/:task_id", s.getTaskStatus)
		api.GET("/tasks", s.listTasks)
		api.POST("/register_prompt", s.registerPrompt)
		api.GET("/prompts", s.listPrompts)
		api.POST("/resolve_prompt", s.resolvePrompt)
	}

	s.router = router
	s.http = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Start blocks serving requests until Shutdown or a listener error.
func (s *Server) Start() error {
	s.log.Info("server listening", map[string]interface{}{
		"addr": s.http.Addr, "version": Version,
	})
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("server shutting down", nil)
	return s.http.Shutdown(ctx)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		s.log.HTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}

// rateLimit rejects requests once the api resource runs out of tokens.
// A resource with no configured capacity never limits.
func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter.Snapshot(LimitResourceAPI) == nil {
			c.Next()
			return
		}
		if !s.limiter.TryAcquire(LimitResourceAPI) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"detail": "rate limit exceeded, retry later",
			})
			return
		}
		c.Next()
	}
}
