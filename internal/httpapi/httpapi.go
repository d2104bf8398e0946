// Package httpapi exposes the hybrid search engine, benchmark harness, and
// health status over a gin-based HTTP/REST gateway, as an alternative
// transport to the stdio MCP server for callers that speak plain HTTP.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/moabualruz/ricegrep/internal/admission"
	"github.com/moabualruz/ricegrep/internal/bench"
	"github.com/moabualruz/ricegrep/internal/search"
)

// Server wraps a gin.Engine configured with the ricegrep routes.
type Server struct {
	engine *gin.Engine
	search search.SearchEngine
	gate   *admission.Gate
	log    *slog.Logger
}

// Config configures the HTTP gateway.
type Config struct {
	SearchEngine search.SearchEngine
	Gate         *admission.Gate // nil disables admission checks (local/offline mode)
	Logger       *slog.Logger
	Debug        bool
}

// NewServer builds a Server with the standard middleware chain: panic
// recovery, request logging, and permissive CORS for local tooling.
func NewServer(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(cfg.Logger), allowCORS)

	s := &Server{engine: engine, search: cfg.SearchEngine, gate: cfg.Gate, log: cfg.Logger}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for use with http.Server or
// httptest.
func (s *Server) Handler() http.Handler { return s.engine }

// Run starts listening on addr, blocking until the server exits.
func (s *Server) Run(addr string) error {
	return s.engine.Run(addr)
}

func (s *Server) registerRoutes() {
	s.engine.GET("/health", s.handleHealth)
	s.engine.POST("/search", s.withAdmission(s.handleSearch))
	s.engine.POST("/benchmark", s.withAdmission(s.handleBenchmarkLoad))
	s.engine.POST("/benchmark/suite", s.withAdmission(s.handleBenchmarkSuite))
}

// withAdmission wraps a handler with authentication + rate limiting when a
// Gate is configured; it is a no-op passthrough otherwise.
func (s *Server) withAdmission(next gin.HandlerFunc) gin.HandlerFunc {
	if s.gate == nil {
		return next
	}
	return func(c *gin.Context) {
		credential := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if _, err := s.gate.Admit(c.Request.Context(), credential); err != nil {
			writeHandlerError(c, err)
			return
		}
		next(c)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	status := "ok"
	if s.search == nil {
		status = "degraded"
	}
	c.JSON(http.StatusOK, gin.H{"status": status, "time": time.Now().UTC()})
}

// searchRequest mirrors the gateway's SearchRequest wire shape.
type searchRequest struct {
	Query    string   `json:"query" binding:"required"`
	Limit    int      `json:"limit"`
	Filter   string   `json:"filter"`
	Language string   `json:"language"`
	Scopes   []string `json:"scopes"`
	BM25Only bool     `json:"bm25_only"`
}

func (s *Server) handleSearch(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeValidationError(c, err.Error())
		return
	}
	if req.Limit <= 0 {
		req.Limit = 10
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	results, err := s.search.Search(ctx, req.Query, search.SearchOptions{
		Limit:    req.Limit,
		Filter:   req.Filter,
		Language: req.Language,
		Scopes:   req.Scopes,
		BM25Only: req.BM25Only,
	})
	if err != nil {
		writeQueryError(c, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"query": req.Query, "results": results})
}

type benchmarkLoadRequest struct {
	Queries      []string `json:"queries" binding:"required"`
	Workers      int      `json:"workers"`
	DurationSecs int      `json:"duration_secs"`
	Limit        int      `json:"limit"`
}

func (s *Server) handleBenchmarkLoad(c *gin.Context) {
	var req benchmarkLoadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeValidationError(c, err.Error())
		return
	}
	if req.Workers <= 0 {
		req.Workers = 4
	}
	if req.DurationSecs <= 0 {
		req.DurationSecs = 10
	}
	if req.Limit <= 0 {
		req.Limit = 10
	}

	report, err := bench.RunLoad(c.Request.Context(), s.search, bench.LoadConfig{
		Workers:  req.Workers,
		Duration: time.Duration(req.DurationSecs) * time.Second,
		Queries:  req.Queries,
		Limit:    req.Limit,
	})
	if err != nil {
		writeQueryError(c, err.Error())
		return
	}

	alerts := bench.NewAlertManager().EvaluateLoad(report)
	c.JSON(http.StatusOK, gin.H{"report": report, "alerts": alerts})
}

type benchmarkSuiteRequest struct {
	Cases []bench.GroundTruthCase `json:"cases" binding:"required"`
	Limit int                     `json:"limit"`
}

func (s *Server) handleBenchmarkSuite(c *gin.Context) {
	var req benchmarkSuiteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeValidationError(c, err.Error())
		return
	}
	if req.Limit <= 0 {
		req.Limit = 10
	}

	report, err := bench.RunSuite(c.Request.Context(), s.search, req.Cases, req.Limit)
	if err != nil {
		writeQueryError(c, err.Error())
		return
	}

	alerts := bench.NewAlertManager().EvaluateSuite(report)
	c.JSON(http.StatusOK, gin.H{"report": report, "alerts": alerts})
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("latency", time.Since(start)))
	}
}

// allowCORS permits any localhost-style origin plus "*" for tooling that
// doesn't send an Origin header, matching the gateway's intended use as a
// local companion process rather than a public API.
func allowCORS(c *gin.Context) {
	origin := c.Request.Header.Get("Origin")
	if origin == "" {
		c.Next()
		return
	}

	c.Header("Access-Control-Allow-Origin", origin)
	c.Header("Access-Control-Allow-Headers", "*")
	c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	c.Header("Vary", "Origin")

	if c.Request.Method == http.MethodOptions {
		c.AbortWithStatus(http.StatusNoContent)
		return
	}
	c.Next()
}
