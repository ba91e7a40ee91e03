package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"ForexLens/internal/model"
	"ForexLens/internal/snapshot"
)

// Server exposes the latest snapshot as a read-only JSON API.
type Server struct {
	store  *snapshot.Store
	router *gin.Engine
	logger zerolog.Logger
}

// New builds the router. metricsHandler is mounted at /metrics when non-nil.
func New(store *snapshot.Store, metricsHandler http.Handler) *Server {
	s := &Server{
		store:  store,
		router: gin.New(),
		logger: log.With().Str("component", "server").Logger(),
	}
	s.router.Use(gin.Recovery(), s.requestLogger())

	s.router.GET("/health", s.health)
	if metricsHandler != nil {
		s.router.GET("/metrics", gin.WrapH(metricsHandler))
	}

	api := s.router.Group("/api/v1")
	{
		api.GET("/summary", s.summary)
		api.GET("/analyses", s.analyses)
		api.GET("/analyses/:pair", s.analysis)
		api.GET("/correlations", s.correlations)
		api.GET("/arbitrage", s.arbitrage)
		api.GET("/monitor", s.monitor)
	}
	return s
}

// Handler returns the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("status API listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

func (s *Server) health(c *gin.Context) {
	resp := gin.H{"status": "ok"}
	if r, ok := s.store.Report(); ok {
		resp["last_report"] = r.GeneratedAt
	}
	if m, ok := s.store.Monitor(); ok {
		resp["last_monitor"] = m.At
	}
	c.JSON(http.StatusOK, resp)
}

// latest writes 503 and returns false when no report has been published yet.
func (s *Server) latest(c *gin.Context) (snapshot.Report, bool) {
	r, ok := s.store.Report()
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no report yet"})
	}
	return r, ok
}

func (s *Server) summary(c *gin.Context) {
	r, ok := s.latest(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"run_id":    r.RunID,
		"summary":   r.Summary,
		"recent":    r.Recent,
		"missing":   r.Missing,
		"reference": r.Reference,
	})
}

func (s *Server) analyses(c *gin.Context) {
	r, ok := s.latest(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, r.Analyses)
}

func (s *Server) analysis(c *gin.Context) {
	pair, err := model.ParsePair(c.Param("pair"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, ok := s.latest(c); !ok {
		return
	}
	a, ok := s.store.Analysis(pair)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no analysis for " + pair.String()})
		return
	}
	c.JSON(http.StatusOK, a)
}

func (s *Server) correlations(c *gin.Context) {
	r, ok := s.latest(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"rolling": r.Correlations,
		"matrix":  r.Matrix,
	})
}

func (s *Server) arbitrage(c *gin.Context) {
	resp := gin.H{"batch": []model.ArbitrageOpportunity{}, "realtime": []model.ArbitrageOpportunity{}}
	if r, ok := s.store.Report(); ok && r.Arbitrage != nil {
		resp["batch"] = r.Arbitrage
	}
	if m, ok := s.store.Monitor(); ok && m.Arbitrage != nil {
		resp["realtime"] = m.Arbitrage
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) monitor(c *gin.Context) {
	m, ok := s.store.Monitor()
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no monitor tick yet"})
		return
	}
	c.JSON(http.StatusOK, m)
}
