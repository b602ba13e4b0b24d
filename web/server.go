// Package web exposes a read-only HTTP dashboard over the running
// strategies: current positions, trade history, aggregate performance
// and Prometheus metrics. It never mutates strategy state.
package web

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/volatiq/gotdi/logger"
	"github.com/volatiq/gotdi/strategy"
)

// Server serves the dashboard API for a fixed set of strategies.
type Server struct {
	strategies map[string]*strategy.TDIStrategy
	log        logger.Logger
	engine     *gin.Engine
}

// NewServer wires the routes for the given strategies, keyed by symbol.
func NewServer(strategies map[string]*strategy.TDIStrategy, log logger.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{strategies: strategies, log: log, engine: engine}

	engine.GET("/health", s.health)
	engine.GET("/status", s.status)
	engine.GET("/positions", s.positions)
	engine.GET("/trades", s.trades)
	engine.GET("/stats", s.stats)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return s
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler { return s.engine }

// Run blocks serving HTTP on addr.
func (s *Server) Run(addr string) error {
	s.log.Info("dashboard_listening", logger.String("addr", addr))
	return s.engine.Run(addr)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "OK",
		"service":   "gotdi",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// status summarises every strategy in one payload.
func (s *Server) status(c *gin.Context) {
	out := make(map[string]gin.H, len(s.strategies))
	for symbol, st := range s.strategies {
		pos := st.CurrentPosition()
		out[symbol] = gin.H{
			"in_position": pos != nil,
			"position":    pos,
			"stats":       st.PerformanceStats(),
		}
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) positions(c *gin.Context) {
	out := make(map[string]any, len(s.strategies))
	for symbol, st := range s.strategies {
		out[symbol] = st.CurrentPosition()
	}
	c.JSON(http.StatusOK, out)
}

// trades returns the closed-trade log, optionally filtered by ?symbol=.
func (s *Server) trades(c *gin.Context) {
	symbol := c.Query("symbol")
	if symbol != "" {
		st, ok := s.strategies[symbol]
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown symbol " + symbol})
			return
		}
		c.JSON(http.StatusOK, st.TradeHistory())
		return
	}
	out := make(map[string]any, len(s.strategies))
	for sym, st := range s.strategies {
		out[sym] = st.TradeHistory()
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) stats(c *gin.Context) {
	out := make(map[string]any, len(s.strategies))
	for symbol, st := range s.strategies {
		out[symbol] = st.PerformanceStats()
	}
	c.JSON(http.StatusOK, out)
}
