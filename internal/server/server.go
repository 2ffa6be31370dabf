package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"papertrader/internal/alerts"
	"papertrader/internal/engine"
	"papertrader/internal/logger"
	"papertrader/internal/portfolio"
)

const maxTradeQuery = 100

// Server — тонкая панель управления: статус, портфель, журнал сделок,
// оповещения, переключатель и websocket-подписка на состояние.
type Server struct {
	engine  *engine.Engine
	ledger  *portfolio.Ledger
	alerts  *alerts.Sink
	log     *logger.Logger
	rootCtx context.Context
	http    *http.Server
}

func New(ctx context.Context, addr string, eng *engine.Engine, ledger *portfolio.Ledger, sink *alerts.Sink, log *logger.Logger) *Server {
	s := &Server{
		engine:  eng,
		ledger:  ledger,
		alerts:  sink,
		log:     log,
		rootCtx: ctx,
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	api := router.Group("/api")
	api.GET("/status", s.status)
	api.GET("/portfolio", s.portfolio)
	api.GET("/trades", s.trades)
	api.GET("/alerts", s.recentAlerts)
	api.POST("/toggle", s.toggle)
	router.GET("/ws", s.websocket)

	s.http = &http.Server{
		Addr:    addr,
		Handler: router,
	}
	return s
}

func (s *Server) Run() error {
	s.log.WithComponent("server").WithField("addr", s.http.Addr).Info("Панель управления слушает.")
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"running":  s.engine.Running(),
		"drawdown": s.ledger.Drawdown(),
	})
}

func (s *Server) portfolio(c *gin.Context) {
	c.JSON(http.StatusOK, s.ledger.View())
}

func (s *Server) trades(c *gin.Context) {
	limit := maxTradeQuery
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "некорректный limit"})
			return
		}
		if parsed < limit {
			limit = parsed
		}
	}
	c.JSON(http.StatusOK, s.ledger.RecentTrades(limit))
}

func (s *Server) recentAlerts(c *gin.Context) {
	c.JSON(http.StatusOK, s.alerts.Recent(100))
}

func (s *Server) toggle(c *gin.Context) {
	s.engine.Toggle(s.rootCtx)
	c.JSON(http.StatusOK, gin.H{"running": s.engine.Running()})
}
