package server

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ahfrd/grpc-stream-client-side/src/analysis"
	"github.com/ahfrd/grpc-stream-client-side/src/helpers"
	"github.com/ahfrd/grpc-stream-client-side/src/interfaces"
	"github.com/ahfrd/grpc-stream-client-side/src/logger"
	"github.com/ahfrd/grpc-stream-client-side/src/metrics"
	"github.com/ahfrd/grpc-stream-client-side/src/models"
	"github.com/ahfrd/grpc-stream-client-side/src/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// -----------------------------------------------------------------------------
// FastAPIServer
// -----------------------------------------------------------------------------

type FastAPIServer struct {
	Config     *models.MConfig
	Logger     *logger.Logger
	Controller interfaces.ISubscriptionController
	DB         interfaces.IDatabase
	Metrics    *metrics.Metrics
	Calendar   *utils.TradingCalendar
	engine     *gin.Engine

	// WebSocket clients
	clients     map[*Client]struct{}
	clientCount atomic.Int64
	broadcast   chan *models.MLatestData // Strongly typed and Buffered Queue
	register    chan *Client
	unregister  chan *Client
	done        chan struct{}
	stopOnce    sync.Once

	// Local cache
	latestState *models.MLatestData
	stateMutex  sync.RWMutex
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewFastAPIServer(
	cfg *models.MConfig,
	ctrl interfaces.ISubscriptionController,
	db interfaces.IDatabase,
	m *metrics.Metrics,
	cal *utils.TradingCalendar,
	log *logger.Logger,
) *FastAPIServer {
	// Set Gin mode
	if strings.ToLower(cfg.LogLevel) != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &FastAPIServer{
		Config:     cfg,
		Logger:     log,
		Controller: ctrl,
		DB:         db,
		Metrics:    m,
		Calendar:   cal,
		engine:     gin.Default(),
		clients:    make(map[*Client]struct{}),
		// Buffered channel to prevent lock/blocking
		// Queue size of 256 ensures we can handle bursts of updates
		broadcast:  make(chan *models.MLatestData, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		latestState: &models.MLatestData{
			Type:        "INITIAL",
			Instruments: []models.MInstrument{},
			Timestamp:   0,
		},
	}

	// Add CORS Middleware
	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Count API requests after the handler ran
	s.engine.Use(func(c *gin.Context) {
		c.Next()
		s.Metrics.RecordHTTPRequest(c.Request.Method, c.FullPath(), strconv.Itoa(c.Writer.Status()))
	})

	// setup web routes
	s.setupRoutes()
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *FastAPIServer) setupRoutes() {
	// REST API endpoints
	s.engine.GET("/api/health", s.getHealth)
	s.engine.GET("/api/state", s.getState)
	s.engine.GET("/api/instruments", s.getInstruments)
	s.engine.GET("/api/summary", s.getSummary)
	s.engine.GET("/api/summary/history", s.getSummaryHistory)
	s.engine.GET("/api/config", s.getConfig)
	s.engine.GET("/api/history/sessions", s.getSessionHistory)
	s.engine.GET("/api/history/batches", s.getBatchHistory)

	// Lifecycle control endpoints
	s.engine.POST("/api/connect", s.postConnect)
	s.engine.POST("/api/disconnect", s.postDisconnect)
	s.engine.POST("/api/parameters", s.postParameters)

	// Prometheus endpoint
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// WebSocket endpoint
	s.engine.GET("/ws", s.handleWebSocket)
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

func (s *FastAPIServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	s.Logger.Info("Starting server on %s", addr)

	go s.handleWebsockets()

	return s.engine.Run(addr)
}

// -----------------------------------------------------------------------------

// Stop ends the Hub loop and drops every observer. The HTTP listener itself
// goes down with the process.
func (s *FastAPIServer) Stop() error {
	s.stopOnce.Do(func() { close(s.done) })
	return nil
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *FastAPIServer) getHealth(c *gin.Context) {
	s.stateMutex.RLock()
	timestamp := s.latestState.Timestamp
	s.stateMutex.RUnlock()

	marketOpen := false
	if s.Calendar != nil {
		marketOpen = s.Calendar.IsOpenOnMinute(time.Now())
	}

	c.JSON(200, gin.H{
		"status":        "ok",
		"connections":   s.clientCount.Load(),
		"latest_update": timestamp,
		"market_open":   marketOpen,
	})
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getState(c *gin.Context) {
	c.JSON(200, s.Controller.State())
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getInstruments(c *gin.Context) {
	snap := s.Controller.Snapshot()

	c.JSON(200, gin.H{
		"params":      snap.Params,
		"instruments": snap.Instruments,
		"count":       len(snap.Instruments),
		"last_update": snap.State.LastUpdate,
	})
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getSummary(c *gin.Context) {
	snap := s.Controller.Snapshot()
	gainers, losers := analysis.TopMovers(snap.Instruments, 5)

	marketOpen := false
	if s.Calendar != nil {
		marketOpen = s.Calendar.IsOpenOnMinute(time.Now())
	}

	c.JSON(200, gin.H{
		"summary":     snap.Summary,
		"gainers":     gainers,
		"losers":      losers,
		"market_open": marketOpen,
		"timestamp":   snap.Timestamp,
	})
}

// -----------------------------------------------------------------------------

// getSummaryHistory serves the retained breadth points plus cadence
// statistics derived from them.
func (s *FastAPIServer) getSummaryHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	points := s.Controller.History(limit)
	cadence := analysis.ComputeCadence(points)

	c.JSON(200, gin.H{
		"points":  points,
		"count":   len(points),
		"cadence": cadence,
	})
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getConfig(c *gin.Context) {
	snap := s.Controller.Snapshot()

	c.JSON(200, gin.H{
		"params":      snap.Params,
		"filters":     models.KnownFilters(),
		"sort_keys":   models.KnownSortKeys(),
		"debounce_ms": s.Config.Subscription.DebounceMillis,
	})
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getSessionHistory(c *gin.Context) {
	if s.DB == nil {
		c.JSON(503, gin.H{"error": "history store disabled"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	records, err := s.DB.RecentSessions(limit)
	if err != nil {
		s.Logger.Error("Failed to read session history: %v", err)
		c.JSON(500, gin.H{"error": "failed to read session history"})
		return
	}

	c.JSON(200, gin.H{"sessions": records, "count": len(records)})
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getBatchHistory(c *gin.Context) {
	if s.DB == nil {
		c.JSON(503, gin.H{"error": "history store disabled"})
		return
	}

	sessionID := c.Query("session_id")
	if sessionID == "" {
		c.JSON(400, gin.H{"error": "session_id is required"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	entries, err := s.DB.RecentBatches(sessionID, limit)
	if err != nil {
		s.Logger.Error("Failed to read batch history: %v", err)
		c.JSON(500, gin.H{"error": "failed to read batch history"})
		return
	}

	c.JSON(200, gin.H{"session_id": sessionID, "batches": entries, "count": len(entries)})
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) postConnect(c *gin.Context) {
	if err := s.Controller.Connect(); err != nil {
		var transportErr *helpers.TransportError
		if errors.As(err, &transportErr) {
			c.JSON(503, gin.H{"error": err.Error()})
			return
		}
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}

	c.JSON(202, gin.H{"status": "connecting"})
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) postDisconnect(c *gin.Context) {
	s.Controller.Disconnect()
	c.JSON(202, gin.H{"status": "disconnecting"})
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) postParameters(c *gin.Context) {
	var params models.MSubscriptionParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(400, gin.H{"error": "invalid request body"})
		return
	}

	if err := s.Controller.SetParameters(params); err != nil {
		var validationErr *helpers.ValidationError
		if errors.As(err, &validationErr) {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}

	c.JSON(202, gin.H{"status": "accepted", "params": params})
}
