package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"weather-observer/src/helpers"
	"weather-observer/src/interfaces"
	"weather-observer/src/logger"
	"weather-observer/src/models"
	"weather-observer/src/storage"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------
// WeatherServer
//
// A thin REST and websocket surface over the storage backend. Frontends call
// the same capability contract the CLI does; websocket clients get an event
// whenever histories are stored.
// -----------------------------------------------------------------------------

type WeatherServer struct {
	Config  *models.MConfig
	Logger  *logger.Logger
	backend interfaces.IBackend
	engine  *gin.Engine

	// WebSocket clients; the map belongs to the hub goroutine, the counter
	// is safe to read from handlers
	clients     map[*Client]struct{}
	connections atomic.Int64
	broadcast   chan *models.MHistoryEvent
	register    chan *Client
	unregister  chan *Client
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewWeatherServer(cfg *models.MConfig, backend interfaces.IBackend, logger *logger.Logger) *WeatherServer {
	// Set Gin mode
	if cfg.LogLevel != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &WeatherServer{
		Config:  cfg,
		Logger:  logger,
		backend: backend,
		engine:  gin.Default(),
		clients: make(map[*Client]struct{}),
		// Buffered channel so a burst of stores does not block the handlers
		broadcast:  make(chan *models.MHistoryEvent, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}

	s.setupRoutes()
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *WeatherServer) setupRoutes() {
	// REST API endpoints
	s.engine.GET("/api/health", s.getHealth)
	s.engine.GET("/api/locations", s.getLocations)
	s.engine.GET("/api/summaries", s.getSummaries)
	s.engine.GET("/api/history-dates", s.getHistoryDates)
	s.engine.GET("/api/histories", s.getHistories)
	s.engine.GET("/api/search", s.searchLocations)
	s.engine.GET("/api/states", s.getStates)
	s.engine.POST("/api/locations", s.postLocation)
	s.engine.POST("/api/histories", s.postHistories)

	// WebSocket endpoint
	s.engine.GET("/ws", s.handleWebSocket)
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

func (s *WeatherServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	s.Logger.Info("Starting server on %s", addr)

	go s.handleWebsockets()

	return s.engine.Run(addr)
}

// -----------------------------------------------------------------------------
// Request helpers
// -----------------------------------------------------------------------------

// queryFilters builds the location filter set from the request query. Each
// of name, city and state may hold comma separated patterns; patterns at the
// same position combine into one filter.
func queryFilters(c *gin.Context) models.MLocationFilters {
	names := splitQuery(c.Query("name"))
	cities := splitQuery(c.Query("city"))
	states := splitQuery(c.Query("state"))

	count := len(names)
	if len(cities) > count {
		count = len(cities)
	}
	if len(states) > count {
		count = len(states)
	}

	var filters models.MLocationFilters
	for i := 0; i < count; i++ {
		var f models.MLocationFilter
		if i < len(names) {
			f.Name = names[i]
		}
		if i < len(cities) {
			f.City = cities[i]
		}
		if i < len(states) {
			f.State = states[i]
		}
		filters = append(filters, f)
	}
	return filters
}

func splitQuery(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// -----------------------------------------------------------------------------

// fail maps storage errors onto HTTP statuses.
func (s *WeatherServer) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case helpers.IsNotFound(err):
		status = http.StatusNotFound
	case helpers.IsAmbiguous(err):
		status = http.StatusConflict
	case helpers.IsValidation(err):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		s.Logger.Error("request failed: %v", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *WeatherServer) getHealth(c *gin.Context) {
	c.JSON(200, gin.H{
		"status":      "ok",
		"connections": s.connections.Load(),
	})
}

// -----------------------------------------------------------------------------

func (s *WeatherServer) getLocations(c *gin.Context) {
	locations, err := s.backend.GetLocations(queryFilters(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(200, gin.H{"locations": locations})
}

// -----------------------------------------------------------------------------

func (s *WeatherServer) getSummaries(c *gin.Context) {
	summaries, err := s.backend.GetHistorySummaries(queryFilters(c))
	if err != nil {
		s.fail(c, err)
		return
	}

	payload := make([]gin.H, 0, len(summaries))
	for _, summary := range summaries {
		payload = append(payload, gin.H{
			"location":     summary.Location,
			"count":        summary.Count,
			"overall_size": summary.OverallSize,
			"raw_size":     summary.RawSize,
			"store_size":   summary.StoreSize,
		})
	}
	c.JSON(200, gin.H{"summaries": payload})
}

// -----------------------------------------------------------------------------

func (s *WeatherServer) getHistoryDates(c *gin.Context) {
	historyDates, err := s.backend.GetHistoryDates(queryFilters(c))
	if err != nil {
		s.fail(c, err)
		return
	}

	payload := make([]gin.H, 0, len(historyDates))
	for _, hd := range historyDates {
		ranges := make([]gin.H, 0, len(hd.DateRanges))
		for _, r := range hd.DateRanges {
			ranges = append(ranges, gin.H{
				"start": r.Start.Format(models.DateFormat),
				"end":   r.End.Format(models.DateFormat),
			})
		}
		payload = append(payload, gin.H{"location": hd.Location, "date_ranges": ranges})
	}
	c.JSON(200, gin.H{"history_dates": payload})
}

// -----------------------------------------------------------------------------

func (s *WeatherServer) getHistories(c *gin.Context) {
	from := c.Query("from")
	thru := c.DefaultQuery("thru", from)
	dateRange, err := parseDateRange(from, thru)
	if err != nil {
		s.fail(c, err)
		return
	}

	histories, err := s.backend.GetDailyHistories(queryFilters(c), dateRange)
	if err != nil {
		s.fail(c, err)
		return
	}

	documents := make([]json.RawMessage, 0, len(histories.Histories))
	for _, history := range histories.Histories {
		document, err := storage.EncodeHistory(history)
		if err != nil {
			s.fail(c, err)
			return
		}
		documents = append(documents, json.RawMessage(document))
	}
	c.JSON(200, gin.H{"location": histories.Location, "histories": documents})
}

// -----------------------------------------------------------------------------

func (s *WeatherServer) searchLocations(c *gin.Context) {
	filter := models.MCityFilter{
		Name:    c.Query("city"),
		State:   c.Query("state"),
		ZipCode: c.Query("zip"),
	}
	locations, err := s.backend.SearchLocations(filter)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(200, gin.H{"locations": locations})
}

// -----------------------------------------------------------------------------

func (s *WeatherServer) getStates(c *gin.Context) {
	states, err := s.backend.GetStates()
	if err != nil {
		s.fail(c, err)
		return
	}

	payload := make([]gin.H, 0, len(states))
	for _, state := range states {
		payload = append(payload, gin.H{"name": state.Name, "state_id": state.StateID})
	}
	c.JSON(200, gin.H{"states": payload})
}

// -----------------------------------------------------------------------------

func (s *WeatherServer) postLocation(c *gin.Context) {
	var location models.MLocation
	if err := c.ShouldBindJSON(&location); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.backend.AddLocation(location); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(200, gin.H{"added": location.Alias})
}

// -----------------------------------------------------------------------------

type historiesRequest struct {
	Alias     string            `json:"alias"`
	Histories []json.RawMessage `json:"histories"`
}

func (s *WeatherServer) postHistories(c *gin.Context) {
	var request historiesRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	histories := models.MDailyHistories{Location: models.MLocation{Alias: request.Alias}}
	for _, document := range request.Histories {
		history, err := storage.DecodeHistory(request.Alias, document)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		histories.Histories = append(histories.Histories, history)
	}

	count, err := s.backend.AddDailyHistories(histories)
	if err != nil {
		s.fail(c, err)
		return
	}

	s.broadcast <- &models.MHistoryEvent{
		Type:      "history-added",
		Alias:     request.Alias,
		Count:     count,
		Timestamp: time.Now().Unix(),
	}
	c.JSON(200, gin.H{"stored": count})
}

// -----------------------------------------------------------------------------

func parseDateRange(from, thru string) (models.MDateRange, error) {
	if from == "" {
		return models.MDateRange{}, helpers.NewValidationError("query parameter 'from' is required")
	}
	start, err := time.ParseInLocation(models.DateFormat, from, time.UTC)
	if err != nil {
		return models.MDateRange{}, helpers.NewValidationError("bad 'from' date '%s'", from)
	}
	end, err := time.ParseInLocation(models.DateFormat, thru, time.UTC)
	if err != nil {
		return models.MDateRange{}, helpers.NewValidationError("bad 'thru' date '%s'", thru)
	}
	return models.NewDateRange(start, end)
}
