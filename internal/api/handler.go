package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/prasenjit/go-mockapi/internal/engine"
	"github.com/prasenjit/go-mockapi/internal/models"
	"github.com/prasenjit/go-mockapi/internal/parser"
	"github.com/prasenjit/go-mockapi/internal/proxy"
	"github.com/prasenjit/go-mockapi/internal/scenario"
	"github.com/prasenjit/go-mockapi/internal/stats"
	"github.com/prasenjit/go-mockapi/internal/storage"
	"github.com/prasenjit/go-mockapi/internal/template"
	"github.com/prasenjit/go-mockapi/internal/tracing"
	"github.com/prasenjit/go-mockapi/internal/validation"
)

const (
	defaultTraceLimit = 100
	maxTraceLimit     = 1000
)

// Handler handles admin API requests
type Handler struct {
	store          storage.Storage
	engine         *engine.Engine
	statsCollector *stats.Collector
	tracingService *tracing.Service
	mockServer     *proxy.Server
	parser         *parser.Parser
	logger         *zap.Logger
}

// NewHandler creates a new API handler
func NewHandler(store storage.Storage, eng *engine.Engine, statsCollector *stats.Collector, tracingService *tracing.Service, mockServer *proxy.Server, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		store:          store,
		engine:         eng,
		statsCollector: statsCollector,
		tracingService: tracingService,
		mockServer:     mockServer,
		parser:         parser.NewParser(),
		logger:         logger,
	}
}

// EndpointSummary is the listing view of an endpoint
type EndpointSummary struct {
	ID           string    `json:"id"`
	CollectionID string    `json:"collectionId"`
	Name         string    `json:"name"`
	Method       string    `json:"method"`
	Path         string    `json:"path"`
	StatusCode   int       `json:"statusCode"`
	Validation   string    `json:"validation"`
	Array        bool      `json:"array"`
	Delay        bool      `json:"delay"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func summarize(ep *models.Endpoint) EndpointSummary {
	return EndpointSummary{
		ID:           ep.ID,
		CollectionID: ep.CollectionID,
		Name:         ep.Name,
		Method:       ep.Method,
		Path:         ep.Path,
		StatusCode:   ep.StatusCode,
		Validation:   validation.Summary(ep.Validation),
		Array:        ep.Array != nil,
		Delay:        ep.Delay.Enabled,
		UpdatedAt:    ep.UpdatedAt,
	}
}

// storeError maps storage and model errors to HTTP statuses
func storeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, storage.ErrAlreadyExists):
		status = http.StatusConflict
	case errors.Is(err, models.ErrInvalid):
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// reloadRoutes refreshes the mock route table after a write
func (h *Handler) reloadRoutes() {
	if err := h.mockServer.ReloadRoutes(); err != nil {
		h.logger.Error("failed to reload routes", zap.Error(err))
	}
}

// ListCollections returns all collections with their endpoint counts
func (h *Handler) ListCollections(c *gin.Context) {
	collections, err := h.store.GetAllCollections()
	if err != nil {
		storeError(c, err)
		return
	}

	result := make([]map[string]interface{}, len(collections))
	for i, col := range collections {
		eps, _ := h.store.GetEndpointsByCollection(col.ID)
		result[i] = map[string]interface{}{
			"id":            col.ID,
			"name":          col.Name,
			"description":   col.Description,
			"createdAt":     col.CreatedAt,
			"updatedAt":     col.UpdatedAt,
			"endpointCount": len(eps),
		}
	}

	c.JSON(http.StatusOK, result)
}

// CreateCollection stores a collection with its endpoints
func (h *Handler) CreateCollection(c *gin.Context) {
	var col models.Collection
	if err := c.ShouldBindJSON(&col); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	for _, ep := range col.Endpoints {
		if ep.ID == "" {
			ep.ID = storage.EndpointID(col.ID, ep.Method, ep.Path)
		}
	}

	if err := h.store.CreateCollection(&col); err != nil {
		storeError(c, err)
		return
	}

	h.reloadRoutes()
	h.logger.Info("collection created", zap.String("collection", col.ID), zap.Int("endpoints", len(col.Endpoints)))

	c.JSON(http.StatusCreated, col)
}

// GetCollection returns a collection with its endpoints
func (h *Handler) GetCollection(c *gin.Context) {
	col, err := h.store.GetCollection(c.Param("id"))
	if err != nil {
		storeError(c, err)
		return
	}

	c.JSON(http.StatusOK, col)
}

// ListEndpoints returns the endpoints of a collection
func (h *Handler) ListEndpoints(c *gin.Context) {
	id := c.Param("id")

	if _, err := h.store.GetCollection(id); err != nil {
		storeError(c, err)
		return
	}

	eps, err := h.store.GetEndpointsByCollection(id)
	if err != nil {
		storeError(c, err)
		return
	}

	result := make([]EndpointSummary, len(eps))
	for i, ep := range eps {
		result[i] = summarize(ep)
	}

	c.JSON(http.StatusOK, result)
}

// CreateEndpoint adds an endpoint to a collection
func (h *Handler) CreateEndpoint(c *gin.Context) {
	var ep models.Endpoint
	if err := c.ShouldBindJSON(&ep); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ep.CollectionID = c.Param("id")
	if ep.ID == "" {
		ep.ID = storage.EndpointID(ep.CollectionID, ep.Method, ep.Path)
	}

	if err := h.store.CreateEndpoint(&ep); err != nil {
		storeError(c, err)
		return
	}

	h.reloadRoutes()
	h.logger.Info("endpoint created",
		zap.String("endpoint", ep.ID),
		zap.String("method", ep.Method),
		zap.String("path", ep.Path),
	)

	c.JSON(http.StatusCreated, ep)
}

// GetEndpoint returns a single endpoint
func (h *Handler) GetEndpoint(c *gin.Context) {
	ep, err := h.store.GetEndpoint(c.Param("id"))
	if err != nil {
		storeError(c, err)
		return
	}

	c.JSON(http.StatusOK, ep)
}

// EvaluateRequest is a dry run of an endpoint definition
type EvaluateRequest struct {
	Endpoint models.Endpoint `json:"endpoint"`
	Method   string          `json:"method"` // Defaults to the endpoint method
	Body     json.RawMessage `json:"body"`
}

// EvaluateResult is the response the mock server would send, without the delay
type EvaluateResult struct {
	StatusCode int               `json:"statusCode"`
	Headers    map[string]string `json:"headers"`
	Body       interface{}       `json:"body"`
	DelayMs    int               `json:"delayMs"`
	Outcome    models.Outcome    `json:"outcome"`
	Errors     []string          `json:"errors,omitempty"`
	Scenario   string            `json:"scenario,omitempty"`
}

// Evaluate runs an inline endpoint definition against a request body
func (h *Handler) Evaluate(c *gin.Context) {
	var req EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ep := req.Endpoint
	ep.ApplyDefaults()

	method := strings.ToUpper(req.Method)
	if method == "" {
		method = ep.Method
	}
	if method == "" {
		method = http.MethodPost
	}

	resp, err := h.engine.Respond(&ep, method, req.Body)
	if err != nil {
		resp = engine.ErrorResponse(err)
	}

	result := EvaluateResult{
		StatusCode: resp.StatusCode,
		Headers:    resp.Headers,
		DelayMs:    resp.DelayMs,
		Outcome:    resp.Outcome,
		Errors:     resp.Errors,
		Scenario:   resp.Scenario,
	}
	if json.Valid(resp.Body) {
		result.Body = json.RawMessage(resp.Body)
	} else {
		result.Body = string(resp.Body)
	}

	c.JSON(http.StatusOK, result)
}

// ImportRequest carries an OpenAPI document to convert into a collection
type ImportRequest struct {
	Content      string `json:"content" binding:"required"`
	CollectionID string `json:"collectionId"`
	Name         string `json:"name"`
	BasePath     string `json:"basePath"`
	DryRun       bool   `json:"dryRun"` // Return the collection without storing it
}

// Import converts an OpenAPI document into a collection
func (h *Handler) Import(c *gin.Context) {
	var req ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	col, err := h.parser.Parse([]byte(req.Content), parser.Options{
		CollectionID: req.CollectionID,
		BasePath:     req.BasePath,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Name != "" {
		col.Name = req.Name
	}

	if req.DryRun {
		c.JSON(http.StatusOK, col)
		return
	}

	if err := h.store.CreateCollection(col); err != nil {
		storeError(c, err)
		return
	}

	h.reloadRoutes()
	h.logger.Info("openapi document imported", zap.String("collection", col.ID), zap.Int("endpoints", len(col.Endpoints)))

	c.JSON(http.StatusCreated, col)
}

// ListTags returns the tag catalogue and every registered generator
func (h *Handler) ListTags(c *gin.Context) {
	c.PureJSON(http.StatusOK, gin.H{
		"categories": template.Categories(),
		"tags":       h.engine.Expander().Registry().Names(),
	})
}

// ListScenarioPresets returns the canned error scenarios
func (h *Handler) ListScenarioPresets(c *gin.Context) {
	c.JSON(http.StatusOK, scenario.Presets())
}

// ListSamples returns the starter response templates with tags left unescaped
func (h *Handler) ListSamples(c *gin.Context) {
	c.PureJSON(http.StatusOK, template.Samples())
}

// GetGlobalStats returns global statistics
func (h *Handler) GetGlobalStats(c *gin.Context) {
	collections, _ := h.store.GetAllCollections()
	eps, _ := h.store.GetAllEndpoints()

	c.JSON(http.StatusOK, h.statsCollector.GetGlobalStats(len(collections), len(eps)))
}

// GetCollectionStats returns statistics for a collection
func (h *Handler) GetCollectionStats(c *gin.Context) {
	col, err := h.store.GetCollection(c.Param("id"))
	if err != nil {
		storeError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.statsCollector.GetCollectionStats(col.ID, col.Name))
}

// GetEndpointStats returns statistics for an endpoint
func (h *Handler) GetEndpointStats(c *gin.Context) {
	stat := h.statsCollector.GetEndpointStats(c.Param("id"))
	if stat == nil {
		c.JSON(http.StatusOK, gin.H{"message": "No statistics available"})
		return
	}

	c.JSON(http.StatusOK, stat)
}

// ResetStats resets all statistics
func (h *Handler) ResetStats(c *gin.Context) {
	h.statsCollector.Reset()
	c.JSON(http.StatusOK, gin.H{"message": "Statistics reset"})
}

// ListTraces returns traces matching the query parameters
func (h *Handler) ListTraces(c *gin.Context) {
	filter := &models.TraceFilter{
		CollectionID: c.Query("collectionId"),
		EndpointID:   c.Query("endpointId"),
		Method:       c.Query("method"),
		Outcome:      models.Outcome(c.Query("outcome")),
		Scenario:     c.Query("scenario"),
		Limit:        defaultTraceLimit,
	}

	ints := []struct {
		name   string
		target *int
		max    int
	}{
		{"status", &filter.StatusCode, 599},
		{"limit", &filter.Limit, maxTraceLimit},
		{"offset", &filter.Offset, 0},
	}
	for _, p := range ints {
		raw := c.Query(p.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || (p.max > 0 && n > p.max) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + p.name + " parameter"})
			return
		}
		*p.target = n
	}

	for _, p := range []struct {
		name   string
		target *time.Time
	}{
		{"since", &filter.StartTime},
		{"until", &filter.EndTime},
	} {
		raw := c.Query(p.name)
		if raw == "" {
			continue
		}
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + p.name + " parameter, expected RFC 3339"})
			return
		}
		*p.target = ts
	}

	c.JSON(http.StatusOK, h.tracingService.GetTraces(filter))
}

// GetTrace returns a single trace
func (h *Handler) GetTrace(c *gin.Context) {
	trace := h.tracingService.GetTrace(c.Param("id"))
	if trace == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Trace not found"})
		return
	}

	c.JSON(http.StatusOK, trace)
}

// ClearTraces clears all traces, or those of one collection
func (h *Handler) ClearTraces(c *gin.Context) {
	if collectionID := c.Query("collectionId"); collectionID != "" {
		h.tracingService.ClearTracesByCollection(collectionID)
	} else {
		h.tracingService.ClearTraces()
	}
	c.JSON(http.StatusOK, gin.H{"message": "Traces cleared"})
}

// GetRoutes returns the registered mock routes
func (h *Handler) GetRoutes(c *gin.Context) {
	c.JSON(http.StatusOK, h.mockServer.GetRegisteredRoutes())
}

// HealthCheck returns health status
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"tracing":   h.tracingService.GetStats(),
	})
}
