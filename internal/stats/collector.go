package stats

import (
	"sort"
	"sync"
	"time"

	"github.com/prasenjit/go-mockapi/internal/models"
)

// Sample is one served mock request
type Sample struct {
	EndpointID   string
	CollectionID string
	Method       string
	Path         string
	StatusCode   int
	Outcome      models.Outcome
	Duration     time.Duration // Total time, including the simulated delay
	DelayMs      int
	Error        string
}

// IsError reports whether the response status is a client or server error
func (s Sample) IsError() bool {
	return s.StatusCode >= 400
}

// Collector collects and aggregates statistics
type Collector struct {
	mu             sync.RWMutex
	startTime      time.Time
	endpoints      map[string]*models.AtomicEndpointStat // endpointID -> stats
	recentErrors   []models.ErrorStat
	hourlyStats    map[string]*hourlyCounter // "YYYY-MM-DD-HH" -> counter
	maxErrors      int
	maxHourlySlots int
}

type hourlyCounter struct {
	Hour     string
	Requests int64
	Errors   int64
}

// NewCollector creates a new statistics collector
func NewCollector() *Collector {
	return &Collector{
		startTime:      time.Now(),
		endpoints:      make(map[string]*models.AtomicEndpointStat),
		recentErrors:   make([]models.ErrorStat, 0),
		hourlyStats:    make(map[string]*hourlyCounter),
		maxErrors:      100,
		maxHourlySlots: 168, // 7 days
	}
}

// Record records a served request. Error responses are also kept in the
// recent errors list.
func (c *Collector) Record(s Sample) {
	c.mu.Lock()
	defer c.mu.Unlock()

	epStats, ok := c.endpoints[s.EndpointID]
	if !ok {
		epStats = &models.AtomicEndpointStat{
			EndpointID:   s.EndpointID,
			CollectionID: s.CollectionID,
			Method:       s.Method,
			Path:         s.Path,
		}
		epStats.MinTimeNs.Store(s.Duration.Nanoseconds())
		c.endpoints[s.EndpointID] = epStats
	}

	now := time.Now()
	epStats.TotalRequests.Add(1)
	epStats.TotalTimeNs.Add(s.Duration.Nanoseconds())
	epStats.TotalDelayMs.Add(int64(s.DelayMs))
	epStats.LastRequestTime.Store(now)

	durationNs := s.Duration.Nanoseconds()
	for {
		currentMin := epStats.MinTimeNs.Load()
		if durationNs >= currentMin || epStats.MinTimeNs.CompareAndSwap(currentMin, durationNs) {
			break
		}
	}
	for {
		currentMax := epStats.MaxTimeNs.Load()
		if durationNs <= currentMax || epStats.MaxTimeNs.CompareAndSwap(currentMax, durationNs) {
			break
		}
	}

	switch s.Outcome {
	case models.OutcomeFailed:
		epStats.ValidationFailures.Add(1)
	case models.OutcomeInjected:
		epStats.InjectedScenarios.Add(1)
	}

	if s.IsError() {
		epStats.TotalErrors.Add(1)
		c.recentErrors = append(c.recentErrors, models.ErrorStat{
			Timestamp:  now,
			EndpointID: s.EndpointID,
			Path:       s.Path,
			Method:     s.Method,
			StatusCode: s.StatusCode,
			Outcome:    s.Outcome,
			Error:      s.Error,
		})
		if len(c.recentErrors) > c.maxErrors {
			c.recentErrors = c.recentErrors[1:]
		}
	}

	hourKey := now.Format("2006-01-02-15")
	hourly, ok := c.hourlyStats[hourKey]
	if !ok {
		hourly = &hourlyCounter{Hour: hourKey}
		c.hourlyStats[hourKey] = hourly
		c.cleanupOldHourlyStats()
	}
	hourly.Requests++
	if s.IsError() {
		hourly.Errors++
	}
}

// cleanupOldHourlyStats removes hourly stats older than maxHourlySlots
func (c *Collector) cleanupOldHourlyStats() {
	if len(c.hourlyStats) <= c.maxHourlySlots {
		return
	}

	keys := make([]string, 0, len(c.hourlyStats))
	for k := range c.hourlyStats {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	toRemove := len(keys) - c.maxHourlySlots
	for i := 0; i < toRemove; i++ {
		delete(c.hourlyStats, keys[i])
	}
}

// GetGlobalStats returns global statistics
func (c *Collector) GetGlobalStats(totalCollections, totalEndpoints int) *models.GlobalStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var totalRequests, totalErrors, totalTimeNs, failures, injected int64

	epStats := make([]models.EndpointStat, 0, len(c.endpoints))
	for _, ep := range c.endpoints {
		stat := ep.ToEndpointStat()
		epStats = append(epStats, stat)
		totalRequests += stat.TotalRequests
		totalErrors += stat.TotalErrors
		failures += stat.ValidationFailures
		injected += stat.InjectedScenarios
		totalTimeNs += ep.TotalTimeNs.Load()
	}

	// Busiest first
	sort.Slice(epStats, func(i, j int) bool {
		if epStats[i].TotalRequests != epStats[j].TotalRequests {
			return epStats[i].TotalRequests > epStats[j].TotalRequests
		}
		return epStats[i].EndpointID < epStats[j].EndpointID
	})

	topEndpoints := epStats
	if len(topEndpoints) > 10 {
		topEndpoints = topEndpoints[:10]
	}

	var avgResponseTimeMs float64
	if totalRequests > 0 {
		avgResponseTimeMs = float64(totalTimeNs) / float64(totalRequests) / 1e6
	}

	uptime := time.Since(c.startTime).Seconds()
	var requestsPerSecond float64
	if uptime > 0 {
		requestsPerSecond = float64(totalRequests) / uptime
	}

	recentErrors := make([]models.ErrorStat, len(c.recentErrors))
	copy(recentErrors, c.recentErrors)

	return &models.GlobalStats{
		TotalRequests:      totalRequests,
		TotalErrors:        totalErrors,
		ValidationFailures: failures,
		InjectedScenarios:  injected,
		TotalCollections:   totalCollections,
		TotalEndpoints:     totalEndpoints,
		AvgResponseTimeMs:  avgResponseTimeMs,
		RequestsPerSecond:  requestsPerSecond,
		StartTime:          c.startTime,
		Uptime:             formatDuration(time.Since(c.startTime)),
		TopEndpoints:       topEndpoints,
		RecentErrors:       recentErrors,
		RequestsByHour:     c.buildHourlyStats(),
	}
}

// GetCollectionStats returns statistics for the endpoints of one collection
func (c *Collector) GetCollectionStats(collectionID, collectionName string) *models.CollectionStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var totalRequests, totalErrors, totalTimeNs int64
	epStats := make([]models.EndpointStat, 0)

	for _, ep := range c.endpoints {
		if ep.CollectionID != collectionID {
			continue
		}

		stat := ep.ToEndpointStat()
		epStats = append(epStats, stat)
		totalRequests += stat.TotalRequests
		totalErrors += stat.TotalErrors
		totalTimeNs += ep.TotalTimeNs.Load()
	}

	sort.Slice(epStats, func(i, j int) bool {
		return epStats[i].EndpointID < epStats[j].EndpointID
	})

	var avgResponseTimeMs float64
	if totalRequests > 0 {
		avgResponseTimeMs = float64(totalTimeNs) / float64(totalRequests) / 1e6
	}

	return &models.CollectionStats{
		CollectionID:      collectionID,
		CollectionName:    collectionName,
		TotalRequests:     totalRequests,
		TotalErrors:       totalErrors,
		AvgResponseTimeMs: avgResponseTimeMs,
		Endpoints:         epStats,
	}
}

// GetEndpointStats returns statistics for one endpoint, or nil if it was never hit
func (c *Collector) GetEndpointStats(endpointID string) *models.EndpointStat {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if ep, ok := c.endpoints[endpointID]; ok {
		stat := ep.ToEndpointStat()
		return &stat
	}

	return nil
}

// buildHourlyStats builds the statistics of the last 24 hours, oldest first
func (c *Collector) buildHourlyStats() []models.HourlyStat {
	now := time.Now()
	stats := make([]models.HourlyStat, 0, 24)

	for i := 23; i >= 0; i-- {
		hour := now.Add(-time.Duration(i) * time.Hour)
		hourKey := hour.Format("2006-01-02-15")

		stat := models.HourlyStat{
			Hour: hour.Format("15:00"),
		}

		if hourly, ok := c.hourlyStats[hourKey]; ok {
			stat.Requests = hourly.Requests
			stat.Errors = hourly.Errors
		}

		stats = append(stats, stat)
	}

	return stats
}

// Reset resets all statistics
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.startTime = time.Now()
	c.endpoints = make(map[string]*models.AtomicEndpointStat)
	c.recentErrors = make([]models.ErrorStat, 0)
	c.hourlyStats = make(map[string]*hourlyCounter)
}

// formatDuration formats a duration in a human-readable format
func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Hour:
		return d.Round(time.Minute).String()
	case d >= time.Minute:
		return d.Round(time.Second).String()
	default:
		return d.Round(time.Millisecond).String()
	}
}
