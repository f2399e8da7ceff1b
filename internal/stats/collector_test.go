package stats

import (
	"testing"
	"time"

	"github.com/prasenjit/go-mockapi/internal/models"
)

func sample(endpointID string, status int, outcome models.Outcome, d time.Duration) Sample {
	return Sample{
		EndpointID:   endpointID,
		CollectionID: "c1",
		Method:       "POST",
		Path:         "/users",
		StatusCode:   status,
		Outcome:      outcome,
		Duration:     d,
	}
}

func TestNewCollector(t *testing.T) {
	c := NewCollector()
	if c == nil {
		t.Fatal("NewCollector returned nil")
	}
	if c.endpoints == nil {
		t.Fatal("Endpoints map not initialized")
	}
	if c.recentErrors == nil {
		t.Fatal("Recent errors slice not initialized")
	}
	if c.hourlyStats == nil {
		t.Fatal("Hourly stats map not initialized")
	}
	if c.maxErrors != 100 {
		t.Errorf("Expected maxErrors 100, got %d", c.maxErrors)
	}
	if c.maxHourlySlots != 168 {
		t.Errorf("Expected maxHourlySlots 168, got %d", c.maxHourlySlots)
	}
}

func TestRecord(t *testing.T) {
	c := NewCollector()

	c.Record(sample("ep-1", 201, models.OutcomePassed, 100*time.Millisecond))

	stats := c.GetGlobalStats(1, 1)
	if stats.TotalRequests != 1 {
		t.Errorf("Expected 1 total request, got %d", stats.TotalRequests)
	}
	if stats.TotalErrors != 0 {
		t.Errorf("Expected 0 errors, got %d", stats.TotalErrors)
	}

	c.Record(sample("ep-1", 400, models.OutcomeFailed, 50*time.Millisecond))

	stats = c.GetGlobalStats(1, 1)
	if stats.TotalRequests != 2 {
		t.Errorf("Expected 2 total requests, got %d", stats.TotalRequests)
	}
	if stats.TotalErrors != 1 {
		t.Errorf("Expected 1 error, got %d", stats.TotalErrors)
	}
	if stats.ValidationFailures != 1 {
		t.Errorf("Expected 1 validation failure, got %d", stats.ValidationFailures)
	}
	if len(stats.RecentErrors) != 1 || stats.RecentErrors[0].Outcome != models.OutcomeFailed {
		t.Errorf("Expected the failed request in recent errors, got %+v", stats.RecentErrors)
	}
}

func TestRecord_Outcomes(t *testing.T) {
	c := NewCollector()

	c.Record(sample("ep-1", 503, models.OutcomeInjected, time.Millisecond))
	c.Record(sample("ep-1", 409, models.OutcomeInjected, time.Millisecond))
	c.Record(sample("ep-1", 500, models.OutcomeError, time.Millisecond))

	stat := c.GetEndpointStats("ep-1")
	if stat == nil {
		t.Fatal("Expected endpoint stats")
	}
	if stat.InjectedScenarios != 2 {
		t.Errorf("Expected 2 injected scenarios, got %d", stat.InjectedScenarios)
	}
	if stat.ValidationFailures != 0 {
		t.Errorf("Expected 0 validation failures, got %d", stat.ValidationFailures)
	}
	if stat.TotalErrors != 3 {
		t.Errorf("Expected 3 errors, got %d", stat.TotalErrors)
	}
}

func TestRecord_MinMaxTime(t *testing.T) {
	c := NewCollector()

	c.Record(sample("ep-1", 200, models.OutcomePassed, 100*time.Millisecond))
	c.Record(sample("ep-1", 200, models.OutcomePassed, 50*time.Millisecond))
	c.Record(sample("ep-1", 200, models.OutcomePassed, 200*time.Millisecond))

	stat := c.GetEndpointStats("ep-1")
	if stat == nil {
		t.Fatal("Expected endpoint stats")
	}
	if stat.MinResponseTimeMs != 50.0 {
		t.Errorf("Expected min time 50ms, got %v", stat.MinResponseTimeMs)
	}
	if stat.MaxResponseTimeMs != 200.0 {
		t.Errorf("Expected max time 200ms, got %v", stat.MaxResponseTimeMs)
	}
}

func TestRecord_Delay(t *testing.T) {
	c := NewCollector()

	s := sample("ep-1", 200, models.OutcomePassed, 300*time.Millisecond)
	s.DelayMs = 200
	c.Record(s)
	s.DelayMs = 400
	c.Record(s)

	stat := c.GetEndpointStats("ep-1")
	if stat.AvgDelayMs != 300 {
		t.Errorf("Expected average delay 300ms, got %v", stat.AvgDelayMs)
	}
}

func TestRecentErrors_MaxLimit(t *testing.T) {
	c := NewCollector()
	c.maxErrors = 5

	for i := 0; i < 10; i++ {
		c.Record(sample("ep-1", 500, models.OutcomeError, time.Millisecond))
	}

	stats := c.GetGlobalStats(1, 1)
	if len(stats.RecentErrors) != 5 {
		t.Errorf("Expected 5 errors (max), got %d", len(stats.RecentErrors))
	}
}

func TestGetGlobalStats_TopEndpoints(t *testing.T) {
	c := NewCollector()

	for i := 0; i < 12; i++ {
		id := string(rune('a' + i))
		for j := 0; j <= i; j++ {
			c.Record(sample(id, 200, models.OutcomePassed, time.Millisecond))
		}
	}

	stats := c.GetGlobalStats(1, 12)
	if len(stats.TopEndpoints) != 10 {
		t.Fatalf("Expected 10 top endpoints, got %d", len(stats.TopEndpoints))
	}
	if stats.TopEndpoints[0].EndpointID != "l" {
		t.Errorf("Expected busiest endpoint first, got %s", stats.TopEndpoints[0].EndpointID)
	}
	if stats.TotalEndpoints != 12 || stats.TotalCollections != 1 {
		t.Errorf("Expected counts passed through, got %d collections %d endpoints", stats.TotalCollections, stats.TotalEndpoints)
	}
}

func TestGetGlobalStats_HourlyStats(t *testing.T) {
	c := NewCollector()
	c.Record(sample("ep-1", 200, models.OutcomePassed, time.Millisecond))
	c.Record(sample("ep-1", 500, models.OutcomeError, time.Millisecond))

	stats := c.GetGlobalStats(1, 1)
	if len(stats.RequestsByHour) != 24 {
		t.Fatalf("Expected 24 hourly slots, got %d", len(stats.RequestsByHour))
	}

	current := stats.RequestsByHour[23]
	if current.Requests != 2 || current.Errors != 1 {
		t.Errorf("Expected current hour 2 requests 1 error, got %d/%d", current.Requests, current.Errors)
	}
}

func TestGetCollectionStats(t *testing.T) {
	c := NewCollector()
	c.Record(sample("ep-1", 200, models.OutcomePassed, 10*time.Millisecond))
	c.Record(sample("ep-2", 200, models.OutcomePassed, 30*time.Millisecond))

	other := sample("ep-3", 200, models.OutcomePassed, time.Millisecond)
	other.CollectionID = "c2"
	c.Record(other)

	stats := c.GetCollectionStats("c1", "Users")
	if stats.TotalRequests != 2 {
		t.Errorf("Expected 2 requests, got %d", stats.TotalRequests)
	}
	if len(stats.Endpoints) != 2 {
		t.Errorf("Expected 2 endpoints, got %d", len(stats.Endpoints))
	}
	if stats.AvgResponseTimeMs != 20 {
		t.Errorf("Expected average 20ms, got %v", stats.AvgResponseTimeMs)
	}
}

func TestGetEndpointStats_Unknown(t *testing.T) {
	c := NewCollector()
	if c.GetEndpointStats("missing") != nil {
		t.Error("Expected nil stats for unknown endpoint")
	}
}

func TestReset(t *testing.T) {
	c := NewCollector()
	c.Record(sample("ep-1", 500, models.OutcomeError, time.Millisecond))

	c.Reset()

	stats := c.GetGlobalStats(0, 0)
	if stats.TotalRequests != 0 {
		t.Errorf("Expected 0 requests after reset, got %d", stats.TotalRequests)
	}
	if len(stats.RecentErrors) != 0 {
		t.Errorf("Expected 0 errors after reset, got %d", len(stats.RecentErrors))
	}
}

func TestHourlyStatsCleanup(t *testing.T) {
	c := NewCollector()
	c.maxHourlySlots = 3

	c.mu.Lock()
	c.hourlyStats["2024-01-01-00"] = &hourlyCounter{Hour: "2024-01-01-00", Requests: 1}
	c.hourlyStats["2024-01-01-01"] = &hourlyCounter{Hour: "2024-01-01-01", Requests: 1}
	c.hourlyStats["2024-01-01-02"] = &hourlyCounter{Hour: "2024-01-01-02", Requests: 1}
	c.hourlyStats["2024-01-01-03"] = &hourlyCounter{Hour: "2024-01-01-03", Requests: 1}
	c.mu.Unlock()

	c.Record(sample("ep-1", 200, models.OutcomePassed, time.Millisecond))

	c.mu.RLock()
	count := len(c.hourlyStats)
	c.mu.RUnlock()

	if count != c.maxHourlySlots {
		t.Errorf("Expected %d hourly slots, got %d", c.maxHourlySlots, count)
	}
}

func TestConcurrentStatsAccess(t *testing.T) {
	c := NewCollector()

	done := make(chan bool)

	go func() {
		for i := 0; i < 100; i++ {
			status := 200
			if i%5 == 0 {
				status = 400
			}
			c.Record(sample("ep-1", status, models.OutcomePassed, time.Duration(i)*time.Millisecond))
		}
		done <- true
	}()

	go func() {
		for i := 0; i < 100; i++ {
			_ = c.GetGlobalStats(1, 1)
		}
		done <- true
	}()

	go func() {
		for i := 0; i < 100; i++ {
			_ = c.GetEndpointStats("ep-1")
		}
		done <- true
	}()

	for i := 0; i < 3; i++ {
		<-done
	}

	stats := c.GetGlobalStats(1, 1)
	if stats.TotalRequests != 100 {
		t.Errorf("Expected 100 requests, got %d", stats.TotalRequests)
	}
	if stats.TotalErrors != 20 {
		t.Errorf("Expected 20 errors, got %d", stats.TotalErrors)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		want     string
	}{
		{"millis", 1500 * time.Microsecond, "2ms"},
		{"seconds", 30 * time.Second, "30s"},
		{"minutes", 5*time.Minute + 10*time.Second, "5m10s"},
		{"hours", 2*time.Hour + 30*time.Second, "2h1m0s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatDuration(tt.duration); got != tt.want {
				t.Errorf("formatDuration(%v) = %q, want %q", tt.duration, got, tt.want)
			}
		})
	}
}
