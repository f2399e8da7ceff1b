package models

import (
	"testing"
	"time"
)

func TestAtomicEndpointStat_ToEndpointStat(t *testing.T) {
	aes := &AtomicEndpointStat{
		EndpointID:   "ep-1",
		CollectionID: "users",
		Method:       "POST",
		Path:         "/users",
	}

	aes.TotalRequests.Store(100)
	aes.TotalErrors.Store(5)
	aes.ValidationFailures.Store(3)
	aes.InjectedScenarios.Store(2)
	aes.TotalTimeNs.Store(1000000000) // 1 second = 1000ms
	aes.MinTimeNs.Store(5000000)      // 5ms
	aes.MaxTimeNs.Store(50000000)     // 50ms
	aes.TotalDelayMs.Store(25000)
	aes.LastRequestTime.Store(time.Now())

	stat := aes.ToEndpointStat()

	if stat.EndpointID != "ep-1" {
		t.Errorf("Expected endpoint ID 'ep-1', got %q", stat.EndpointID)
	}
	if stat.CollectionID != "users" {
		t.Errorf("Expected collection ID 'users', got %q", stat.CollectionID)
	}
	if stat.TotalRequests != 100 {
		t.Errorf("Expected 100 requests, got %d", stat.TotalRequests)
	}
	if stat.ValidationFailures != 3 {
		t.Errorf("Expected 3 validation failures, got %d", stat.ValidationFailures)
	}
	if stat.InjectedScenarios != 2 {
		t.Errorf("Expected 2 injected scenarios, got %d", stat.InjectedScenarios)
	}
	// 1000ms / 100 requests
	if stat.AvgResponseTimeMs != 10.0 {
		t.Errorf("Expected avg 10ms, got %v", stat.AvgResponseTimeMs)
	}
	if stat.MinResponseTimeMs != 5.0 {
		t.Errorf("Expected min 5ms, got %v", stat.MinResponseTimeMs)
	}
	if stat.MaxResponseTimeMs != 50.0 {
		t.Errorf("Expected max 50ms, got %v", stat.MaxResponseTimeMs)
	}
	if stat.AvgDelayMs != 250.0 {
		t.Errorf("Expected avg delay 250ms, got %v", stat.AvgDelayMs)
	}
	if stat.LastRequestTime == "" {
		t.Error("Expected non-empty last request time")
	}
}

func TestAtomicEndpointStat_ZeroRequests(t *testing.T) {
	aes := &AtomicEndpointStat{EndpointID: "ep-1"}

	stat := aes.ToEndpointStat()

	if stat.TotalRequests != 0 {
		t.Errorf("Expected 0 requests, got %d", stat.TotalRequests)
	}
	if stat.AvgResponseTimeMs != 0 {
		t.Errorf("Expected avg 0, got %v", stat.AvgResponseTimeMs)
	}
	if stat.AvgDelayMs != 0 {
		t.Errorf("Expected avg delay 0, got %v", stat.AvgDelayMs)
	}
	if stat.LastRequestTime != "" {
		t.Errorf("Expected empty last request time, got %q", stat.LastRequestTime)
	}
}
