package metrics

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// APICallTracker counts Torn API usage per session and per endpoint and
// mirrors every call into the Prometheus counter
type APICallTracker struct {
	metrics         *Metrics
	sessionStart    time.Time
	sessionCalls    int64
	totalCalls      int64
	failedCalls     int64
	callsByEndpoint map[string]int64
	mutex           sync.RWMutex
	now             func() time.Time
}

// NewAPICallTracker creates a tracker. metrics may be nil.
func NewAPICallTracker(metrics *Metrics) *APICallTracker {
	return &APICallTracker{
		metrics:         metrics,
		sessionStart:    time.Now(),
		callsByEndpoint: make(map[string]int64),
		now:             time.Now,
	}
}

// RecordCall records an API call for tracking
func (t *APICallTracker) RecordCall(endpoint string, err error) {
	t.mutex.Lock()
	t.sessionCalls++
	t.totalCalls++
	if err != nil {
		t.failedCalls++
	}
	t.callsByEndpoint[endpoint]++
	t.mutex.Unlock()

	if t.metrics != nil {
		t.metrics.APICalls.WithLabelValues(endpoint, outcome(err)).Inc()
	}
}

// APICallStats represents API call statistics
type APICallStats struct {
	SessionCalls    int64
	TotalCalls      int64
	FailedCalls     int64
	SessionDuration time.Duration
	CallsByEndpoint map[string]int64
	CallsPerMinute  float64
}

// GetSessionStats returns API call statistics for current session
func (t *APICallTracker) GetSessionStats() APICallStats {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	duration := t.now().Sub(t.sessionStart)

	endpointCopy := make(map[string]int64, len(t.callsByEndpoint))
	for k, v := range t.callsByEndpoint {
		endpointCopy[k] = v
	}

	var perMinute float64
	if duration > 0 {
		perMinute = float64(t.sessionCalls) / duration.Minutes()
	}

	return APICallStats{
		SessionCalls:    t.sessionCalls,
		TotalCalls:      t.totalCalls,
		FailedCalls:     t.failedCalls,
		SessionDuration: duration,
		CallsByEndpoint: endpointCopy,
		CallsPerMinute:  perMinute,
	}
}

// ResetSession resets session-specific counters
func (t *APICallTracker) ResetSession() {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.sessionStart = t.now()
	t.sessionCalls = 0
	// total and per-endpoint counts are kept across sessions
}

// LogSessionSummary logs a summary of API usage for the session
func (t *APICallTracker) LogSessionSummary() {
	stats := t.GetSessionStats()

	event := log.Info().
		Int64("session_calls", stats.SessionCalls).
		Int64("total_calls", stats.TotalCalls).
		Int64("failed_calls", stats.FailedCalls).
		Float64("calls_per_minute", stats.CallsPerMinute).
		Dur("session_duration", stats.SessionDuration)

	endpoints := make([]string, 0, len(stats.CallsByEndpoint))
	for endpoint := range stats.CallsByEndpoint {
		endpoints = append(endpoints, endpoint)
	}
	sort.Strings(endpoints)
	for _, endpoint := range endpoints {
		event = event.Int64(endpoint+"_calls", stats.CallsByEndpoint[endpoint])
	}

	event.Msg("API call session summary")
}
