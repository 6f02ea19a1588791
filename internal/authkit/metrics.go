package authkit

import "sync"

// AuthEvent names an outcome counted by the auth routes.
type AuthEvent string

const (
	EventRegisterSuccess AuthEvent = "auth.register.success"
	EventRegisterFailure AuthEvent = "auth.register.failure"
	EventLoginSuccess    AuthEvent = "auth.login.success"
	EventLoginFailure    AuthEvent = "auth.login.failure"
	EventLogout          AuthEvent = "auth.logout"
)

// MetricsRecorder counts auth events.
type MetricsRecorder interface {
	Increment(event AuthEvent)
}

// CounterMetrics keeps per-event totals in memory for the lifetime of the process.
type CounterMetrics struct {
	mutex  sync.Mutex
	totals map[AuthEvent]int64
}

func NewCounterMetrics() *CounterMetrics {
	return &CounterMetrics{totals: make(map[AuthEvent]int64)}
}

func (recorder *CounterMetrics) Increment(event AuthEvent) {
	recorder.mutex.Lock()
	recorder.totals[event]++
	recorder.mutex.Unlock()
}

// Count returns the total for event.
func (recorder *CounterMetrics) Count(event AuthEvent) int64 {
	recorder.mutex.Lock()
	defer recorder.mutex.Unlock()
	return recorder.totals[event]
}

// Totals copies every non-zero counter, keyed by event name, for logging.
func (recorder *CounterMetrics) Totals() map[string]int64 {
	recorder.mutex.Lock()
	defer recorder.mutex.Unlock()
	totals := make(map[string]int64, len(recorder.totals))
	for event, total := range recorder.totals {
		totals[string(event)] = total
	}
	return totals
}
