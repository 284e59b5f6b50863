package monitoring

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// HealthChecker reports whether the decision loop is still cycling
type HealthChecker struct {
	mu            sync.RWMutex
	startTime     time.Time
	lastCycle     time.Time
	lastUniverse  int
	openPositions int
	maxCycleAge   time.Duration
	errors        []string
	now           func() time.Time
}

type HealthStatus struct {
	Status        string    `json:"status"`
	Timestamp     time.Time `json:"timestamp"`
	LastCycle     time.Time `json:"last_cycle"`
	Universe      int       `json:"universe"`
	OpenPositions int       `json:"open_positions"`
	Uptime        string    `json:"uptime"`
	Errors        []string  `json:"errors,omitempty"`
}

// NewHealthChecker creates a checker that turns degraded when no cycle
// has completed within maxCycleAge
func NewHealthChecker(maxCycleAge time.Duration) *HealthChecker {
	return &HealthChecker{
		startTime:   time.Now(),
		maxCycleAge: maxCycleAge,
		errors:      make([]string, 0),
		now:         time.Now,
	}
}

// RecordCycle notes a finished cycle; cycleErrors replaces the previous error list
func (h *HealthChecker) RecordCycle(at time.Time, universe, openPositions int, cycleErrors []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastCycle = at
	h.lastUniverse = universe
	h.openPositions = openPositions
	h.errors = append(h.errors[:0], cycleErrors...)
}

// Status computes the current health
func (h *HealthChecker) Status() HealthStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	now := h.now()
	status := "healthy"
	if h.lastCycle.IsZero() || now.Sub(h.lastCycle) > h.maxCycleAge {
		status = "degraded"
	} else if len(h.errors) > 0 {
		status = "warning"
	}

	errs := make([]string, len(h.errors))
	copy(errs, h.errors)

	return HealthStatus{
		Status:        status,
		Timestamp:     now,
		LastCycle:     h.lastCycle,
		Universe:      h.lastUniverse,
		OpenPositions: h.openPositions,
		Uptime:        now.Sub(h.startTime).Truncate(time.Second).String(),
		Errors:        errs,
	}
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	health := h.Status()

	w.Header().Set("Content-Type", "application/json")
	if health.Status == "degraded" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(health)
}
