package app

import (
	"math/rand/v2"
	"net/http"
	"sync"
	"time"

	"github.com/neomorfeo/ledgerlab/internal/domain"
)

// ChaosSimulator injects time-bounded fault conditions per tenant. At most
// one condition is active per tenant at a time; activating a new one
// replaces it. Expiry is lazy: a check after the expiry timestamp behaves
// as if no condition is active, with no background sweeper.
type ChaosSimulator struct {
	mu       sync.Mutex
	states   map[string]*domain.SimulationState
	counters map[string]int64

	// Injection points for tests. Default to the real clock and PRNG.
	now  func() time.Time
	draw func() float64
}

// NewChaosSimulator creates a simulator with no active conditions.
func NewChaosSimulator() *ChaosSimulator {
	return &ChaosSimulator{
		states:   make(map[string]*domain.SimulationState),
		counters: make(map[string]int64),
		now:      time.Now,
		draw:     rand.Float64,
	}
}

// Activate installs a fault condition for a tenant. A zero duration clears
// any active condition instead. The replaced condition, if any, is
// returned so callers can report it as the previous simulation.
func (c *ChaosSimulator) Activate(tenantID string, condition domain.ChaosCondition, durationSeconds int, failureRate float64) (previous, current *domain.SimulationState, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if prev, ok := c.states[tenantID]; ok {
		copied := *prev
		previous = &copied
	}

	if durationSeconds == 0 {
		delete(c.states, tenantID)
		return previous, nil, nil
	}

	if !domain.KnownCondition(condition) {
		return nil, nil, &domain.UnknownConditionError{Condition: condition}
	}

	rate := failureRate
	if condition != domain.ChaosIntermittent {
		// Deterministic conditions always fail while active.
		rate = 1
	}
	if rate < 0 {
		rate = 0
	}
	if rate > 1 {
		rate = 1
	}

	now := c.now().UTC()
	state := &domain.SimulationState{
		TenantID:    tenantID,
		Condition:   condition,
		FailureRate: rate,
		ActivatedAt: now,
		ExpiresAt:   now.Add(time.Duration(durationSeconds) * time.Second),
	}
	c.states[tenantID] = state

	copied := *state
	return previous, &copied, nil
}

// Check decides whether the next operation for the tenant should fail. The
// per-tenant request counter increments on every call, active condition or
// not. Expired conditions are dropped here rather than by a timer.
func (c *ChaosSimulator) Check(tenantID string) domain.FaultDecision {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.counters[tenantID]++
	count := c.counters[tenantID]

	state, ok := c.states[tenantID]
	if !ok {
		return domain.FaultDecision{}
	}
	if c.now().UTC().After(state.ExpiresAt) {
		delete(c.states, tenantID)
		return domain.FaultDecision{}
	}
	state.RequestCount++

	switch state.Condition {
	case domain.ChaosRateLimit:
		return failure(state.Condition, http.StatusTooManyRequests)
	case domain.ChaosTimeout:
		return failure(state.Condition, http.StatusRequestTimeout)
	case domain.ChaosTokenExpired:
		return failure(state.Condition, http.StatusUnauthorized)
	case domain.ChaosServerError:
		// Rotate through the 5xx family so retry handling sees variety.
		codes := []int{http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable}
		return failure(state.Condition, codes[count%int64(len(codes))])
	case domain.ChaosIntermittent:
		if c.draw() < state.FailureRate {
			return failure(state.Condition, http.StatusServiceUnavailable)
		}
		return domain.FaultDecision{}
	}

	return domain.FaultDecision{}
}

// Status returns a copy of the tenant's active simulation, if one exists
// and has not lazily expired.
func (c *ChaosSimulator) Status(tenantID string) (domain.SimulationState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	state, ok := c.states[tenantID]
	if !ok {
		return domain.SimulationState{}, false
	}
	if c.now().UTC().After(state.ExpiresAt) {
		delete(c.states, tenantID)
		return domain.SimulationState{}, false
	}
	return *state, true
}

func failure(condition domain.ChaosCondition, status int) domain.FaultDecision {
	return domain.FaultDecision{ShouldFail: true, Condition: condition, StatusCode: status}
}
