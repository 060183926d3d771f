package domain

import "time"

// ChaosCondition is a deliberately injected, time-bounded failure mode.
type ChaosCondition string

const (
	ChaosRateLimit    ChaosCondition = "RATE_LIMIT"
	ChaosTimeout      ChaosCondition = "TIMEOUT"
	ChaosServerError  ChaosCondition = "SERVER_ERROR"
	ChaosTokenExpired ChaosCondition = "TOKEN_EXPIRED"
	ChaosIntermittent ChaosCondition = "INTERMITTENT"
)

// KnownCondition reports whether c is a supported chaos condition.
func KnownCondition(c ChaosCondition) bool {
	switch c {
	case ChaosRateLimit, ChaosTimeout, ChaosServerError, ChaosTokenExpired, ChaosIntermittent:
		return true
	}
	return false
}

// SimulationState is the active fault condition for one tenant. At most one
// exists per tenant; activating a new condition replaces it.
type SimulationState struct {
	TenantID     string
	Condition    ChaosCondition
	FailureRate  float64
	ActivatedAt  time.Time
	ExpiresAt    time.Time
	RequestCount int64
}

// FaultDecision is the outcome of consulting the chaos simulator before a
// mutating operation.
type FaultDecision struct {
	ShouldFail bool
	Condition  ChaosCondition
	StatusCode int
}

// IdempotencyRecord is the stored outcome of the first execution under a
// given idempotency key. Result is never replaced; only ReplayCount moves.
type IdempotencyRecord struct {
	Key         string
	Operation   string
	TenantID    string
	Result      []byte
	CreatedAt   time.Time
	ReplayCount int
}
