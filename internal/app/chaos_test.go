package app

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/neomorfeo/ledgerlab/internal/domain"
)

// White-box tests: the fake clock and deterministic draw are injected
// through unexported fields.

func testSimulator(start time.Time) (*ChaosSimulator, *time.Time) {
	clock := start
	c := NewChaosSimulator()
	c.now = func() time.Time { return clock }
	return c, &clock
}

func TestChaos_DeterministicConditions(t *testing.T) {
	tests := []struct {
		condition domain.ChaosCondition
		status    int
	}{
		{domain.ChaosRateLimit, http.StatusTooManyRequests},
		{domain.ChaosTimeout, http.StatusRequestTimeout},
		{domain.ChaosTokenExpired, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(string(tt.condition), func(t *testing.T) {
			c, _ := testSimulator(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

			_, current, err := c.Activate("demo", tt.condition, 60, 0)
			if err != nil {
				t.Fatalf("activate: %v", err)
			}
			if current.FailureRate != 1 {
				t.Errorf("failure rate = %v, want forced to 1", current.FailureRate)
			}

			for i := 0; i < 3; i++ {
				decision := c.Check("demo")
				if !decision.ShouldFail {
					t.Fatalf("check %d did not fail", i)
				}
				if decision.StatusCode != tt.status {
					t.Errorf("status = %d, want %d", decision.StatusCode, tt.status)
				}
				if decision.Condition != tt.condition {
					t.Errorf("condition = %s, want %s", decision.Condition, tt.condition)
				}
			}
		})
	}
}

func TestChaos_ServerErrorRotatesCodes(t *testing.T) {
	c, _ := testSimulator(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	if _, _, err := c.Activate("demo", domain.ChaosServerError, 60, 0); err != nil {
		t.Fatalf("activate: %v", err)
	}

	seen := make(map[int]bool)
	for i := 0; i < 6; i++ {
		decision := c.Check("demo")
		if !decision.ShouldFail {
			t.Fatalf("check %d did not fail", i)
		}
		if decision.StatusCode < 500 || decision.StatusCode > 599 {
			t.Fatalf("status = %d, want 5xx", decision.StatusCode)
		}
		seen[decision.StatusCode] = true
	}
	if len(seen) < 2 {
		t.Errorf("saw only %v, want rotation across the 5xx family", seen)
	}
}

func TestChaos_IntermittentHonorsFailureRate(t *testing.T) {
	c, _ := testSimulator(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	// Alternate draws strictly below and above the 0.5 threshold.
	draws := 0
	c.draw = func() float64 {
		draws++
		if draws%2 == 1 {
			return 0.1
		}
		return 0.9
	}

	_, current, err := c.Activate("demo", domain.ChaosIntermittent, 60, 0.5)
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	if current.FailureRate != 0.5 {
		t.Errorf("failure rate = %v, want 0.5 preserved", current.FailureRate)
	}

	failures, successes := 0, 0
	for i := 0; i < 50; i++ {
		decision := c.Check("demo")
		if decision.ShouldFail {
			failures++
			if decision.StatusCode != http.StatusServiceUnavailable {
				t.Errorf("status = %d, want 503", decision.StatusCode)
			}
		} else {
			successes++
		}
	}
	if failures != 25 || successes != 25 {
		t.Errorf("failures = %d successes = %d, want 25/25 with alternating draws", failures, successes)
	}
}

func TestChaos_RateClamped(t *testing.T) {
	c, _ := testSimulator(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	_, current, err := c.Activate("demo", domain.ChaosIntermittent, 60, 1.7)
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	if current.FailureRate != 1 {
		t.Errorf("failure rate = %v, want clamped to 1", current.FailureRate)
	}

	_, current, err = c.Activate("demo", domain.ChaosIntermittent, 60, -0.3)
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	if current.FailureRate != 0 {
		t.Errorf("failure rate = %v, want clamped to 0", current.FailureRate)
	}
}

func TestChaos_UnknownCondition(t *testing.T) {
	c, _ := testSimulator(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	_, _, err := c.Activate("demo", domain.ChaosCondition("EARTHQUAKE"), 60, 0)

	var unknown *domain.UnknownConditionError
	if !errors.As(err, &unknown) {
		t.Fatalf("err = %v, want UnknownConditionError", err)
	}
}

func TestChaos_ZeroDurationClears(t *testing.T) {
	c, _ := testSimulator(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	if _, _, err := c.Activate("demo", domain.ChaosRateLimit, 60, 0); err != nil {
		t.Fatalf("activate: %v", err)
	}

	previous, current, err := c.Activate("demo", domain.ChaosRateLimit, 0, 0)
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if current != nil {
		t.Errorf("current = %+v, want nil after clear", current)
	}
	if previous == nil || previous.Condition != domain.ChaosRateLimit {
		t.Errorf("previous = %+v, want the cleared RATE_LIMIT state", previous)
	}

	if decision := c.Check("demo"); decision.ShouldFail {
		t.Errorf("check after clear = %+v, want pass", decision)
	}
}

func TestChaos_ActivationReplacesPrevious(t *testing.T) {
	c, _ := testSimulator(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	if _, _, err := c.Activate("demo", domain.ChaosRateLimit, 60, 0); err != nil {
		t.Fatalf("first activate: %v", err)
	}

	previous, current, err := c.Activate("demo", domain.ChaosTimeout, 60, 0)
	if err != nil {
		t.Fatalf("second activate: %v", err)
	}
	if previous == nil || previous.Condition != domain.ChaosRateLimit {
		t.Errorf("previous = %+v, want RATE_LIMIT", previous)
	}
	if current == nil || current.Condition != domain.ChaosTimeout {
		t.Errorf("current = %+v, want TIMEOUT", current)
	}

	decision := c.Check("demo")
	if decision.StatusCode != http.StatusRequestTimeout {
		t.Errorf("status = %d, want 408 from the replacement condition", decision.StatusCode)
	}
}

func TestChaos_LazyExpiry(t *testing.T) {
	c, clock := testSimulator(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	if _, _, err := c.Activate("demo", domain.ChaosRateLimit, 30, 0); err != nil {
		t.Fatalf("activate: %v", err)
	}

	if decision := c.Check("demo"); !decision.ShouldFail {
		t.Fatal("check before expiry did not fail")
	}

	*clock = clock.Add(31 * time.Second)

	if decision := c.Check("demo"); decision.ShouldFail {
		t.Errorf("check after expiry = %+v, want pass", decision)
	}
	if _, active := c.Status("demo"); active {
		t.Error("expired condition still reported active")
	}
}

func TestChaos_CounterIncrementsWithoutCondition(t *testing.T) {
	c, _ := testSimulator(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	for i := 0; i < 5; i++ {
		if decision := c.Check("demo"); decision.ShouldFail {
			t.Fatalf("check %d failed with no condition active", i)
		}
	}
	if c.counters["demo"] != 5 {
		t.Errorf("counter = %d, want 5", c.counters["demo"])
	}
}

func TestChaos_TenantsIsolated(t *testing.T) {
	c, _ := testSimulator(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	if _, _, err := c.Activate("demo", domain.ChaosRateLimit, 60, 0); err != nil {
		t.Fatalf("activate: %v", err)
	}

	if decision := c.Check("other"); decision.ShouldFail {
		t.Errorf("other tenant failed: %+v", decision)
	}
	if decision := c.Check("demo"); !decision.ShouldFail {
		t.Error("affected tenant did not fail")
	}
}
