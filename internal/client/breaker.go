package client

import (
	"time"

	"github.com/sony/gobreaker"

	"github.com/kjstillabower/temp14-service/internal/observability"
)

// BreakerConfig holds circuit breaker parameters.
type BreakerConfig struct {
	Name             string
	FailureThreshold int           // consecutive failures before opening
	Timeout          time.Duration // open duration before a half-open probe
	OnStateChange    func(from, to gobreaker.State)
}

// NewCircuitBreaker builds a breaker that opens after FailureThreshold consecutive
// failures and exports its state on the circuitBreakerState gauge.
func NewCircuitBreaker(cfg BreakerConfig) *gobreaker.CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	threshold := uint32(cfg.FailureThreshold)
	observability.SetCircuitBreakerState(cfg.Name, stateValue(gobreaker.StateClosed))
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			observability.SetCircuitBreakerState(name, stateValue(to))
			if cfg.OnStateChange != nil {
				cfg.OnStateChange(from, to)
			}
		},
	})
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
