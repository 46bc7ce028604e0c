package health

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

type Config struct {
	CheckInterval time.Duration
	CheckTimeout  time.Duration
	ID            string
}

type Component string

const (
	ComponentLedger Component = "ledger"
	ComponentSlots  Component = "slots"
)

type CheckFunc func(ctx context.Context) error

type CheckResult struct {
	Timestamp time.Time `json:"timestamp"`
	Result    bool      `json:"result"`
	Error     string    `json:"error,omitempty"`
}

type HealthChecks map[Component]CheckResult

type HealthStatus struct {
	Healthy bool         `json:"healthy"`
	Checks  HealthChecks `json:"checks"`
}

type Checker struct {
	config *Config
	funcs  map[Component]CheckFunc
	mu     sync.RWMutex
	checks HealthChecks
	log    *slog.Logger
}

func NewChecker(config *Config) *Checker {
	return &Checker{
		config: config,
		funcs:  map[Component]CheckFunc{},
		checks: HealthChecks{},
		log:    slog.With("pod", config.ID, "component", "health"),
	}
}

// Register adds a check. Until its first run the component counts as
// healthy: registration happens after the initial connection succeeded.
func (c *Checker) Register(component Component, check CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.funcs[component] = check
	c.checks[component] = CheckResult{Timestamp: time.Now(), Result: true}
}

func (c *Checker) Run(ctx context.Context) {
	c.log.Debug("Starting the health checker...")

	ticker := time.NewTicker(c.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.log.Debug("Stopping health checker ...")
			return
		case <-ticker.C:
			c.CheckAll(ctx)
		}
	}
}

func (c *Checker) CheckAll(ctx context.Context) {
	c.mu.RLock()
	funcs := make(map[Component]CheckFunc, len(c.funcs))
	for component, check := range c.funcs {
		funcs[component] = check
	}
	c.mu.RUnlock()

	for component, check := range funcs {
		checkCtx, cancel := context.WithTimeout(ctx, c.config.CheckTimeout)
		err := check(checkCtx)
		cancel()

		result := CheckResult{Timestamp: time.Now(), Result: err == nil}
		if err != nil {
			result.Error = err.Error()
		}

		c.mu.Lock()
		c.checks[component] = result
		c.mu.Unlock()
	}
}

func (c *Checker) GetHealthStatus() HealthStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	healthy := true
	checks := make(HealthChecks, len(c.checks))

	for component, check := range c.checks {
		checks[component] = check
		if !check.Result {
			healthy = false
			c.log.Error("Component health check failed", "component", component,
				"error", check.Error)
		}
	}

	return HealthStatus{
		Healthy: healthy,
		Checks:  checks,
	}
}

// Freshness fails when last reports nothing newer than maxAge. A zero time
// means nothing has been seen yet and counts against startedAt instead.
func Freshness(maxAge time.Duration, startedAt time.Time,
	last func() time.Time) CheckFunc {

	return func(context.Context) error {
		seen := last()
		if seen.IsZero() {
			seen = startedAt
		}

		if age := time.Since(seen); age > maxAge {
			return fmt.Errorf("nothing received for %s", age.Round(time.Second))
		}

		return nil
	}
}
