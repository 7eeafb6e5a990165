// internal/service/health.go
package service

import (
	"context"
	"time"
)

// Checker reports the state of one dependency as a short word such as
// "connected" or "available". Critical checkers degrade the overall status
// when they report anything other than their healthy value.
type Checker interface {
	Name() string
	Check(ctx context.Context) string
	Healthy() string
	IsCritical() bool
}

// HealthReport is the document served by the health endpoint.
type HealthReport struct {
	Status    string            `json:"status"`
	Services  map[string]string `json:"services"`
	Timestamp time.Time         `json:"timestamp"`
}

type pinger interface {
	Ping(ctx context.Context) error
}

type databaseChecker struct {
	store   pinger
	timeout time.Duration
}

func (c databaseChecker) Name() string     { return "database" }
func (c databaseChecker) Healthy() string  { return "connected" }
func (c databaseChecker) IsCritical() bool { return true }

func (c databaseChecker) Check(ctx context.Context) string {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.store.Ping(ctx); err != nil {
		return "disconnected"
	}
	return "connected"
}

type catalogChecker struct {
	source SourceStatus
}

func (c catalogChecker) Name() string     { return "pbs_api" }
func (c catalogChecker) Healthy() string  { return "available" }
func (c catalogChecker) IsCritical() bool { return false }

func (c catalogChecker) Check(context.Context) string {
	if c.source != nil && !c.source.Available() {
		return "degraded"
	}
	return "available"
}

type webChecker struct {
	web WebInfoProvider
}

func (c webChecker) Name() string     { return "google_search" }
func (c webChecker) Healthy() string  { return "configured" }
func (c webChecker) IsCritical() bool { return false }

func (c webChecker) Check(context.Context) string {
	if c.web != nil && c.web.Configured() {
		return "configured"
	}
	return "not_configured"
}

func runCheckers(ctx context.Context, checkers []Checker, now time.Time) HealthReport {
	report := HealthReport{
		Status:    "healthy",
		Services:  make(map[string]string, len(checkers)),
		Timestamp: now,
	}
	for _, c := range checkers {
		state := c.Check(ctx)
		report.Services[c.Name()] = state
		if c.IsCritical() && state != c.Healthy() {
			report.Status = "degraded"
		}
	}
	return report
}
