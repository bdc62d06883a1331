// Package telemetry reports request-path failures to Sentry when a DSN is
// configured. Every method is a safe no-op on a disabled reporter.
package telemetry

import (
	"context"
	"runtime"
	"strings"
	"time"

	gosentry "github.com/getsentry/sentry-go"

	"pkt.systems/taskdeck/internal/logx"
)

// Config configures the Sentry reporter.
type Config struct {
	DSN         string
	Environment string
	Release     string
	SampleRate  float64
	// BeforeSend lets callers inspect or drop events before delivery.
	BeforeSend func(event *gosentry.Event, hint *gosentry.EventHint) *gosentry.Event
}

// Reporter forwards failures to a Sentry hub.
type Reporter struct {
	hub *gosentry.Hub
}

// New initializes a reporter. An empty DSN yields a disabled reporter.
func New(cfg Config) (*Reporter, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return &Reporter{}, nil
	}
	rate := cfg.SampleRate
	if rate <= 0 {
		rate = 1.0
	}
	client, err := gosentry.NewClient(gosentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          "taskdeck@" + cfg.Release,
		AttachStacktrace: true,
		SampleRate:       rate,
		BeforeSend:       cfg.BeforeSend,
	})
	if err != nil {
		return nil, err
	}
	scope := gosentry.NewScope()
	scope.SetTag("os", runtime.GOOS)
	scope.SetTag("arch", runtime.GOARCH)
	scope.SetTag("go_version", runtime.Version())
	scope.SetTag("version", cfg.Release)
	return &Reporter{hub: gosentry.NewHub(client, scope)}, nil
}

// Enabled reports whether events are delivered anywhere.
func (r *Reporter) Enabled() bool {
	return r != nil && r.hub != nil
}

// ReportFailure captures err tagged with the failing operation and, when
// present, the visitor bound to ctx.
func (r *Reporter) ReportFailure(ctx context.Context, op string, err error) {
	if !r.Enabled() || err == nil {
		return
	}
	// The shared hub's scope stack is not safe for concurrent pushes.
	hub := r.hub.Clone()
	hub.ConfigureScope(func(scope *gosentry.Scope) {
		scope.SetTag("operation", op)
		if visitor := logx.VisitorFromContext(ctx); visitor != "" {
			scope.SetUser(gosentry.User{ID: string(visitor)})
		}
	})
	hub.CaptureException(err)
}

// Flush waits up to timeout for buffered events to be sent.
func (r *Reporter) Flush(timeout time.Duration) bool {
	if !r.Enabled() {
		return true
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return r.hub.Flush(timeout)
}
