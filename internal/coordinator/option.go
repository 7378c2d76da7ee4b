package coordinator

import (
	"log/slog"
	"time"
)

// Option is a functional option for configuring a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger used for failed operations.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// WithAlerter sets where user-visible alerts go.
func WithAlerter(a Alerter) Option {
	return func(c *Coordinator) { c.alert = a }
}

// WithSession sets the session cleared when the backend answers 401.
func WithSession(s SessionClearer) Option {
	return func(c *Coordinator) { c.session = s }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// WithLocation sets the timezone used for day windows and the calendar.
func WithLocation(loc *time.Location) Option {
	return func(c *Coordinator) { c.loc = loc }
}
