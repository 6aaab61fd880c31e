// Package sweeper runs the periodic expiration sweep. Licenses whose window
// has lapsed are moved to expired in bulk, so reads never have to consult the
// clock and the status column can be trusted for reporting.
package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sweepsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "license_sweeps_total",
		Help: "Total number of expiration sweep runs.",
	})
	sweepFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "license_sweep_failures_total",
		Help: "Total number of expiration sweep runs that returned an error.",
	})
	licensesExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "licenses_expired_total",
		Help: "Total number of licenses moved to expired by the sweep.",
	})
)

// Expirer marks overdue licenses expired and reports how many changed.
type Expirer interface {
	MarkExpiredLicenses(ctx context.Context) (int64, error)
}

// Sweeper periodically invokes the expiration sweep.
type Sweeper struct {
	licenses Expirer
	interval time.Duration
	logger   *slog.Logger
}

// New creates a sweeper with the given interval.
func New(licenses Expirer, interval time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		licenses: licenses,
		interval: interval,
		logger:   logger,
	}
}

// Run sweeps on every tick until the context is canceled. An individual
// sweep failure is logged and counted; the loop keeps running because a
// transient database error must not stop future sweeps.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("expiration sweeper started", slog.Duration("interval", s.interval))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("expiration sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	sweepsTotal.Inc()

	count, err := s.licenses.MarkExpiredLicenses(ctx)
	if err != nil {
		sweepFailuresTotal.Inc()
		s.logger.Error("expiration sweep failed", slog.String("error", err.Error()))
		return
	}

	if count > 0 {
		licensesExpiredTotal.Add(float64(count))
	}
}
