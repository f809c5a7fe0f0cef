package trade

import (
	"context"
	"time"

	"github.com/ksred/ventil-api/internal/observability"
	"github.com/rs/zerolog/log"
)

// Monitor periodically reports the registry's open trades
type Monitor struct {
	registry *Registry
	interval time.Duration
}

func NewMonitor(registry *Registry, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Monitor{
		registry: registry,
		interval: interval,
	}
}

// Start runs the reporting loop until ctx is cancelled
func (m *Monitor) Start(ctx context.Context) {
	logger := log.With().Str("component", "trade_monitor").Logger()
	logger.Info().Dur("interval", m.interval).Msg("starting trade monitor")

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("shutting down trade monitor")
			return
		case <-ticker.C:
			m.report(time.Now())
		}
	}
}

// report publishes the open trade count and logs the oldest negotiation
func (m *Monitor) report(now time.Time) (open int, oldest time.Duration) {
	trades := m.registry.List()
	observability.SetOpenTrades(len(trades))

	for _, t := range trades {
		if age := now.Sub(t.OpenedAt); age > oldest {
			oldest = age
		}
	}

	if len(trades) > 0 {
		log.Info().
			Str("component", "trade_monitor").
			Int("open_trades", len(trades)).
			Dur("oldest_age", oldest).
			Msg("open trades")
	}

	return len(trades), oldest
}
