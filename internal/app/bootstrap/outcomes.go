package bootstrap

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	appconfig "github.com/wolfman30/hospital-assistant/internal/config"
	"github.com/wolfman30/hospital-assistant/internal/events"
	"github.com/wolfman30/hospital-assistant/pkg/logging"
)

// ConnectPostgresPool opens the outbox database, or returns nil when the URL
// is empty or the database is unreachable.
func ConnectPostgresPool(ctx context.Context, databaseURL string, logger *logging.Logger) *pgxpool.Pool {
	if strings.TrimSpace(databaseURL) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		logger.Error("failed to create postgres pool", "error", err)
		return nil
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Error("postgres not reachable", "error", err)
		pool.Close()
		return nil
	}
	return pool
}

// OutcomeDelivery bundles the outbox, its deliverer and the broker handle.
type OutcomeDelivery struct {
	Store     *events.OutboxStore
	Deliverer *events.Deliverer
	publisher *events.AMQPPublisher
}

// BuildOutcomeDelivery wires the outbox over pool. Outcomes are published to
// AMQP when AMQP_URL is set, otherwise they are logged. A nil pool disables
// outcome persistence and returns nil.
func BuildOutcomeDelivery(pool *pgxpool.Pool, cfg *appconfig.Config, logger *logging.Logger) *OutcomeDelivery {
	if pool == nil || cfg == nil {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}

	store := events.NewOutboxStore(pool)
	out := &OutcomeDelivery{Store: store}

	var handler events.DeliveryHandler = events.LogHandler(logger)
	if strings.TrimSpace(cfg.AMQPURL) != "" {
		publisher, err := events.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange, logger)
		if err != nil {
			logger.Warn("amqp unavailable; logging flow outcomes instead", "error", err)
		} else {
			out.publisher = publisher
			handler = publisher
			logger.Info("publishing flow outcomes", "exchange", cfg.AMQPExchange)
		}
	}
	out.Deliverer = events.NewDeliverer(store, handler, logger).WithInterval(cfg.OutboxPollInterval)
	return out
}

// Start runs the deliverer until ctx is done.
func (d *OutcomeDelivery) Start(ctx context.Context) {
	if d == nil || d.Deliverer == nil {
		return
	}
	d.Deliverer.Start(ctx)
}

// Close releases the broker connection.
func (d *OutcomeDelivery) Close() error {
	if d == nil || d.publisher == nil {
		return nil
	}
	return d.publisher.Close()
}
