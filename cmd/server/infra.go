package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"siren/internal/platform/config"
	platformredis "siren/internal/platform/redis"
	registrymetrics "siren/internal/registry/metrics"
	"siren/internal/registry/service"
	"siren/internal/registry/store"
	"siren/internal/registry/tokencache"
	audit "siren/pkg/platform/audit"
	"siren/pkg/platform/audit/kafka"
	"siren/pkg/platform/audit/publisher"
	auditmemory "siren/pkg/platform/audit/store/memory"
	"siren/pkg/platform/httputil"
)

// infra holds the optional backing services. Every one of them falls back to
// an in-process implementation when it is not configured.
type infra struct {
	tokenStore tokencache.Store
	records    service.RecordStore
	transactor service.Transactor
	auditor    *publisher.Publisher
	// auditReader is set only when events stay in process.
	auditReader audit.Reader

	redis *platformredis.Client
	db    *sql.DB
	kafka *kgo.Client
	log   *slog.Logger

	tokenStoreKind  string
	recordStoreKind string
	auditSinkKind   string
}

func buildInfra(ctx context.Context, cfg config.Config, log *slog.Logger, m *registrymetrics.Metrics) (*infra, error) {
	in := &infra{log: log}
	ok := false
	defer func() {
		if !ok {
			in.Close()
		}
	}()

	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	if redisClient != nil {
		in.redis = redisClient
		in.tokenStore = tokencache.NewRedisStore(redisClient.Client, cfg.Redis.TokenKey)
		in.tokenStoreKind = "redis"
	} else {
		in.tokenStore = tokencache.NewMemoryStore()
		in.tokenStoreKind = "memory"
	}

	if cfg.Database.URL != "" {
		db, err := sql.Open("postgres", cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		in.db = db
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
		if err := store.Migrate(ctx, db); err != nil {
			return nil, err
		}
		in.records = store.NewPostgresRecordStore(db)
		in.transactor = store.NewSQLTransactor(db)
		in.recordStoreKind = "postgres"
	} else {
		in.records = store.NewInMemoryRecordStore()
		in.recordStoreKind = "memory"
	}

	fallback := auditmemory.NewInMemoryStore()
	if len(cfg.Kafka.Brokers) > 0 {
		kc, err := kafka.NewClient(cfg.Kafka.Brokers, cfg.Kafka.AuditTopic)
		if err != nil {
			return nil, err
		}
		in.kafka = kc
		if err := kafka.EnsureTopic(ctx, kc, cfg.Kafka.AuditTopic, cfg.Kafka.Partitions, cfg.Kafka.ReplicationFactor); err != nil {
			log.WarnContext(ctx, "could not ensure audit topic, continuing", "topic", cfg.Kafka.AuditTopic, "error", err)
		}
		sink := kafka.New(kc, cfg.Kafka.AuditTopic, kafka.WithFallback(fallback), kafka.WithLogger(log))
		in.auditor = publisher.NewPublisher(sink, publisher.WithAsyncBuffer(cfg.Kafka.AuditBuffer), publisher.WithLogger(log))
		in.auditSinkKind = "kafka"
	} else {
		in.auditor = publisher.NewPublisher(fallback, publisher.WithAsyncBuffer(cfg.Kafka.AuditBuffer), publisher.WithLogger(log))
		in.auditReader = fallback
		in.auditSinkKind = "memory"
	}

	ok = true
	return in, nil
}

// healthHandler reports whether the configured backing services answer.
func (in *infra) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true
	if in.redis != nil {
		checks["redis"] = status(in.redis.Health(ctx), &healthy)
	}
	if in.db != nil {
		checks["postgres"] = status(in.db.PingContext(ctx), &healthy)
	}
	if in.kafka != nil {
		checks["kafka"] = status(in.kafka.Ping(ctx), &healthy)
	}

	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}
	httputil.WriteJSON(w, code, map[string]any{"healthy": healthy, "checks": checks})
}

func status(err error, healthy *bool) string {
	if err != nil {
		*healthy = false
		return err.Error()
	}
	return "ok"
}

// Close flushes pending audit events before closing the connections they need.
func (in *infra) Close() {
	var errs []error
	if in.auditor != nil {
		errs = append(errs, in.auditor.Close())
	}
	if in.kafka != nil {
		in.kafka.Close()
	}
	if in.db != nil {
		errs = append(errs, in.db.Close())
	}
	if in.redis != nil {
		errs = append(errs, in.redis.Close())
	}
	if err := errors.Join(errs...); err != nil {
		in.log.Warn("error releasing resources", "error", err)
	}
}
