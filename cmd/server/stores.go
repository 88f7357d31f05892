package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"hrcore/internal/platform/config"
	redisclient "hrcore/internal/platform/redis"
	"hrcore/internal/salary/models"
	audit "hrcore/pkg/platform/audit"
	"hrcore/pkg/platform/audit/redact"
	"hrcore/pkg/platform/audit/store/memory"
	"hrcore/pkg/platform/audit/store/redisstore"
	"hrcore/pkg/platform/audit/store/sqlstore"
)

// auditBackend is the selected audit store plus its lifecycle hooks.
type auditBackend struct {
	store  audit.Store
	health func(ctx context.Context) error
	close  func()
}

func openAuditStore(ctx context.Context, cfg config.Config, log *slog.Logger) (*auditBackend, error) {
	switch cfg.Audit.Store {
	case config.StorePostgres:
		db, err := sqlstore.OpenPostgres(ctx, cfg.Audit.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return sqlBackend(ctx, db, sqlstore.Postgres, log)
	case config.StoreSQLite:
		db, err := sqlstore.OpenSQLite(ctx, cfg.Audit.SQLitePath)
		if err != nil {
			return nil, err
		}
		return sqlBackend(ctx, db, sqlstore.SQLite, log)
	case config.StoreRedis:
		client, err := redisclient.New(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return &auditBackend{
			store:  redisstore.New(client.Client),
			health: client.Health,
			close: func() {
				if err := client.Close(); err != nil {
					log.Error("failed to close redis client", "error", err)
				}
			},
		}, nil
	default:
		log.Warn("audit trail kept in memory and lost on restart")
		return &auditBackend{store: memory.NewInMemoryStore(), close: func() {}}, nil
	}
}

func sqlBackend(ctx context.Context, db *sql.DB, dialect sqlstore.Dialect, log *slog.Logger) (*auditBackend, error) {
	store := sqlstore.New(db, dialect)
	if err := store.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &auditBackend{
		store:  store,
		health: db.PingContext,
		close: func() {
			if err := db.Close(); err != nil {
				log.Error("failed to close audit database", "dialect", dialect.String(), "error", err)
			}
		},
	}, nil
}

// loadRedactionPolicy reads the policy file, or masks the salary defaults when
// none is configured.
func loadRedactionPolicy(path string) (*redact.Policy, error) {
	if path == "" {
		return redact.NewPolicy(redact.NewFieldSet(), map[string]redact.FieldSet{
			models.EntityType: redact.NewFieldSet(models.RedactedFields...),
		}), nil
	}
	policy, err := redact.LoadPolicyFile(path)
	if err != nil {
		return nil, fmt.Errorf("load redaction policy: %w", err)
	}
	return policy, nil
}
