// Package storage opens the configured backend and hands out its repositories.
package storage

import (
	"context"
	"fmt"

	"github.com/and161185/chirper/internal/config"
	"github.com/and161185/chirper/internal/limiter"
	"github.com/and161185/chirper/internal/migrate"
	"github.com/and161185/chirper/internal/repository"
	"github.com/and161185/chirper/internal/repository/mongostore"
	"github.com/and161185/chirper/internal/repository/postgres"
	"go.uber.org/zap"
)

// Backend bundles the repositories of one store.
type Backend struct {
	Driver        string
	Accounts      repository.AccountRepository
	Posts         repository.PostRepository
	Notifications repository.NotificationRepository
	Limiter       limiter.Limiter

	ping  func(ctx context.Context) error
	close func(ctx context.Context) error
}

// Ping reports whether the store answers.
func (b *Backend) Ping(ctx context.Context) error { return b.ping(ctx) }

// Close releases connections.
func (b *Backend) Close(ctx context.Context) error { return b.close(ctx) }

// Open connects to the store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig, policy limiter.Policy, log *zap.Logger) (*Backend, error) {
	switch cfg.Driver {
	case "postgres":
		return openPostgres(ctx, cfg.Postgres, policy, log)
	case "mongo":
		return openMongo(ctx, cfg.Mongo, policy, log)
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", cfg.Driver)
	}
}

func openPostgres(ctx context.Context, cfg config.PostgresConfig, policy limiter.Policy, log *zap.Logger) (*Backend, error) {
	if cfg.Migrate {
		if err := migrate.Up(ctx, cfg.DSN); err != nil {
			return nil, fmt.Errorf("migrate up: %w", err)
		}
		log.Info("migrations applied")
	}
	db, err := postgres.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	return &Backend{
		Driver:        "postgres",
		Accounts:      postgres.NewAccountRepo(db),
		Posts:         postgres.NewPostRepo(db),
		Notifications: postgres.NewNotificationRepo(db),
		Limiter:       limiter.NewPG(db.Pool, policy),
		ping:          db.Ping,
		close: func(context.Context) error {
			db.Close()
			return nil
		},
	}, nil
}

func openMongo(ctx context.Context, cfg config.MongoConfig, policy limiter.Policy, log *zap.Logger) (*Backend, error) {
	st, err := mongostore.Connect(ctx, cfg.URI, cfg.Database, cfg.Transactions)
	if err != nil {
		return nil, err
	}
	if err := st.EnsureIndexes(ctx); err != nil {
		_ = st.Close(ctx)
		return nil, fmt.Errorf("mongo indexes: %w", err)
	}
	if !cfg.Transactions {
		log.Warn("mongo transactions disabled; follow and like writes are sequential, run chirpctl reconcile to repair")
	}
	return &Backend{
		Driver:        "mongo",
		Accounts:      st.Accounts(),
		Posts:         st.Posts(),
		Notifications: st.Notifications(),
		Limiter:       limiter.NewMongo(st.Collection(mongostore.LimiterCollection), policy),
		ping:          st.Ping,
		close:         st.Close,
	}, nil
}
