package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/jsamuelsen11/todo-service/internal/domain"
	"github.com/jsamuelsen11/todo-service/internal/platform/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Open builds a lazily connected pool from cfg.DatabaseURL. No connection is
// attempted here, so the process can start while the database is briefly
// unavailable.
func Open(ctx context.Context, cfg config.StorageConfig) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing database url: %w", domain.ErrConnect, err)
	}

	if cfg.MaxConns > 0 {
		pcfg.MaxConns = toInt32(cfg.MaxConns)
	}
	pcfg.MinConns = toInt32(cfg.MinConns)
	if cfg.MaxConnLifetime > 0 {
		pcfg.MaxConnLifetime = cfg.MaxConnLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("%w: creating pool: %w", domain.ErrConnect, err)
	}
	return pool, nil
}

// Migrate applies the embedded migrations over the pool. This is the first
// statement the service sends, so it doubles as the startup connectivity
// check.
func Migrate(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("%w: loading migrations: %w", domain.ErrConnect, err)
	}

	db := stdlib.OpenDBFromPool(pool)
	if err := db.PingContext(ctx); err != nil {
		_ = src.Close()
		return fmt.Errorf("%w: pinging database: %w", domain.ErrConnect, err)
	}

	driver, err := pgxmigrate.WithInstance(db, &pgxmigrate.Config{})
	if err != nil {
		_ = src.Close()
		return fmt.Errorf("%w: creating migration driver: %w", domain.ErrConnect, err)
	}

	m, err := newMigrator(src, driver, migrate.NewWithInstance)
	if err != nil {
		return fmt.Errorf("%w: creating migrator: %w", domain.ErrConnect, err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if err := errors.Join(srcErr, dbErr); err != nil {
			logger.Warn("closing migrator", slog.Any("error", err))
		}
	}()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("%w: applying migrations: %w", domain.ErrConnect, err)
	}

	version, dirty, err := m.Version()
	if err == nil {
		logger.Info("database migrated",
			slog.Uint64("version", uint64(version)),
			slog.Bool("dirty", dirty),
		)
	}
	return nil
}

type migratorFactory func(string, source.Driver, string, database.Driver) (*migrate.Migrate, error)

// newMigrator builds the migrator from src and driver, closing both when
// that fails; on success the migrator owns them.
func newMigrator(src source.Driver, driver database.Driver, build migratorFactory) (*migrate.Migrate, error) {
	m, err := build("iofs", src, "pgx5", driver)
	if err != nil {
		return nil, errors.Join(err, src.Close(), driver.Close())
	}
	return m, nil
}

func toInt32(v int) int32 {
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	return int32(v)
}
