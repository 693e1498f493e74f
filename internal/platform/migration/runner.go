// Copyright (c) 2026 Folio. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package migration provides a thin wrapper around golang-migrate for
// running the embedded database schema migrations.
//
// # Architecture
//
// This package belongs to the Infrastructure layer. The SQL files are compiled
// into the binary, so the API server and the operator CLI always agree on the
// schema version they expect.
package migration

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	// pgx5 driver registers "pgx5" scheme for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgconn"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Status describes the schema version of a database.
type Status struct {
	Version uint
	Dirty   bool
}

// RunUp applies all pending UP migrations.
//
// # Parameters
//   - dsn: A postgres:// URL or a key/value DSN.
//   - logger: Structured logger for migration events.
func RunUp(dsn string, logger *slog.Logger) error {
	migrator, err := newMigrator(dsn, logger)
	if err != nil {
		return err
	}
	defer closeMigrator(migrator, logger)

	currentVersion, isDirty, err := migrator.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("migration: failed to get current version: %w", err)
	}

	if isDirty {
		return fmt.Errorf("migration: database is in a dirty state at version %d (manual intervention required)", currentVersion)
	}

	logger.Info("migration_started", slog.Int("current_version", int(currentVersion)))

	if err := migrator.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("migration_already_up_to_date")
			return nil
		}
		return fmt.Errorf("migration: up failed: %w", err)
	}

	newVersion, _, _ := migrator.Version()
	logger.Info("migration_successful",
		slog.Int("from_version", int(currentVersion)),
		slog.Int("to_version", int(newVersion)),
	)

	return nil
}

// RunDown rolls back the given number of migrations. Steps must be positive.
func RunDown(dsn string, steps int, logger *slog.Logger) error {
	if steps < 1 {
		return fmt.Errorf("migration: steps must be positive, got %d", steps)
	}

	migrator, err := newMigrator(dsn, logger)
	if err != nil {
		return err
	}
	defer closeMigrator(migrator, logger)

	if err := migrator.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration: down failed: %w", err)
	}

	logger.Info("migration_rolled_back", slog.Int("steps", steps))
	return nil
}

// CurrentStatus reports the applied schema version. A fresh database is version 0.
func CurrentStatus(dsn string, logger *slog.Logger) (Status, error) {
	migrator, err := newMigrator(dsn, logger)
	if err != nil {
		return Status{}, err
	}
	defer closeMigrator(migrator, logger)

	version, dirty, err := migrator.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return Status{}, nil
	}
	if err != nil {
		return Status{}, fmt.Errorf("migration: failed to get current version: %w", err)
	}

	return Status{Version: version, Dirty: dirty}, nil
}

func newMigrator(dsn string, logger *slog.Logger) (*migrate.Migrate, error) {
	if dsn == "" {
		return nil, errors.New("migration: database DSN is empty")
	}

	sourceDriver, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("migration: failed to open embedded source: %w", err)
	}

	// golang-migrate pgx/v5 driver expects "pgx5://" scheme.
	databaseURL, err := convertToPgx5DSN(dsn)
	if err != nil {
		_ = sourceDriver.Close()
		return nil, err
	}

	migrator, err := migrate.NewWithSourceInstance("iofs", sourceDriver, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("migration: failed to initialize: %w", err)
	}

	// Enable verbose logging via the slog bridge.
	migrator.Log = &migrateLogger{logger: logger}

	return migrator, nil
}

func closeMigrator(migrator *migrate.Migrate, logger *slog.Logger) {
	sourceError, dbError := migrator.Close()
	if sourceError != nil {
		logger.Error("migration_source_close_failed", slog.Any("error", sourceError))
	}
	if dbError != nil {
		logger.Error("migration_db_close_failed", slog.Any("error", dbError))
	}
}

// convertToPgx5DSN ensures the DSN uses the pgx5:// scheme required by golang-migrate/v4.
//
// Key/value DSNs ("host=... dbname=...") are accepted by pgxpool but not by
// golang-migrate, so they are parsed with pgconn and rebuilt as a URL.
func convertToPgx5DSN(dsn string) (string, error) {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if rest, found := strings.CutPrefix(dsn, prefix); found {
			return "pgx5://" + rest, nil
		}
	}

	if strings.Contains(dsn, "://") {
		return dsn, nil
	}

	config, err := pgconn.ParseConfig(dsn)
	if err != nil {
		return "", fmt.Errorf("migration: invalid database DSN: %w", err)
	}

	query := url.Values{}
	for key, value := range config.RuntimeParams {
		query.Set(key, value)
	}
	query.Set("sslmode", sslMode(config))

	target := url.URL{Scheme: "pgx5", Path: "/" + config.Database}

	// Unix socket directories travel as a query parameter.
	if strings.HasPrefix(config.Host, "/") {
		query.Set("host", config.Host)
		query.Set("port", strconv.Itoa(int(config.Port)))
	} else {
		target.Host = net.JoinHostPort(config.Host, strconv.Itoa(int(config.Port)))
	}

	if config.Password != "" {
		target.User = url.UserPassword(config.User, config.Password)
	} else if config.User != "" {
		target.User = url.User(config.User)
	}

	target.RawQuery = query.Encode()
	return target.String(), nil
}

// sslMode recovers the sslmode keyword from a parsed pgconn config.
func sslMode(config *pgconn.Config) string {
	switch {
	case config.TLSConfig == nil:
		return "disable"
	case hasPlaintextFallback(config):
		return "prefer"
	case config.TLSConfig.InsecureSkipVerify:
		return "require"
	default:
		return "verify-full"
	}
}

func hasPlaintextFallback(config *pgconn.Config) bool {
	for _, fallback := range config.Fallbacks {
		if fallback.TLSConfig == nil {
			return true
		}
	}
	return false
}

// migrateLogger adapts golang-migrate's logger interface to slog.
type migrateLogger struct {
	logger  *slog.Logger
	verbose bool
}

// Printf implements migrate.Logger.
func (l *migrateLogger) Printf(format string, args ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// Verbose implements migrate.Logger.
func (l *migrateLogger) Verbose() bool {
	return l.verbose
}
