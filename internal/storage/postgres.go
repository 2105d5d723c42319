package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
)

// PostgresConfig holds PostgreSQL connection settings
type PostgresConfig struct {
	// DSN overrides the discrete fields when set
	DSN string

	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	// Migrate applies the schema on open
	Migrate bool
}

// NewPostgresStorage connects to PostgreSQL through pgx.
// The archive tables are expected to exist; Migrate only adds what is missing.
func NewPostgresStorage(ctx context.Context, config PostgresConfig, logger *slog.Logger) (*SQLStorage, error) {
	if config.Host == "" {
		config.Host = "localhost"
	}
	if config.Port == 0 {
		config.Port = 5432
	}
	if config.SSLMode == "" {
		config.SSLMode = "disable"
	}
	if config.MaxOpenConns == 0 {
		config.MaxOpenConns = 25
	}
	if config.MaxIdleConns == 0 {
		config.MaxIdleConns = 10
	}
	if config.ConnMaxLifetime == 0 {
		config.ConnMaxLifetime = 30 * time.Minute
	}
	if config.ConnMaxIdleTime == 0 {
		config.ConnMaxIdleTime = 5 * time.Minute
	}

	db, err := sql.Open("pgx", buildPostgresDSN(config))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	dialect := PostgresDialect()
	if config.Migrate {
		if err := ApplyMigrations(ctx, db, dialect); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply migrations: %w", err)
		}
	}

	return newSQLStorage(db, dialect, logger), nil
}

// buildPostgresDSN builds a postgres:// URL from the discrete fields
func buildPostgresDSN(config PostgresConfig) string {
	if config.DSN != "" {
		return config.DSN
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   config.Host + ":" + strconv.Itoa(config.Port),
		Path:   "/" + config.Database,
	}
	if config.User != "" {
		if config.Password != "" {
			u.User = url.UserPassword(config.User, config.Password)
		} else {
			u.User = url.User(config.User)
		}
	}
	q := url.Values{}
	q.Set("sslmode", config.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
