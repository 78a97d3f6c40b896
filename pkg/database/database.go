// Package database opens the SQL store that backs the "database" data source.
package database

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/noah-isme/sdg-impact-api/pkg/config"
)

const (
	postgresDriver = "postgres"
	sqliteDriver   = "sqlite"

	defaultSQLitePath = "./sdg_impact.db"
	connectTimeout    = 5 * time.Second
)

func init() {
	// modernc registers as "sqlite", which sqlx does not know.
	sqlx.BindDriver(sqliteDriver, sqlx.QUESTION)
}

// Open connects to the configured driver and verifies the connection.
func Open(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	driver, dsn, err := DSN(cfg)
	if err != nil {
		return nil, err
	}
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	tunePool(db, driver, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return db, nil
}

// DSN resolves the driver name and connection string for cfg.
func DSN(cfg config.DatabaseConfig) (string, string, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		u := url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(cfg.User, cfg.Password),
			Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
			Path:   "/" + cfg.Name,
		}
		q := url.Values{}
		if cfg.SSLMode != "" {
			q.Set("sslmode", cfg.SSLMode)
		}
		u.RawQuery = q.Encode()
		return postgresDriver, u.String(), nil
	case config.DriverSQLite, "":
		path := cfg.SQLitePath
		if path == "" {
			path = defaultSQLitePath
		}
		return sqliteDriver, "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", nil
	default:
		return "", "", fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func tunePool(db *sqlx.DB, driver string, cfg config.DatabaseConfig) {
	if driver == sqliteDriver {
		// single writer
		db.SetMaxOpenConns(1)
		return
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(30 * time.Minute)
}
