package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Driver names accepted by Open.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Connection holds the database connection
type Connection struct {
	DB     *sql.DB
	Driver string
}

// NewConnection opens the database named by DATABASE_URL, or a Postgres database
// described by the PG* variables when it is unset.
func NewConnection(ctx context.Context) (*Connection, error) {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return Open(ctx, url)
	}

	host := getEnvOrDefault("PGHOST", "localhost")
	port := getEnvOrDefault("PGPORT", "5432")
	user := getEnvOrDefault("PGUSER", "user")
	password := getEnvOrDefault("PGPASSWORD", "password")
	dbname := getEnvOrDefault("PGDATABASE", "immunization")

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)
	return openDriver(ctx, DriverPostgres, dsn)
}

// Open connects using a URL: postgres:// or postgresql:// for Postgres, sqlite:// or
// file: for SQLite. A bare path is opened as a SQLite file.
func Open(ctx context.Context, url string) (*Connection, error) {
	driver, dsn := ParseURL(url)
	return openDriver(ctx, driver, dsn)
}

// ParseURL maps a database URL to a driver name and the DSN that driver expects.
func ParseURL(url string) (driver, dsn string) {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return DriverPostgres, url
	case strings.HasPrefix(url, "sqlite://"):
		return DriverSQLite, strings.TrimPrefix(url, "sqlite://")
	default:
		return DriverSQLite, url
	}
}

func openDriver(ctx context.Context, driver, dsn string) (*Connection, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Set connection pool settings
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(20)
		db.SetMaxIdleConns(10)
	}

	return &Connection{DB: db, Driver: driver}, nil
}

// Close closes the database connection. Closing a nil connection is a no-op.
func (c *Connection) Close() error {
	if c == nil {
		return nil
	}
	return c.DB.Close()
}

// SQL returns the underlying handle, or nil for a nil connection.
func (c *Connection) SQL() *sql.DB {
	if c == nil {
		return nil
	}
	return c.DB
}

// getEnvOrDefault returns environment variable or default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
