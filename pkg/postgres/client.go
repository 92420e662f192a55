// Package postgres opens the connection pool behind the postgres document
// store driver.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/linksuggest/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/pkg/resilience"
)

type Client struct {
	DB *sql.DB
}

// New opens the pool and waits for the server to answer, retrying while it
// starts up.
func New(ctx context.Context, cfg config.PostgresConfig) (*Client, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	retry := resilience.RetryConfig{MaxAttempts: 5, InitialDelay: 500 * time.Millisecond, MaxDelay: 5 * time.Second}
	err = resilience.Retry(ctx, "postgres ping", retry, func() error {
		return resilience.WithTimeout(ctx, 5*time.Second, "postgres ping", db.PingContext)
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return &Client{DB: db}, nil
}

// Ping reports whether the server answers.
func (c *Client) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

func (c *Client) Close() error {
	return c.DB.Close()
}
