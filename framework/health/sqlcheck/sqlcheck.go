// Package sqlcheck is a health check for database/sql connections.
//
//	env.HealthChecks().Register("db", sqlcheck.New(db))
//	env.HealthChecks().Register("replica", sqlcheck.New(replica,
//	    sqlcheck.WithQuery("SELECT 1"), sqlcheck.WithTimeout(time.Second)))
package sqlcheck

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNoDatabase is returned by Check when the check has no connection.
var ErrNoDatabase = errors.New("sqlcheck: no database")

// Check pings a *sql.DB, or runs a validation query when one is set.
type Check struct {
	db      *sql.DB
	query   string
	timeout time.Duration
}

// Option configures a Check.
type Option func(*Check)

// WithQuery validates with query instead of a ping. The query must return a
// row.
func WithQuery(query string) Option {
	return func(c *Check) { c.query = query }
}

// WithTimeout bounds each check. Zero leaves the caller's deadline alone.
func WithTimeout(d time.Duration) Option {
	return func(c *Check) { c.timeout = d }
}

// New returns a check against db.
func New(db *sql.DB, opts ...Option) *Check {
	c := &Check{db: db}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Check reports whether the database answers.
func (c *Check) Check(ctx context.Context) error {
	if c.db == nil {
		return ErrNoDatabase
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	if c.query == "" {
		if err := c.db.PingContext(ctx); err != nil {
			return fmt.Errorf("sqlcheck: ping: %w", err)
		}
		return nil
	}
	var discard any
	if err := c.db.QueryRowContext(ctx, c.query).Scan(&discard); err != nil {
		return fmt.Errorf("sqlcheck: %q: %w", c.query, err)
	}
	return nil
}
