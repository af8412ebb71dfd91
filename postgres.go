package sqlkit

import (
	"database/sql"

	"github.com/uptrace/bun/driver/pgdriver"
)

// openPostgres opens a handle through the pgdriver connector with the
// configured timeouts. Error mapping also understands pgx's error type,
// so pgx-backed handles can be attached via OpenDB instead.
func openPostgres(cfg Config) (*sql.DB, error) {
	connector := pgdriver.NewConnector(
		pgdriver.WithDSN(cfg.URL),
		pgdriver.WithDialTimeout(cfg.DialTimeout),
		pgdriver.WithReadTimeout(cfg.ReadTimeout),
		pgdriver.WithWriteTimeout(cfg.WriteTimeout),
	)
	return sql.OpenDB(connector), nil
}
