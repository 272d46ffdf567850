package providers

import (
	"database/sql"

	"github.com/km-arc/go-bedrock/framework/container"
	"github.com/km-arc/go-bedrock/framework/health/sqlcheck"
)

// RegisterKinds adds the framework's definition kinds to cat:
//
//	sql.ping  sqlcheck.Check against a *sql.DB.
//	          properties: db (component name, default "db"), query, timeout
func RegisterKinds(cat *container.Catalog) *container.Catalog {
	return cat.Kind("sql.ping", func(c *container.Container, props container.Properties) (any, error) {
		db, err := container.Get[*sql.DB](c, props.String("db", "db"))
		if err != nil {
			return nil, err
		}
		timeout, err := props.Duration("timeout", 0)
		if err != nil {
			return nil, err
		}
		return sqlcheck.New(db,
			sqlcheck.WithQuery(props.String("query", "")),
			sqlcheck.WithTimeout(timeout),
		), nil
	})
}
