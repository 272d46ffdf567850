package providers_test

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-bedrock/framework/config"
	"github.com/km-arc/go-bedrock/framework/container"
	"github.com/km-arc/go-bedrock/framework/host"
	"github.com/km-arc/go-bedrock/framework/providers"
)

func TestDSN(t *testing.T) {
	tests := []struct {
		name       string
		cfg        config.DBConfig
		wantDriver string
		wantDSN    string
	}{
		{
			name:       "mysql",
			cfg:        config.DBConfig{Driver: "mysql", Host: "db", Database: "orders", Username: "app", Password: "secret"},
			wantDriver: "mysql",
			wantDSN:    "app:secret@tcp(db:3306)/orders",
		},
		{
			name:       "postgres",
			cfg:        config.DBConfig{Driver: "postgres", Host: "db", Port: "6432", Database: "orders", Username: "app", Password: "secret"},
			wantDriver: "postgres",
			wantDSN:    "postgres://app:secret@db:6432/orders?sslmode=disable",
		},
		{
			name:       "sqlite default",
			cfg:        config.DBConfig{Driver: "sqlite"},
			wantDriver: "sqlite3",
			wantDSN:    ":memory:",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			driver, dsn, err := providers.DSN(tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.wantDriver, driver)
			assert.Contains(t, dsn, tt.wantDSN)
		})
	}

	_, _, err := providers.DSN(config.DBConfig{Driver: "oracle"})
	assert.ErrorIs(t, err, providers.ErrUnsupportedDriver)
}

func TestOpenDB_SQLite(t *testing.T) {
	db, err := providers.OpenDB(config.DBConfig{Driver: "sqlite3", Database: ":memory:"})
	require.NoError(t, err)
	assert.NoError(t, db.Close())
}

func refreshed(t *testing.T, cfg *config.Config) *container.Container {
	t.Helper()
	c := container.New()
	c.Register(&providers.ConfigServiceProvider{Config: cfg})
	c.Register(&providers.DatabaseServiceProvider{})
	require.NoError(t, c.Refresh())
	return c
}

func TestProviders_BindConfigAndDatabase(t *testing.T) {
	cfg, err := config.Parse([]byte("database:\n  driver: sqlite3\norders:\n  page-size: 10\n"))
	require.NoError(t, err)

	c := refreshed(t, cfg)

	got, err := container.Get[*config.Config](c, "configuration")
	require.NoError(t, err)
	assert.Same(t, cfg, got)

	acc, err := container.Get[*config.Accessor](c, "config.accessor")
	require.NoError(t, err)
	assert.Equal(t, 10, acc.Read("orders.page-size"))

	_, err = container.Get[*sql.DB](c, "db")
	require.NoError(t, err)

	checks, err := container.FindByType[host.HealthCheck](c)
	require.NoError(t, err)
	require.Len(t, checks, 1)
	assert.Equal(t, "db.health", checks[0].Name)
	assert.NoError(t, checks[0].Component.Check(context.Background()))

	managed, err := container.FindByType[host.Managed](c)
	require.NoError(t, err)
	require.Len(t, managed, 1)
	assert.Equal(t, "db.lifecycle", managed[0].Name)
	require.NoError(t, managed[0].Component.Start(context.Background()))
	require.NoError(t, managed[0].Component.Stop(context.Background()))
}

func TestProviders_BadDriverFailsRefresh(t *testing.T) {
	cfg, err := config.Parse([]byte("database:\n  driver: oracle\n"))
	require.NoError(t, err)

	c := container.New()
	c.Register(&providers.ConfigServiceProvider{Config: cfg})
	c.Register(&providers.DatabaseServiceProvider{})

	err = c.Refresh()
	var re *container.RefreshError
	require.ErrorAs(t, err, &re)
	assert.ErrorIs(t, err, providers.ErrUnsupportedDriver)
}

func TestRegisterKinds_SQLPing(t *testing.T) {
	dir := t.TempDir()
	def := []byte(`components:
  - name: primary.health
    kind: sql.ping
    properties:
      query: SELECT 1
      timeout: 1s
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "health.yaml"), def, 0o600))

	catalog := providers.RegisterKinds(container.NewCatalog())
	c, err := container.NewFromLocations(catalog, filepath.Join(dir, "*.yaml"))
	require.NoError(t, err)
	c.Register(&providers.DatabaseServiceProvider{Config: &config.DBConfig{Driver: "sqlite3"}})
	require.NoError(t, c.Refresh())

	checks, err := container.FindByType[host.HealthCheck](c)
	require.NoError(t, err)
	names := make([]string, len(checks))
	for i, e := range checks {
		names[i] = e.Name
		assert.NoError(t, e.Component.Check(context.Background()))
	}
	assert.Equal(t, []string{"db.health", "primary.health"}, names)
}
