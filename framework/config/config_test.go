package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/km-arc/go-bedrock/framework/config"
	"github.com/km-arc/go-bedrock/framework/environment"
)

// ── helpers ──────────────────────────────────────────────────────────────────

func setEnv(t *testing.T, key, val string) {
	t.Helper()
	t.Setenv(key, val) // automatically restored after test
}

func mustLoad(t *testing.T, path string) *config.Config {
	t.Helper()
	cfg, err := config.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile(%s): %v", path, err)
	}
	return cfg
}

// ── Load ─────────────────────────────────────────────────────────────────────

func TestLoad_Defaults(t *testing.T) {
	// No file, no env → verify all defaults
	cfg := mustLoad(t, "testdata/missing.yaml")

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"App.Name", cfg.App.Name, "Bedrock"},
		{"App.Env", cfg.App.Env, "local"},
		{"App.Port", cfg.App.Port, "8000"},
		{"App.AdminPort", cfg.App.AdminPort, "8081"},
		{"DB.Driver", cfg.DB.Driver, ""},
		{"DB.Host", cfg.DB.Host, "127.0.0.1"},
		{"Context.Strategy", cfg.Context.Strategy, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestLoad_ReadsDotEnvAndConfigFile(t *testing.T) {
	setEnv(t, "CONFIG_FILE", "testdata/service.yaml")
	t.Cleanup(func() { os.Unsetenv("APP_NAME") })

	cfg, err := config.Load("testdata/app.env")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.App.Name != "FromDotEnv" {
		t.Errorf("App.Name: got %q want %q", cfg.App.Name, "FromDotEnv")
	}
	if cfg.App.Port != "9090" {
		t.Errorf("App.Port: got %q want %q", cfg.App.Port, "9090")
	}
}

func TestLoadFile_YAMLValues(t *testing.T) {
	cfg := mustLoad(t, "testdata/service.yaml")

	if cfg.App.Name != "orders" || cfg.App.Env != "production" || cfg.App.Port != "9090" {
		t.Errorf("App: got %+v", cfg.App)
	}
	if cfg.DB.Driver != "sqlite3" || cfg.DB.Database != ":memory:" {
		t.Errorf("DB: got %+v", cfg.DB)
	}
	if cfg.Context.Strategy != "class" {
		t.Errorf("Context.Strategy: got %q", cfg.Context.Strategy)
	}
	if len(cfg.Context.Locations) != 2 || cfg.Context.Locations[1] != "orders.handlers" {
		t.Errorf("Context.Locations: got %v", cfg.Context.Locations)
	}
	if len(cfg.Context.Profiles) != 1 || cfg.Context.Profiles[0] != "production" {
		t.Errorf("Context.Profiles: got %v", cfg.Context.Profiles)
	}
}

func TestLoadFile_EnvOverridesFile(t *testing.T) {
	setEnv(t, "APP_NAME", "MyApp")
	setEnv(t, "APP_PORT", "9000")
	setEnv(t, "DB_DATABASE", "mydb")

	cfg := mustLoad(t, "testdata/service.yaml")

	if cfg.App.Name != "MyApp" {
		t.Errorf("App.Name: got %q want %q", cfg.App.Name, "MyApp")
	}
	if cfg.App.Port != "9000" {
		t.Errorf("App.Port: got %q want %q", cfg.App.Port, "9000")
	}
	if cfg.DB.Database != "mydb" {
		t.Errorf("DB.Database: got %q want %q", cfg.DB.Database, "mydb")
	}
}

func TestLoadFile_Errors(t *testing.T) {
	if _, err := config.LoadFile("testdata/broken.yaml"); err == nil {
		t.Error("expected parse error")
	}
	if _, err := config.LoadFile(t.TempDir()); err == nil {
		t.Error("expected read error for a directory")
	}
}

func TestLoad_AppDebugTrue(t *testing.T) {
	setEnv(t, "APP_DEBUG", "true")
	cfg := mustLoad(t, "testdata/missing.yaml")
	if !cfg.App.Debug {
		t.Error("expected App.Debug to be true")
	}
}

func TestLoad_AppDebugFalse(t *testing.T) {
	setEnv(t, "APP_DEBUG", "false")
	cfg := mustLoad(t, "testdata/missing.yaml")
	if cfg.App.Debug {
		t.Error("expected App.Debug to be false")
	}
}

// ── Accessor ─────────────────────────────────────────────────────────────────

func TestAccessor_DottedPaths(t *testing.T) {
	acc := mustLoad(t, "testdata/service.yaml").Accessor()

	if got := acc.Read("orders.page-size"); got != 25 {
		t.Errorf("orders.page-size: got %v (%T)", got, got)
	}
	if got := acc.Read("orders.upstream.url"); got != "http://inventory.internal" {
		t.Errorf("orders.upstream.url: got %v", got)
	}
	for _, path := range []string{"", "orders.missing", "orders.page-size.deeper", "nope"} {
		if acc.IsReadable(path) {
			t.Errorf("IsReadable(%q) = true, want false", path)
		}
	}
	if acc.Read("nope") != nil {
		t.Error("Read of an unreadable path should be nil")
	}
}

func TestAccessor_AsPrefixedPropertySource(t *testing.T) {
	acc := mustLoad(t, "testdata/service.yaml").Accessor()

	src, err := environment.NewPrefixedSource("service-config", "svc.", acc)
	if err != nil {
		t.Fatal(err)
	}
	env := environment.New()
	env.PropertySources().InsertFirst(src)

	got, err := env.Resolve("${svc.orders.upstream.url}/items")
	if err != nil {
		t.Fatal(err)
	}
	if got != "http://inventory.internal/items" {
		t.Errorf("got %q", got)
	}
}

// ── NewLogger ────────────────────────────────────────────────────────────────

func TestNewLogger(t *testing.T) {
	for _, envName := range []string{"local", "production"} {
		t.Run(envName, func(t *testing.T) {
			setEnv(t, "APP_ENV", envName)
			logger, err := config.NewLogger(mustLoad(t, filepath.Join("testdata", "missing.yaml")))
			if err != nil {
				t.Fatal(err)
			}
			if logger == nil {
				t.Fatal("nil logger")
			}
		})
	}
}

// ── Get / GetInt / GetBool ───────────────────────────────────────────────────

func TestGet_ReturnsValue(t *testing.T) {
	setEnv(t, "CUSTOM_KEY", "hello")
	if got := config.Get("CUSTOM_KEY", "default"); got != "hello" {
		t.Errorf("got %q want %q", got, "hello")
	}
}

func TestGet_ReturnsFallback(t *testing.T) {
	os.Unsetenv("MISSING_KEY")
	if got := config.Get("MISSING_KEY", "fallback"); got != "fallback" {
		t.Errorf("got %q want %q", got, "fallback")
	}
}

func TestGetInt_ReturnsInt(t *testing.T) {
	setEnv(t, "SOME_INT", "42")
	if got := config.GetInt("SOME_INT", 0); got != 42 {
		t.Errorf("got %d want %d", got, 42)
	}
}

func TestGetInt_ReturnsFallbackOnInvalid(t *testing.T) {
	setEnv(t, "SOME_INT", "notanint")
	if got := config.GetInt("SOME_INT", 99); got != 99 {
		t.Errorf("got %d want %d", got, 99)
	}
}

func TestGetBool_True(t *testing.T) {
	for _, val := range []string{"true", "1", "True", "TRUE"} {
		setEnv(t, "BOOL_KEY", val)
		if !config.GetBool("BOOL_KEY", false) {
			t.Errorf("expected true for %q", val)
		}
	}
}

func TestGetBool_False(t *testing.T) {
	setEnv(t, "BOOL_KEY", "false")
	if config.GetBool("BOOL_KEY", true) {
		t.Error("expected false")
	}
}

func TestGetBool_ReturnsFallbackOnInvalid(t *testing.T) {
	setEnv(t, "BOOL_KEY", "notabool")
	if config.GetBool("BOOL_KEY", true) != true {
		t.Error("expected fallback true")
	}
}
