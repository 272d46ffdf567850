package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultFile is read when CONFIG_FILE is not set. A missing file is not an
// error; the service then runs on env vars and defaults alone.
const DefaultFile = "config.yaml"

// Config is the central typed configuration struct. Values come from the
// service's YAML file, env vars override them, and defaults fill the rest.
type Config struct {
	App     AppConfig
	DB      DBConfig
	Context ContextConfig

	// values is the whole YAML document, exposed through Accessor so
	// definition files can reference any key.
	values map[string]any
}

type AppConfig struct {
	Name      string `yaml:"name"`
	Env       string `yaml:"env"` // local | production | testing
	Debug     bool   `yaml:"debug"`
	Port      string `yaml:"port"`
	AdminPort string `yaml:"admin_port"`
}

type DBConfig struct {
	Driver   string `yaml:"driver"` // mysql | postgres | sqlite3, empty disables the database
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// ContextConfig is the "context" section: how the service's container is
// built.
//
//	context:
//	  strategy: class
//	  locations: [orders.Config, orders.handlers]
//	  profiles: [production]
type ContextConfig struct {
	Strategy  string   `yaml:"strategy"`
	Locations []string `yaml:"locations"`
	Profiles  []string `yaml:"profiles"`
}

type fileConfig struct {
	App      AppConfig     `yaml:"app"`
	Database DBConfig      `yaml:"database"`
	Context  ContextConfig `yaml:"context"`
}

// Load reads .env (if present), then the YAML file named by CONFIG_FILE
// (default config.yaml), and populates a Config.
//
//	cfg, err := config.Load()
func Load(envFiles ...string) (*Config, error) {
	files := envFiles
	if len(files) == 0 {
		files = []string{".env"}
	}
	// Non-fatal: .env may not exist in production
	_ = godotenv.Load(files...)

	return LoadFile(env("CONFIG_FILE", DefaultFile))
}

// LoadFile populates a Config from path plus the process environment. A
// missing file yields a config built from env vars and defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse builds a Config from a YAML document plus the process environment.
func Parse(data []byte) (*Config, error) {
	var file fileConfig
	values := map[string]any{}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("config: parse: %w", err)
		}
		if err := yaml.Unmarshal(data, &values); err != nil {
			return nil, fmt.Errorf("config: parse: %w", err)
		}
	}

	return &Config{
		App: AppConfig{
			Name:      env("APP_NAME", or(file.App.Name, "Bedrock")),
			Env:       env("APP_ENV", or(file.App.Env, "local")),
			Debug:     envBool("APP_DEBUG", file.App.Debug),
			Port:      env("APP_PORT", or(file.App.Port, "8000")),
			AdminPort: env("APP_ADMIN_PORT", or(file.App.AdminPort, "8081")),
		},
		DB: DBConfig{
			Driver:   env("DB_DRIVER", file.Database.Driver),
			Host:     env("DB_HOST", or(file.Database.Host, "127.0.0.1")),
			Port:     env("DB_PORT", file.Database.Port),
			Database: env("DB_DATABASE", file.Database.Database),
			Username: env("DB_USERNAME", file.Database.Username),
			Password: env("DB_PASSWORD", file.Database.Password),
		},
		Context: ContextConfig{
			Strategy:  env("CONTEXT_STRATEGY", file.Context.Strategy),
			Locations: file.Context.Locations,
			Profiles:  file.Context.Profiles,
		},
		values: values,
	}, nil
}

// IsLocal reports whether the service runs in a developer setting.
func (c *Config) IsLocal() bool { return c.App.Env == "local" || c.App.Env == "testing" }

// Accessor exposes the YAML document for property lookups by dotted path.
func (c *Config) Accessor() *Accessor { return &Accessor{root: c.values} }

// Get returns a raw env value, falling back to defaultVal.
func Get(key, defaultVal string) string {
	return env(key, defaultVal)
}

// GetInt returns an int env value.
func GetInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

// GetBool returns a bool env value.
func GetBool(key string, defaultVal bool) bool {
	return envBool(key, defaultVal)
}

// ── helpers ─────────────────────────────────────────────────────────────────

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func or(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}
