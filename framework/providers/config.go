package providers

import (
	"github.com/km-arc/go-bedrock/framework/config"
	"github.com/km-arc/go-bedrock/framework/container"
)

// ── ConfigServiceProvider ─────────────────────────────────────────────────────

// ConfigServiceProvider binds the service configuration into the container.
// When Config is nil it is loaded from .env and CONFIG_FILE on first use.
//
// Bound abstracts:
//   - "config"          → *config.Config
//   - "configuration"   → alias of "config"
//   - "config.accessor" → *config.Accessor (dotted-path reads of the YAML)
type ConfigServiceProvider struct {
	container.BaseProvider
	Config   *config.Config
	EnvFiles []string
}

func (p *ConfigServiceProvider) Register(app *container.Container) {
	cfg, envFiles := p.Config, p.EnvFiles
	app.Singleton("config", func(c *container.Container) any {
		if cfg != nil {
			return cfg
		}
		loaded, err := config.Load(envFiles...)
		if err != nil {
			panic(err)
		}
		return loaded
	})
	app.Alias("config", "configuration")
	app.Singleton("config.accessor", func(c *container.Container) any {
		return container.Resolve[*config.Config](c, "config").Accessor()
	})
}
