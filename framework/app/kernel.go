package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/km-arc/go-bedrock/framework/bootstrap"
	"github.com/km-arc/go-bedrock/framework/config"
	"github.com/km-arc/go-bedrock/framework/container"
	"github.com/km-arc/go-bedrock/framework/host"
	"github.com/km-arc/go-bedrock/framework/providers"
)

// Names under which the host singletons and the configuration property
// source are visible inside the container.
const (
	ConfigName      = "config"
	EnvironmentName = "environment"
	ConfigPrefix    = "config."
)

const shutdownTimeout = 15 * time.Second

// Application runs one service: it builds the container described by the
// config's "context" section, registers the container's components with the
// host runtime and serves the application and admin ports.
//
//	cfg, _ := config.Load()
//	logger, _ := config.NewLogger(cfg)
//	application := app.New(cfg, logger, catalog)
//	if err := application.Bootstrap(); err != nil {
//	    logger.Fatal("bootstrap failed", zap.Error(err))
//	}
//	application.Run(ctx)
type Application struct {
	Config    *config.Config
	Logger    *zap.Logger
	Host      *host.Environment
	Builder   *bootstrap.Builder
	Registrar *bootstrap.Registrar

	securityPattern string
}

// Option configures an Application.
type Option func(*Application)

// WithSecurityFilter installs the container's security filter chain in front
// of pattern during Bootstrap.
func WithSecurityFilter(pattern string) Option {
	return func(a *Application) { a.securityPattern = pattern }
}

// New creates the application. The framework's definition kinds are added
// to catalog, and a nil catalog is treated as empty.
func New(cfg *config.Config, logger *zap.Logger, catalog *container.Catalog, opts ...Option) *Application {
	if logger == nil {
		logger = zap.NewNop()
	}
	if catalog == nil {
		catalog = container.NewCatalog()
	}
	providers.RegisterKinds(catalog)

	env := host.NewEnvironment(cfg.App.Name, host.Options{
		HealthTimeout: 5 * time.Second,
		LogRequests:   cfg.App.Debug,
		Logger:        logger,
	})
	builder := bootstrap.NewBuilder(catalog, logger)

	a := &Application{
		Config:    cfg,
		Logger:    logger,
		Host:      env,
		Builder:   builder,
		Registrar: bootstrap.NewRegistrar(builder, env, logger),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Bootstrap builds the container, exposes the configuration and the host to
// it, and registers every component with the host. Any error is fatal to
// startup.
func (a *Application) Bootstrap() error {
	desc, err := bootstrap.DescriptorFromConfig(a.Config.Context)
	if err != nil {
		return err
	}
	if err := a.Builder.BuildFromDescriptor(desc); err != nil {
		return err
	}
	if err := a.Builder.RegisterPropertySource(ConfigPrefix, a.Config.Accessor()); err != nil {
		return err
	}
	if err := a.Builder.RegisterConfiguration(ConfigName, a.Config); err != nil {
		return err
	}
	if err := a.Builder.RegisterEnvironment(EnvironmentName, a.Host); err != nil {
		return err
	}

	if err := a.Registrar.RegisterAll(); err != nil {
		return err
	}
	if a.securityPattern != "" {
		if err := a.Registrar.RegisterSecurityFilterChain(a.securityPattern); err != nil {
			return err
		}
	}

	a.Logger.Info("bootstrap complete",
		zap.String("strategy", desc.Strategy.String()),
		zap.Strings("locations", desc.Locations),
		zap.Strings("checks", a.Host.HealthChecks().Names()),
		zap.Strings("tasks", a.Host.Admin().TaskNames()),
	)
	return nil
}

// Container resolves the bootstrapped container.
func (a *Application) Container() *container.Container {
	c, _ := a.Builder.Container()
	return c
}

// Run starts managed objects, serves both ports until ctx is done or a
// server fails, then shuts everything down in reverse.
func (a *Application) Run(ctx context.Context) error {
	appLn, err := net.Listen("tcp", ":"+a.Config.App.Port)
	if err != nil {
		return fmt.Errorf("app: listen: %w", err)
	}
	adminLn, err := net.Listen("tcp", ":"+a.Config.App.AdminPort)
	if err != nil {
		_ = appLn.Close()
		return fmt.Errorf("app: listen admin: %w", err)
	}
	return a.Serve(ctx, appLn, adminLn)
}

// Serve is Run over listeners the caller opened.
func (a *Application) Serve(ctx context.Context, appLn, adminLn net.Listener) error {
	if err := a.Host.Lifecycle().Start(ctx); err != nil {
		_ = appLn.Close()
		_ = adminLn.Close()
		return err
	}

	servers := []*http.Server{
		{Handler: a.Host.Handler(), ReadHeaderTimeout: 10 * time.Second},
		{Handler: a.Host.AdminHandler(), ReadHeaderTimeout: 10 * time.Second},
	}
	listeners := []net.Listener{appLn, adminLn}

	errc := make(chan error, len(servers))
	for i, srv := range servers {
		a.Logger.Info("listening", zap.String("addr", listeners[i].Addr().String()))
		go func() {
			if err := srv.Serve(listeners[i]); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errc <- err
			}
		}()
	}

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errc:
		a.Logger.Error("server failed", zap.Error(serveErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	errs := []error{serveErr}
	for _, srv := range servers {
		errs = append(errs, srv.Shutdown(shutdownCtx))
	}
	errs = append(errs, a.Host.Lifecycle().Stop(shutdownCtx))
	return errors.Join(errs...)
}

// Environment returns APP_ENV value.
func (a *Application) Environment() string { return a.Config.App.Env }
func (a *Application) IsLocal() bool       { return a.Environment() == "local" }
func (a *Application) IsProduction() bool  { return a.Environment() == "production" }
func (a *Application) IsTesting() bool     { return a.Environment() == "testing" }
func (a *Application) IsDebug() bool       { return a.Config.App.Debug }
