package bootstrap_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/km-arc/go-bedrock/framework/bootstrap"
	"github.com/km-arc/go-bedrock/framework/capability"
	"github.com/km-arc/go-bedrock/framework/container"
	"github.com/km-arc/go-bedrock/framework/host"
	"github.com/km-arc/go-bedrock/framework/routing"
)

func newHost() *host.Environment {
	return host.NewEnvironment("test", host.Options{})
}

// ── components ───────────────────────────────────────────────────────────────

type pingResource struct{}

func (pingResource) Pattern() string { return "/ping" }
func (pingResource) Routes(r *routing.Router) {
	r.Get("/", func(w http.ResponseWriter, _ *http.Request) { _, _ = io.WriteString(w, "pong") })
}

type headerProvider struct{}

func (headerProvider) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("X-Provided", "1")
		next.ServeHTTP(w, r)
	})
}

type tenantInjector struct{}

func (tenantInjector) Key() any                             { return "tenant" }
func (tenantInjector) Provide(r *http.Request) (any, error) { return r.Header.Get("X-Tenant"), nil }

type reindexTask struct{}

func (reindexTask) Name() string { return "reindex" }
func (reindexTask) Execute(_ context.Context, _ url.Values, w io.Writer) error {
	_, err := io.WriteString(w, "reindexed")
	return err
}

type queueConsumer struct{ started bool }

func (q *queueConsumer) Start(context.Context) error { q.started = true; return nil }
func (q *queueConsumer) Stop(context.Context) error  { q.started = false; return nil }

type jettyServer struct{ running bool }

func (j *jettyServer) Start() error    { j.running = true; return nil }
func (j *jettyServer) Stop() error     { j.running = false; return nil }
func (j *jettyServer) IsRunning() bool { return j.running }

// appConfig registers one component of every capability and counts how
// often it is registered, i.e. how often the container refreshed.
type appConfig struct {
	container.BaseProvider
	registered     int
	parentWasReady bool
	consumer       *queueConsumer
	server         *jettyServer
}

func (p *appConfig) Register(app *container.Container) {
	p.registered++
	p.parentWasReady = app.Parent() != nil && app.Parent().IsActive()

	app.Instance("db.probe", host.HealthCheckFunc(func(context.Context) error { return nil }))
	app.Instance("ping.resource", pingResource{})
	app.Instance("header.provider", headerProvider{})
	app.Tag([]string{"ping.resource"}, capability.Resource)
	app.Tag([]string{"header.provider"}, capability.Provider)
	app.Instance("tenant.injector", tenantInjector{})
	app.Instance("reindex.task", reindexTask{})
	app.Instance("queue.consumer", p.consumer)
	app.Instance("jetty.server", p.server)
}

func newAppConfig() *appConfig {
	return &appConfig{consumer: &queueConsumer{}, server: &jettyServer{}}
}

func setup(t *testing.T, cfg *appConfig) (*bootstrap.Builder, *host.Environment, *bootstrap.Registrar, *observer.ObservedLogs) {
	t.Helper()
	b := bootstrap.NewBuilder(container.NewCatalog().Add("app.Config", cfg), nil)
	require.NoError(t, b.BuildContainer(bootstrap.ClassBased, "app.Config"))

	core, logs := observer.New(zap.InfoLevel)
	env := newHost()
	return b, env, bootstrap.NewRegistrar(b, env, zap.New(core)), logs
}

// ── refresh ──────────────────────────────────────────────────────────────────

func TestRegistrar_NoContainer(t *testing.T) {
	r := bootstrap.NewRegistrar(bootstrap.NewBuilder(nil, nil), newHost(), nil)

	calls := map[string]func() error{
		"health":      r.RegisterHealthProbes,
		"resources":   r.RegisterResources,
		"providers":   r.RegisterContextProviders,
		"injectables": r.RegisterInjectableProviders,
		"tasks":       r.RegisterTasks,
		"managed":     r.RegisterManaged,
		"lifecycles":  r.RegisterLifecycles,
		"all":         r.RegisterAll,
		"security":    func() error { return r.RegisterSecurityFilterChain("/*") },
	}
	for name, call := range calls {
		assert.ErrorIs(t, call(), bootstrap.ErrNoContainer, name)
	}
}

func TestRegistrar_RefreshesOnceParentFirst(t *testing.T) {
	cfg := newAppConfig()
	b, _, r, _ := setup(t, cfg)

	c, _ := b.Container()
	assert.False(t, c.IsActive())

	require.NoError(t, r.RegisterHealthProbes())
	require.NoError(t, r.RegisterManaged())

	assert.Equal(t, 1, cfg.registered, "refresh happens exactly once")
	assert.True(t, cfg.parentWasReady, "the parent refreshes before the child")
	assert.True(t, c.IsActive())
	assert.True(t, b.Parent().IsActive())
}

func TestRegistrar_AdoptedContainerWithoutParent(t *testing.T) {
	c := container.New()
	c.Instance("probe", host.HealthCheckFunc(func(context.Context) error { return nil }))

	b := bootstrap.NewBuilder(nil, nil)
	require.NoError(t, b.SetContainer(c))
	env := newHost()
	require.NoError(t, bootstrap.NewRegistrar(b, env, nil).RegisterHealthProbes())

	assert.True(t, c.IsActive())
	assert.Equal(t, []string{"probe"}, env.HealthChecks().Names())
}

func TestRegistrar_RefreshFailurePropagates(t *testing.T) {
	c := container.New()
	c.Singleton("broken", func(*container.Container) any { panic(errors.New("no connection")) })

	b := bootstrap.NewBuilder(nil, nil)
	require.NoError(t, b.SetContainer(c))
	err := bootstrap.NewRegistrar(b, newHost(), nil).RegisterTasks()

	var re *container.RefreshError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "broken", re.Component)
}

// ── capabilities ─────────────────────────────────────────────────────────────

func TestRegistrar_HealthProbeRoundTrip(t *testing.T) {
	_, env, r, logs := setup(t, newAppConfig())

	require.NoError(t, r.RegisterHealthProbes())

	assert.Equal(t, []string{"db.probe"}, env.HealthChecks().Names())
	entries := logs.FilterMessage("registering health check").All()
	require.Len(t, entries, 1, "forwarded exactly once")
	assert.Equal(t, "db.probe", entries[0].ContextMap()["name"])
}

func TestRegistrar_RegisterAll(t *testing.T) {
	cfg := newAppConfig()
	_, env, r, logs := setup(t, cfg)

	require.NoError(t, r.RegisterAll())

	assert.Equal(t, []string{"db.probe"}, env.HealthChecks().Names())
	assert.Equal(t, []string{"reindex"}, env.Admin().TaskNames())
	assert.Equal(t, 1, env.Resources().Len())
	// admin scheduler + queue consumer + jetty server
	assert.Equal(t, 3, env.Lifecycle().Len())

	req := httptest.NewRequest(http.MethodGet, "/ping/", nil)
	rr := httptest.NewRecorder()
	env.Handler().ServeHTTP(rr, req)
	assert.Equal(t, "pong", rr.Body.String())
	assert.Equal(t, "1", rr.Header().Get("X-Provided"))

	require.NoError(t, env.Lifecycle().Start(context.Background()))
	assert.True(t, cfg.consumer.started)
	assert.True(t, cfg.server.IsRunning())
	require.NoError(t, env.Lifecycle().Stop(context.Background()))
	assert.False(t, cfg.server.IsRunning())

	for _, msg := range []string{
		"registering health check",
		"registering resource",
		"registering provider",
		"registering injectable provider",
		"registering task",
		"registering managed object",
		"registering lifecycle",
	} {
		assert.Equal(t, 1, logs.FilterMessage(msg).Len(), msg)
	}
}

func TestRegistrar_EmptyContainerRegistersNothing(t *testing.T) {
	b := bootstrap.NewBuilder(nil, nil)
	require.NoError(t, b.BuildContainer(bootstrap.ClassBased))
	env := newHost()

	require.NoError(t, bootstrap.NewRegistrar(b, env, nil).RegisterAll())
	assert.Empty(t, env.HealthChecks().Names())
	assert.Empty(t, env.Admin().TaskNames())
	assert.Equal(t, 0, env.Resources().Len())
}

func TestRegistrar_RepeatedCallsForwardAgain(t *testing.T) {
	_, env, r, logs := setup(t, newAppConfig())

	for range 2 {
		require.NoError(t, r.RegisterTasks())
		require.NoError(t, r.RegisterResources())
		require.NoError(t, r.RegisterContextProviders())
		require.NoError(t, r.RegisterManaged())
		require.NoError(t, r.RegisterLifecycles())
	}
	assert.Equal(t, 2, logs.FilterMessage("registering task").Len())
	assert.Equal(t, 2, logs.FilterMessage("registering resource").Len())
	assert.Equal(t, []string{"reindex"}, env.Admin().TaskNames())
	assert.Equal(t, 1, env.Resources().Len())
	// admin scheduler + queue consumer + jetty server
	assert.Equal(t, 3, env.Lifecycle().Len())

	rr := httptest.NewRecorder()
	env.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ping/", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "pong", rr.Body.String())
	assert.Equal(t, []string{"1"}, rr.Header().Values("X-Provided"))
}

// sessionProvider is marker-tagged as a provider and also an injectable, so
// two capabilities discover it.
type sessionProvider struct{ provided int }

func (s *sessionProvider) Key() any { return "session" }
func (s *sessionProvider) Provide(*http.Request) (any, error) {
	s.provided++
	return "s-1", nil
}

func (s *sessionProvider) Middleware(next http.Handler) http.Handler { return next }

func TestRegistrar_ProviderDiscoveredTwiceIsRegisteredOnce(t *testing.T) {
	session := &sessionProvider{}
	c := container.New()
	c.Instance("session.provider", session)
	c.Tag([]string{"session.provider"}, capability.Provider)
	c.Instance("ping.resource", pingResource{})
	c.Tag([]string{"ping.resource"}, capability.Resource)

	b := bootstrap.NewBuilder(nil, nil)
	require.NoError(t, b.SetContainer(c))
	env := newHost()
	require.NoError(t, bootstrap.NewRegistrar(b, env, nil).RegisterAll())

	rr := httptest.NewRecorder()
	env.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ping/", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, session.provided)
}

// ── security filter chain ────────────────────────────────────────────────────

func TestRegistrar_SecurityFilterChain(t *testing.T) {
	c := container.New()
	c.Instance(bootstrap.DefaultSecurityFilterName, host.FilterFunc(func(w http.ResponseWriter, r *http.Request, next http.Handler) {
		if r.Header.Get("Authorization") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	}))
	c.Instance("ping.resource", pingResource{})
	c.Tag([]string{"ping.resource"}, capability.Resource)

	b := bootstrap.NewBuilder(nil, nil)
	require.NoError(t, b.SetContainer(c))
	env := newHost()
	r := bootstrap.NewRegistrar(b, env, nil)
	require.NoError(t, r.RegisterResources())
	require.NoError(t, r.RegisterSecurityFilterChain("/*"))

	reg, ok := env.Servlets().Filter(bootstrap.DefaultSecurityFilterName)
	require.True(t, ok)
	delegating, ok := reg.Filter().(*host.DelegatingFilter)
	require.True(t, ok, "the container's filter is installed behind a delegating adapter")
	assert.Equal(t, bootstrap.DefaultSecurityFilterName, delegating.TargetName())

	rr := httptest.NewRecorder()
	env.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ping/", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/ping/", nil)
	req.Header.Set("Authorization", "Bearer t")
	rr = httptest.NewRecorder()
	env.Handler().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)

	// error dispatches bypass the chain
	req = httptest.NewRequest(http.MethodGet, "/ping/", nil)
	req = req.WithContext(host.WithDispatch(req.Context(), host.DispatchError))
	rr = httptest.NewRecorder()
	env.Handler().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRegistrar_SecurityFilterChainRegisteredTwiceRunsOnce(t *testing.T) {
	calls := 0
	c := container.New()
	c.Instance(bootstrap.DefaultSecurityFilterName, host.FilterFunc(func(w http.ResponseWriter, r *http.Request, next http.Handler) {
		calls++
		next.ServeHTTP(w, r)
	}))
	c.Instance("ping.resource", pingResource{})
	c.Tag([]string{"ping.resource"}, capability.Resource)

	b := bootstrap.NewBuilder(nil, nil)
	require.NoError(t, b.SetContainer(c))
	env := newHost()
	r := bootstrap.NewRegistrar(b, env, nil)
	require.NoError(t, r.RegisterResources())
	require.NoError(t, r.RegisterSecurityFilterChain("/*"))
	require.NoError(t, r.RegisterSecurityFilterChain("/*"))

	rr := httptest.NewRecorder()
	env.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ping/", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, calls)
}

func TestRegistrar_SecurityFilterChainNamedLookupErrors(t *testing.T) {
	c := container.New()
	c.Instance("notAFilter", "just a string")

	b := bootstrap.NewBuilder(nil, nil)
	require.NoError(t, b.SetContainer(c))
	r := bootstrap.NewRegistrar(b, newHost(), nil)

	assert.ErrorIs(t, r.RegisterSecurityFilterChain("/*"), container.ErrNotFound)
	assert.ErrorIs(t, r.RegisterSecurityFilterChainNamed("/*", "notAFilter"), container.ErrTypeMismatch)
}
