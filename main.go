package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"sync/atomic"
	"syscall"

	"go.uber.org/zap"

	"github.com/km-arc/go-bedrock/framework/app"
	"github.com/km-arc/go-bedrock/framework/capability"
	"github.com/km-arc/go-bedrock/framework/config"
	"github.com/km-arc/go-bedrock/framework/container"
	gohttp "github.com/km-arc/go-bedrock/framework/http"
	"github.com/km-arc/go-bedrock/framework/providers"
	"github.com/km-arc/go-bedrock/framework/routing"
)

func main() {
	cfg, err := config.Load() // .env, then config.yaml
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := config.NewLogger(cfg)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	catalog := container.NewCatalog().
		Add("bedrock.Database", &providers.DatabaseServiceProvider{}).
		Add("example.Greeting", &GreetingConfig{})

	application := app.New(cfg, logger, catalog)
	if err := application.Bootstrap(); err != nil {
		logger.Fatal("bootstrap failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := application.Run(ctx); err != nil {
		logger.Fatal("service stopped with error", zap.Error(err))
	}
}

// ── Example components ───────────────────────────────────────────────────────

// GreetingConfig wires the example service: a resource under /greeting, fed
// by config key "greeting.text", and a task that resets its counter.
type GreetingConfig struct{ container.BaseProvider }

func (p *GreetingConfig) Register(ctr *container.Container) {
	ctr.Singleton("greeting.resource", func(c *container.Container) any {
		return &GreetingResource{
			text: c.Environment().String(app.ConfigPrefix+"greeting.text", "Hello from bedrock"),
		}
	})
	ctr.Tag([]string{"greeting.resource"}, capability.Resource)

	ctr.Singleton("greeting.reset", func(c *container.Container) any {
		return &ResetTask{resource: container.Resolve[*GreetingResource](c, "greeting.resource")}
	})
}

// GreetingResource serves GET /greeting.
type GreetingResource struct {
	text   string
	served atomic.Int64
}

func (g *GreetingResource) Pattern() string { return "/greeting" }

func (g *GreetingResource) Routes(r *routing.Router) {
	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		n := g.served.Add(1)
		gohttp.NewResponse(w).Success(map[string]any{"message": g.text, "served": n})
	})
}

// ResetTask zeroes the greeting counter: POST /tasks/greeting-reset.
type ResetTask struct {
	resource *GreetingResource
}

func (t *ResetTask) Name() string { return "greeting-reset" }

func (t *ResetTask) Execute(_ context.Context, _ url.Values, w io.Writer) error {
	old := t.resource.served.Swap(0)
	_, err := io.WriteString(w, "reset after "+strconv.FormatInt(old, 10)+" greetings\n")
	return err
}
