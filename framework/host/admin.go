package host

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	gohttp "github.com/km-arc/go-bedrock/framework/http"
	"github.com/km-arc/go-bedrock/framework/routing"
)

// ErrDuplicateTask is returned when two different tasks share a name.
var ErrDuplicateTask = errors.New("host: task already registered")

// Task is an operational action triggered through the admin endpoint
// POST /tasks/{name}. Output written to w is returned to the caller.
type Task interface {
	Name() string
	Execute(ctx context.Context, params url.Values, w io.Writer) error
}

// ScheduledTask is a Task that also runs on a cron schedule
// (robfig/cron syntax, e.g. "@every 1h" or "0 3 * * *").
type ScheduledTask interface {
	Task
	Schedule() string
}

// Admin serves the operational endpoints: health checks and tasks.
type Admin struct {
	mu     sync.RWMutex
	tasks  map[string]Task
	health *HealthRegistry
	cron   *cron.Cron
	logger *zap.Logger
}

// NewAdmin returns an Admin serving the given health registry.
func NewAdmin(health *HealthRegistry, logger *zap.Logger) *Admin {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Admin{
		tasks:  make(map[string]Task),
		health: health,
		cron:   cron.New(),
		logger: logger,
	}
}

// AddTask registers t. Scheduled tasks are also added to the cron scheduler,
// which runs while the Admin is started. Adding a task that is already
// registered is a no-op.
func (a *Admin) AddTask(t Task) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	name := t.Name()
	if existing, dup := a.tasks[name]; dup {
		if sameComponent(existing, t) {
			return nil
		}
		return fmt.Errorf("%w: %q", ErrDuplicateTask, name)
	}
	if st, ok := t.(ScheduledTask); ok {
		if _, err := a.cron.AddFunc(st.Schedule(), func() { a.runScheduled(st) }); err != nil {
			return fmt.Errorf("host: task %q schedule %q: %w", name, st.Schedule(), err)
		}
	}
	a.tasks[name] = t
	return nil
}

// Task returns the named task.
func (a *Admin) Task(name string) (Task, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	t, ok := a.tasks[name]
	return t, ok
}

// TaskNames lists registered tasks, sorted.
func (a *Admin) TaskNames() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	names := make([]string, 0, len(a.tasks))
	for name := range a.tasks {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (a *Admin) runScheduled(t ScheduledTask) {
	var out bytes.Buffer
	if err := t.Execute(context.Background(), url.Values{}, &out); err != nil {
		a.logger.Error("scheduled task failed", zap.String("task", t.Name()), zap.Error(err))
		return
	}
	a.logger.Info("scheduled task finished", zap.String("task", t.Name()), zap.Int("output", out.Len()))
}

// Start starts the cron scheduler.
func (a *Admin) Start(context.Context) error {
	a.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for running jobs or ctx.
func (a *Admin) Stop(ctx context.Context) error {
	select {
	case <-a.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Admin) String() string { return "admin" }

// Handler builds the admin router:
//
//	GET  /healthcheck
//	GET  /tasks
//	POST /tasks/{name}
func (a *Admin) Handler() http.Handler {
	r := routing.New()
	r.Get("/healthcheck", a.health.ServeHTTP)
	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		gohttp.NewResponse(w).Text(http.StatusOK, "pong\n")
	})
	r.Get("/tasks", func(w http.ResponseWriter, _ *http.Request) {
		gohttp.NewResponse(w).Success(a.TaskNames())
	})
	r.Post("/tasks/{name}", a.serveTask)
	return r
}

func (a *Admin) serveTask(w http.ResponseWriter, r *http.Request) {
	req := gohttp.NewRequest(r)
	res := gohttp.NewResponse(w)

	name := req.RouteParam("name")
	t, ok := a.Task(name)
	if !ok {
		res.NotFound("No such task: " + name)
		return
	}

	var out bytes.Buffer
	if err := t.Execute(r.Context(), req.Params(), &out); err != nil {
		a.logger.Error("task failed", zap.String("task", name), zap.Error(err))
		res.ServerError(err.Error())
		return
	}
	a.logger.Info("task executed", zap.String("task", name))
	res.Text(http.StatusOK, out.String())
}
