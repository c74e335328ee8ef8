package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/moamenhredeen/apihacker/internal/config"
	"github.com/moamenhredeen/apihacker/internal/generator"
	"github.com/moamenhredeen/apihacker/internal/models"
	"github.com/moamenhredeen/apihacker/internal/tester"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var (
	// ErrInvalidConfig aborts a run before the liveness gate
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrServerDown aborts a run whose liveness probe failed
	ErrServerDown = errors.New("server is not up")
)

// ExitCode maps the error returned by Run to a process exit status
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}

// Prober decides whether the target is alive enough to run against
type Prober interface {
	IsUp(ctx context.Context, baseURL string) bool
}

// RequestExecutor sends the request for one operation and reports how it went
type RequestExecutor interface {
	Execute(ctx context.Context, op models.Operation, baseURL string) models.Outcome
}

// Option customises a Dispatcher
type Option func(*Dispatcher)

// WithLogger sets the diagnostics logger
func WithLogger(logger *zap.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithProber replaces the HTTP liveness probe
func WithProber(p Prober) Option {
	return func(d *Dispatcher) {
		d.prober = p
	}
}

// WithExecutor replaces the HTTP request executor
func WithExecutor(e RequestExecutor) Option {
	return func(d *Dispatcher) {
		d.executor = e
	}
}

// Dispatcher walks the specification and submits one request per operation to a
// fixed-size worker pool, pacing the submissions
type Dispatcher struct {
	config   config.RunConfig
	prober   Prober
	executor RequestExecutor
	logger   *zap.Logger

	mu    sync.Mutex
	state State
}

// New creates a dispatcher for cfg
func New(cfg config.RunConfig, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		config: cfg,
		logger: zap.NewNop(),
		state:  StateInit,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// State returns the current state of the run
func (d *Dispatcher) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *Dispatcher) setState(s State, onEvent OnEvent) {
	d.mu.Lock()
	d.state = s
	d.mu.Unlock()
	d.logger.Debug("Dispatcher state changed", zap.Stringer("state", s))
	emit(onEvent, Event{Type: EventStateChanged, State: s})
}

// job is one submitted operation
type job struct {
	index int
	op    models.Operation
}

// Run gates the run on the liveness probe, then submits every operation of spec in
// stored order. On normal completion it waits for all submitted work; when ctx is
// cancelled it stops submitting and returns ctx.Err() without waiting for in-flight
// requests.
func (d *Dispatcher) Run(ctx context.Context, spec *models.Specification, onEvent OnEvent) (*models.RunSummary, error) {
	total := spec.TotalOperations()
	summary := models.NewRunSummary(total)

	// INIT
	if err := d.config.Validate(); err != nil {
		d.setState(StateAborted, onEvent)
		return summary, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	for _, warning := range d.config.Warnings() {
		d.logger.Warn(warning)
	}
	if _, err := tester.BuildHeaders(d.config.Headers); err != nil {
		d.logger.Warn("Skipping malformed headers", zap.Error(err))
	}
	if err := d.buildDefaults(); err != nil {
		d.setState(StateAborted, onEvent)
		return summary, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	// GATING
	d.setState(StateGating, onEvent)
	emit(onEvent, Event{Type: EventGating, Total: total, BaseURL: d.config.BaseURL})
	if !d.prober.IsUp(ctx, d.config.BaseURL) {
		d.setState(StateAborted, onEvent)
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		return summary, fmt.Errorf("%w: %s", ErrServerDown, d.config.BaseURL)
	}

	// RUNNING
	d.setState(StateRunning, onEvent)
	jobs := make(chan job, total)

	var wg sync.WaitGroup
	for w := 0; w < d.config.Threads; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				if ctx.Err() != nil {
					return
				}
				outcome := d.execute(ctx, j.op)
				summary.AddOutcome(outcome)
				emit(onEvent, Event{
					Type:      EventCompleted,
					Operation: j.op,
					Outcome:   &outcome,
					Index:     j.index,
					Total:     total,
				})
			}
		}()
	}

	var limiter *rate.Limiter
	if d.config.Delay > 0 {
		limiter = rate.NewLimiter(rate.Every(d.config.Delay), 1)
	}

	for _, op := range spec.Operations() {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				close(jobs)
				return summary, d.interrupted(ctx, err, onEvent)
			}
		}
		if ctx.Err() != nil {
			close(jobs)
			return summary, d.interrupted(ctx, ctx.Err(), onEvent)
		}

		index := summary.MarkSubmitted()
		emit(onEvent, Event{
			Type:      EventSubmitted,
			Operation: op,
			Index:     index,
			Total:     total,
			URL:       d.config.BaseURL + op.Path,
		})
		jobs <- job{index: index, op: op}
	}
	close(jobs)

	// DONE
	wg.Wait()
	summary.Finish()
	d.setState(StateDone, onEvent)
	return summary, nil
}

// interrupted aborts the run. In-flight requests are abandoned.
func (d *Dispatcher) interrupted(ctx context.Context, err error, onEvent OnEvent) error {
	d.setState(StateAborted, onEvent)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// execute isolates a single operation: whatever goes wrong becomes a failed outcome
func (d *Dispatcher) execute(ctx context.Context, op models.Operation) (outcome models.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Request panicked",
				zap.String("method", op.HTTPMethod()),
				zap.String("path", op.Path),
				zap.Any("panic", r))
			outcome = models.Outcome{
				Method: op.HTTPMethod(),
				URL:    d.config.BaseURL + op.Path,
				Kind:   models.OutcomeFailed,
				Error:  fmt.Sprintf("panic: %v", r),
			}
		}
	}()
	return d.executor.Execute(ctx, op, d.config.BaseURL)
}

// buildDefaults wires the HTTP probe and executor unless they were injected
func (d *Dispatcher) buildDefaults() error {
	if d.prober != nil && d.executor != nil {
		return nil
	}

	client, err := tester.NewClient(d.config)
	if err != nil {
		return err
	}
	if d.prober == nil {
		d.prober = tester.NewProbe(client, d.config.Headers, d.logger)
	}
	if d.executor == nil {
		builder := tester.NewRequestBuilder(generator.NewGenerator(), d.config.Headers)
		d.executor = tester.NewExecutor(client, builder, d.logger)
	}
	return nil
}
