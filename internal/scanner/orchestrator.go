// Package scanner runs a scan against the engine as a state machine:
// context, optional authentication, crawl, passive drain, optional active
// scan, then alert collection. Each bounded phase is polled until it
// completes or its budget runs out.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/buemura/zapscan/internal/auth"
	"github.com/buemura/zapscan/internal/poll"
	"github.com/buemura/zapscan/internal/policy"
	"github.com/buemura/zapscan/internal/zap"
	"github.com/buemura/zapscan/pkg/scanerr"
	"github.com/buemura/zapscan/pkg/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/buemura/zapscan/internal/scanner"

// releaseTimeout bounds each best-effort stop and cleanup call, which run
// on a context detached from the scan's cancellation.
const releaseTimeout = 30 * time.Second

// Orchestrator drives scans against one engine. Scans on the same
// Orchestrator are serialized.
type Orchestrator struct {
	engine    Engine
	registry  *auth.Registry
	authOpts  auth.Options
	logger    *slog.Logger
	tracer    trace.Tracer
	recorder  Recorder
	listeners []func(Transition)
	progress  []func(Progress)

	scanMu sync.Mutex

	mu      sync.Mutex
	state   State
	history []State
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithRecorder sets where phase and alert measurements go.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *Orchestrator) { o.tracer = tp.Tracer(tracerName) }
}

// WithAuthRegistry replaces the default authentication providers.
func WithAuthRegistry(r *auth.Registry) Option {
	return func(o *Orchestrator) { o.registry = r }
}

// WithScriptDir sets where generated authentication scripts are written.
func WithScriptDir(dir string) Option {
	return func(o *Orchestrator) { o.authOpts.ScriptDir = dir }
}

// OnTransition registers fn to be called synchronously on every state change.
func OnTransition(fn func(Transition)) Option {
	return func(o *Orchestrator) { o.listeners = append(o.listeners, fn) }
}

// OnProgress registers fn to be called synchronously with every status
// poll of a bounded phase.
func OnProgress(fn func(Progress)) Option {
	return func(o *Orchestrator) { o.progress = append(o.progress, fn) }
}

// New creates an orchestrator for engine.
func New(engine Engine, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		engine:   engine,
		registry: auth.DefaultRegistry(),
		logger:   slog.Default(),
		tracer:   otel.Tracer(tracerName),
		recorder: nopRecorder{},
		state:    StateInit,
		history:  []State{StateInit},
	}
	for _, opt := range opts {
		opt(o)
	}
	o.authOpts.Logger = o.logger
	return o
}

// State returns the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// History returns every state the last scan passed through, in order.
func (o *Orchestrator) History() []State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]State(nil), o.history...)
}

func (o *Orchestrator) reset() {
	o.mu.Lock()
	o.state = StateInit
	o.history = []State{StateInit}
	o.mu.Unlock()
}

func (o *Orchestrator) transition(to State, err error) {
	o.mu.Lock()
	from := o.state
	o.state = to
	o.history = append(o.history, to)
	o.mu.Unlock()

	o.logger.Debug("state transition", "from", from, "to", to)
	t := Transition{From: from, To: to, At: time.Now(), Err: err}
	for _, fn := range o.listeners {
		fn(t)
	}
}

func (o *Orchestrator) fail(phase string, err error) error {
	last := o.State()
	o.transition(StateFailed, err)
	o.logger.Error("scan failed", "phase", phase, "state", last, "kind", scanerr.Kind(err), "error", err)
	return &scanerr.ScannerError{Phase: phase, State: last.String(), Err: err}
}

// run is the per-scan working state.
type run struct {
	o         *Orchestrator
	cfg       ScanConfig
	target    types.Target
	result    *types.ScanResult
	contextID string

	// authProvider is built during validation; provider is set once its
	// setup has started and therefore needs cleanup.
	authProvider auth.Provider
	provider     auth.Provider
	policy       *policy.Installation
}

// Scan runs cfg to completion. Any failure moves the orchestrator to
// StateFailed and is returned as a *scanerr.ScannerError. Authentication
// and policy resources acquired along the way are released before Scan
// returns, whatever the outcome.
func (o *Orchestrator) Scan(ctx context.Context, cfg ScanConfig) (result *types.ScanResult, err error) {
	o.scanMu.Lock()
	defer o.scanMu.Unlock()
	o.reset()

	started := time.Now()
	ctx, span := o.tracer.Start(ctx, "zapscan.scan", trace.WithAttributes(
		attribute.String("target", cfg.TargetURL),
		attribute.String("context", cfg.ContextName),
		attribute.Bool("active", cfg.ActiveScanEnabled),
		attribute.Bool("authenticated", cfg.RequiresAuthentication()),
	))
	defer span.End()
	defer func() {
		o.recorder.ObserveScan(time.Since(started), err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	r := &run{o: o, cfg: cfg}
	if err := r.prepare(); err != nil {
		return nil, o.fail(PhaseValidate, err)
	}
	r.result = types.NewScanResult(cfg.TargetURL, started)
	defer r.unwind(ctx)

	o.logger.Info("scan started", "target", cfg.TargetURL, "context", cfg.ContextName,
		"authenticated", cfg.RequiresAuthentication(), "active", cfg.ActiveScanEnabled)

	if err := r.phase(ctx, PhaseContext, r.createContext); err != nil {
		return nil, o.fail(PhaseContext, err)
	}
	o.transition(StateContextCreated, nil)

	if r.authProvider != nil {
		if err := r.phase(ctx, PhaseAuthentication, r.authenticate); err != nil {
			return nil, o.fail(PhaseAuthentication, err)
		}
		o.transition(StateAuthenticated, nil)
	}

	if err := r.phase(ctx, PhaseSpider, r.spider); err != nil {
		return nil, o.fail(PhaseSpider, err)
	}
	o.transition(StateCrawled, nil)

	if err := r.phase(ctx, PhasePassive, r.passive); err != nil {
		return nil, o.fail(PhasePassive, err)
	}
	o.transition(StatePassiveDrained, nil)

	if cfg.ActiveScanEnabled {
		if cfg.Policy != nil {
			if err := r.phase(ctx, PhasePolicy, r.installPolicy); err != nil {
				return nil, o.fail(PhasePolicy, err)
			}
		}
		if err := r.phase(ctx, PhaseActive, r.active); err != nil {
			return nil, o.fail(PhaseActive, err)
		}
		o.transition(StateActiveScanned, nil)
	}

	if err := r.phase(ctx, PhaseAlerts, r.collectAlerts); err != nil {
		return nil, o.fail(PhaseAlerts, err)
	}

	r.result.SetDuration(time.Since(started))
	o.transition(StateComplete, nil)
	o.logger.Info("scan complete", "target", cfg.TargetURL,
		"alerts", r.result.TotalAlerts(), "duration", r.result.Duration())
	return r.result, nil
}

// prepare validates everything that can be checked without the engine.
func (r *run) prepare() error {
	if err := r.cfg.Validate(); err != nil {
		return err
	}
	target, err := types.ParseTarget(r.cfg.TargetURL)
	if err != nil {
		return scanerr.Configf("target_url", "%v", err)
	}
	r.target = target

	if r.cfg.RequiresAuthentication() {
		opts := r.o.authOpts
		opts.TargetURL = r.cfg.TargetURL
		p, err := r.o.registry.New(*r.cfg.Auth, r.o.engine, opts)
		if err != nil {
			return err
		}
		r.authProvider = p
	}
	return nil
}

func (r *run) phase(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := r.o.tracer.Start(ctx, "zapscan.phase."+name, trace.WithAttributes(attribute.String("phase", name)))
	defer span.End()

	r.o.logger.Info("phase started", "phase", name)
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	r.o.recorder.ObservePhase(name, elapsed, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	r.o.logger.Info("phase finished", "phase", name, "duration", elapsed)
	return nil
}

func (r *run) createContext(ctx context.Context) error {
	name := r.cfg.ContextName
	engine := r.o.engine

	if r.cfg.ResetContext {
		if err := engine.RemoveContext(ctx, name); err != nil {
			r.o.logger.Debug("no existing context removed", "context", name, "error", err)
		}
	}

	id, err := engine.NewContext(ctx, name)
	if err != nil {
		return fmt.Errorf("creating context %q: %w", name, err)
	}
	r.contextID = id

	if err := engine.IncludeInContext(ctx, name, r.target.ScopePattern()); err != nil {
		return fmt.Errorf("scoping context to target: %w", err)
	}
	for _, p := range r.cfg.IncludePatterns {
		if err := engine.IncludeInContext(ctx, name, p); err != nil {
			return fmt.Errorf("including %q: %w", p, err)
		}
	}
	for _, p := range r.cfg.ExcludePatterns {
		if err := engine.ExcludeFromContext(ctx, name, p); err != nil {
			return fmt.Errorf("excluding %q: %w", p, err)
		}
	}
	return nil
}

func (r *run) authenticate(ctx context.Context) error {
	// Held before setup so a partially configured provider is cleaned up.
	r.provider = r.authProvider
	if err := r.provider.SetupContext(ctx, r.contextID); err != nil {
		return err
	}
	if !r.provider.Ready() {
		return &scanerr.AuthenticationError{
			Method: string(r.provider.Type()),
			Op:     "verify",
			Err:    errors.New("provider not ready after setup"),
		}
	}
	return nil
}

func (r *run) installPolicy(ctx context.Context) error {
	inst, err := policy.Install(ctx, r.o.engine, r.cfg.Policy, r.o.logger)
	if err != nil {
		return err
	}
	r.policy = inst
	return nil
}

func (r *run) spider(ctx context.Context) error {
	engine := r.o.engine
	if err := engine.SetSpiderOptions(ctx, r.cfg.SpiderMaxDepth, r.cfg.spiderMinutes(), r.cfg.Threads); err != nil {
		return fmt.Errorf("setting spider options: %w", err)
	}
	id, err := engine.SpiderScan(ctx, zap.SpiderRequest{
		URL:         r.cfg.TargetURL,
		ContextName: r.cfg.ContextName,
		Recurse:     true,
	})
	if err != nil {
		return fmt.Errorf("starting spider: %w", err)
	}
	return r.await(ctx, PhaseSpider, r.cfg.SpiderDuration,
		func(ctx context.Context) (int, error) { return engine.SpiderStatus(ctx, id) },
		poll.ProgressComplete,
		func(ctx context.Context) error { return engine.SpiderStop(ctx, id) })
}

func (r *run) passive(ctx context.Context) error {
	engine := r.o.engine
	return r.await(ctx, PhasePassive, r.cfg.PassiveDuration,
		engine.PassiveRecordsToScan,
		poll.NoneRemaining,
		engine.PassiveClearQueue)
}

func (r *run) active(ctx context.Context) error {
	engine := r.o.engine
	if r.cfg.Threads > 0 {
		if err := engine.SetActiveScanThreads(ctx, r.cfg.Threads); err != nil {
			return fmt.Errorf("setting active scan threads: %w", err)
		}
	}

	req := zap.ActiveScanRequest{
		URL:       r.cfg.TargetURL,
		Recurse:   true,
		ContextID: r.contextID,
	}
	if r.policy != nil {
		req.PolicyName = r.policy.Name
	}
	id, err := engine.ActiveScan(ctx, req)
	if err != nil {
		return fmt.Errorf("starting active scan: %w", err)
	}
	return r.await(ctx, PhaseActive, r.cfg.ActiveDuration,
		func(ctx context.Context) (int, error) { return engine.ActiveScanStatus(ctx, id) },
		poll.ProgressComplete,
		func(ctx context.Context) error { return engine.ActiveScanStop(ctx, id) })
}

// await polls check until done holds. On timeout or cancellation the phase
// is stopped on a best-effort basis; a timeout is always returned as a
// *scanerr.TimeoutError regardless of whether the stop succeeded.
func (r *run) await(ctx context.Context, phase string, budget time.Duration, check poll.CheckFunc, done poll.DoneFunc, stop func(context.Context) error) error {
	w := poll.Waiter{
		Interval: r.cfg.PollInterval,
		Timeout:  budget,
		OnPoll: func(attempt, value int) {
			r.o.logger.Debug("polled", "phase", phase, "attempt", attempt, "value", value)
			p := Progress{Phase: phase, Attempt: attempt, Value: value}
			for _, fn := range r.o.progress {
				fn(p)
			}
		},
	}
	res, err := w.Wait(ctx, check, done)
	if err != nil {
		if ctx.Err() != nil {
			r.bestEffortStop(ctx, phase, stop)
		}
		return fmt.Errorf("waiting for %s: %w", phase, err)
	}
	if res.Outcome == poll.TimedOut {
		r.bestEffortStop(ctx, phase, stop)
		return &scanerr.TimeoutError{Phase: phase, Budget: budget, Elapsed: res.Elapsed, Last: res.Last}
	}
	r.o.logger.Debug("phase condition met", "phase", phase, "polls", res.Polls, "elapsed", res.Elapsed)
	return nil
}

func (r *run) bestEffortStop(ctx context.Context, phase string, stop func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	if err := stop(ctx); err != nil {
		r.o.logger.Warn("stopping phase failed", "phase", phase, "error", err)
		r.o.recorder.ObserveCleanupFailure(phase + "_stop")
	}
}

// collectAlerts pages through the engine's alerts for the target. Alerts
// already seen by id are skipped.
func (r *run) collectAlerts(ctx context.Context) error {
	size := r.cfg.AlertPageSize
	seen := make(map[string]struct{})
	for start := 0; ; start += size {
		page, err := r.o.engine.Alerts(ctx, r.target.String(), start, size)
		if err != nil {
			return fmt.Errorf("reading alerts at offset %d: %w", start, err)
		}
		for _, a := range page {
			if a.ID != "" {
				if _, dup := seen[a.ID]; dup {
					continue
				}
				seen[a.ID] = struct{}{}
			}
			r.result.AddAlert(a)
			r.o.recorder.ObserveAlert(a.Severity)
		}
		if len(page) < size {
			return nil
		}
	}
}

// unwind releases the policy and the authentication provider. Failures are
// logged and never replace the scan's own outcome.
func (r *run) unwind(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)

	if r.policy != nil {
		pctx, cancel := context.WithTimeout(ctx, releaseTimeout)
		if err := r.policy.Release(pctx); err != nil {
			r.o.logger.Warn("policy cleanup failed", "policy", r.policy.Name, "error", err)
			r.o.recorder.ObserveCleanupFailure("policy")
		}
		cancel()
	}

	if r.provider != nil {
		actx, cancel := context.WithTimeout(ctx, releaseTimeout)
		if err := r.provider.Cleanup(actx, r.contextID); err != nil {
			r.o.logger.Warn("authentication cleanup failed", "type", r.provider.Type(), "error", err)
			r.o.recorder.ObserveCleanupFailure("authentication")
		}
		cancel()
	}
}
