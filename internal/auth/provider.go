// Package auth provisions per-scheme credential handling in the engine for
// one context and tears it down again.
//
// A Provider tracks which engine-side and local resources it actually
// acquired, so Cleanup is safe after a partial Setup and is idempotent.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sort"

	"github.com/buemura/zapscan/internal/zap"
	"github.com/buemura/zapscan/pkg/scanerr"
)

// Engine is the part of the control API the providers drive.
type Engine interface {
	NewContext(ctx context.Context, name string) (string, error)
	SetAuthenticationMethod(ctx context.Context, contextID string, method zap.AuthMethod, params url.Values) error
	SetLoggedInIndicator(ctx context.Context, contextID, regex string) error
	SetLoggedOutIndicator(ctx context.Context, contextID, regex string) error
	NewUser(ctx context.Context, contextID, name string) (string, error)
	SetAuthenticationCredentials(ctx context.Context, contextID, userID string, creds url.Values) error
	SetUserEnabled(ctx context.Context, contextID, userID string, enabled bool) error
	RemoveUser(ctx context.Context, contextID, userID string) error
	LoadScript(ctx context.Context, s zap.Script) error
	RemoveScript(ctx context.Context, name string) error
	SetClientCertificate(ctx context.Context, path, password string) error
}

// Provider installs one authentication scheme into a context.
type Provider interface {
	Type() Type
	// Setup creates a context named contextName, configures it and returns
	// its id.
	Setup(ctx context.Context, contextName string) (string, error)
	// SetupContext configures an existing context.
	SetupContext(ctx context.Context, contextID string) error
	// Ready reports whether the last setup ran to completion.
	Ready() bool
	// Cleanup releases whatever setup acquired. It may be called from any
	// state and more than once.
	Cleanup(ctx context.Context, contextID string) error
}

// Options carries the dependencies shared by all providers.
type Options struct {
	Logger *slog.Logger
	// ScriptEngine is the engine-side interpreter for generated scripts.
	ScriptEngine string
	// ScriptDir is where generated scripts are written; empty means the
	// system temp dir.
	ScriptDir string
	// TargetURL is the login target for header-injecting scripts when the
	// config has no login URL.
	TargetURL string
}

// DefaultScriptEngine interprets generated authentication scripts.
const DefaultScriptEngine = "Oracle Nashorn"

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.ScriptEngine == "" {
		o.ScriptEngine = DefaultScriptEngine
	}
	return o
}

// Factory builds a provider for a validated config.
type Factory func(cfg Config, engine Engine, opts Options) Provider

// Registry maps authentication types to provider factories.
type Registry struct {
	factories map[Type]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[Type]Factory)}
}

// DefaultRegistry returns a registry with every built-in scheme.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(FormBased, newFormProvider)
	r.Register(JSONBased, newFormProvider)
	r.Register(HTTPBasic, newHTTPProvider)
	r.Register(HTTPDigest, newHTTPProvider)
	r.Register(APIKey, newHeaderProvider)
	r.Register(JWT, newHeaderProvider)
	r.Register(OAuth2, newOAuth2Provider)
	r.Register(Certificate, newCertificateProvider)
	r.Register(ScriptBased, newScriptProvider)
	return r
}

// Register adds or replaces the factory for t.
func (r *Registry) Register(t Type, f Factory) {
	r.factories[t] = f
}

// Types returns the registered types in sorted order.
func (r *Registry) Types() []Type {
	out := make([]Type, 0, len(r.factories))
	for t := range r.factories {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// New validates cfg and builds its provider. Validation failures are
// configuration errors raised before any engine call.
func (r *Registry) New(cfg Config, engine Engine, opts Options) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	f, ok := r.factories[cfg.Type]
	if !ok {
		return nil, scanerr.Configf("auth.type", "no provider registered for %q", cfg.Type)
	}
	return f(cfg, engine, opts.withDefaults()), nil
}

var errAlreadySetUp = errors.New("provider already set up; call Cleanup first")

func authErr(t Type, op string, err error) error {
	return &scanerr.AuthenticationError{Method: string(t), Op: op, Err: err}
}

// setupInNewContext is the shared body of Provider.Setup.
func setupInNewContext(ctx context.Context, p Provider, engine Engine, contextName string) (string, error) {
	id, err := engine.NewContext(ctx, contextName)
	if err != nil {
		return "", authErr(p.Type(), fmt.Sprintf("create context %q", contextName), err)
	}
	if err := p.SetupContext(ctx, id); err != nil {
		return id, err
	}
	return id, nil
}
