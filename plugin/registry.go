package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/ecoseed/entry"
	"github.com/xraph/ecoseed/profile"
)

// DefaultHookTimeout bounds a single plugin hook call.
const DefaultHookTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	// Type-cached plugin lists for efficient dispatch
	onInit             []OnInit
	onShutdown         []OnShutdown
	onProfileCreated   []OnProfileCreated
	onActivityRecorded []OnActivityRecorded
	onSeedsEarned      []OnSeedsEarned
	onSeedsSpent       []OnSeedsSpent
	onSeedsConverted   []OnSeedsConverted
	onMutationFailed   []OnMutationFailed
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultHookTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-hook timeout.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnProfileCreated); ok {
		r.onProfileCreated = append(r.onProfileCreated, v)
	}
	if v, ok := p.(OnActivityRecorded); ok {
		r.onActivityRecorded = append(r.onActivityRecorded, v)
	}
	if v, ok := p.(OnSeedsEarned); ok {
		r.onSeedsEarned = append(r.onSeedsEarned, v)
	}
	if v, ok := p.(OnSeedsSpent); ok {
		r.onSeedsSpent = append(r.onSeedsSpent, v)
	}
	if v, ok := p.(OnSeedsConverted); ok {
		r.onSeedsConverted = append(r.onSeedsConverted, v)
	}
	if v, ok := p.(OnMutationFailed); ok {
		r.onMutationFailed = append(r.onMutationFailed, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", implementedInterfaces(p),
	)

	return nil
}

var hookInterfaces = []struct {
	name  string
	iface reflect.Type
}{
	{"OnInit", reflect.TypeFor[OnInit]()},
	{"OnShutdown", reflect.TypeFor[OnShutdown]()},
	{"OnProfileCreated", reflect.TypeFor[OnProfileCreated]()},
	{"OnActivityRecorded", reflect.TypeFor[OnActivityRecorded]()},
	{"OnSeedsEarned", reflect.TypeFor[OnSeedsEarned]()},
	{"OnSeedsSpent", reflect.TypeFor[OnSeedsSpent]()},
	{"OnSeedsConverted", reflect.TypeFor[OnSeedsConverted]()},
	{"OnMutationFailed", reflect.TypeFor[OnMutationFailed]()},
}

// implementedInterfaces returns the hook names a plugin implements.
func implementedInterfaces(p Plugin) []string {
	var names []string
	t := reflect.TypeOf(p)
	for _, h := range hookInterfaces {
		if t.Implements(h.iface) {
			names = append(names, h.name)
		}
	}
	return names
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, l any) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, "OnInit", p.Name(), func() error {
			return p.OnInit(ctx, l)
		})
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, "OnShutdown", p.Name(), func() error {
			return p.OnShutdown(ctx)
		})
	}
}

// EmitProfileCreated emits a profile created event.
func (r *Registry) EmitProfileCreated(ctx context.Context, prof *profile.Profile) {
	r.mu.RLock()
	plugins := r.onProfileCreated
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, "OnProfileCreated", p.Name(), func() error {
			return p.OnProfileCreated(ctx, prof)
		})
	}
}

// EmitActivityRecorded emits an activity recorded event.
func (r *Registry) EmitActivityRecorded(ctx context.Context, prof *profile.Profile, a profile.Activity) {
	r.mu.RLock()
	plugins := r.onActivityRecorded
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, "OnActivityRecorded", p.Name(), func() error {
			return p.OnActivityRecorded(ctx, prof, a)
		})
	}
}

// EmitPosted routes a committed entry to the hook matching its direction.
func (r *Registry) EmitPosted(ctx context.Context, e *entry.Entry, prof *profile.Profile) {
	switch e.Direction {
	case entry.DirectionEarn:
		r.EmitSeedsEarned(ctx, e, prof)
	case entry.DirectionUse:
		r.EmitSeedsSpent(ctx, e, prof)
	case entry.DirectionConvert:
		r.EmitSeedsConverted(ctx, e, prof)
	}
}

// EmitSeedsEarned emits a seeds earned event.
func (r *Registry) EmitSeedsEarned(ctx context.Context, e *entry.Entry, prof *profile.Profile) {
	r.mu.RLock()
	plugins := r.onSeedsEarned
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, "OnSeedsEarned", p.Name(), func() error {
			return p.OnSeedsEarned(ctx, e, prof)
		})
	}
}

// EmitSeedsSpent emits a seeds spent event.
func (r *Registry) EmitSeedsSpent(ctx context.Context, e *entry.Entry, prof *profile.Profile) {
	r.mu.RLock()
	plugins := r.onSeedsSpent
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, "OnSeedsSpent", p.Name(), func() error {
			return p.OnSeedsSpent(ctx, e, prof)
		})
	}
}

// EmitSeedsConverted emits a seeds converted event.
func (r *Registry) EmitSeedsConverted(ctx context.Context, e *entry.Entry, prof *profile.Profile) {
	r.mu.RLock()
	plugins := r.onSeedsConverted
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, "OnSeedsConverted", p.Name(), func() error {
			return p.OnSeedsConverted(ctx, e, prof)
		})
	}
}

// EmitMutationFailed emits a mutation failed event.
func (r *Registry) EmitMutationFailed(ctx context.Context, op, memberRef string, cause error) {
	r.mu.RLock()
	plugins := r.onMutationFailed
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, "OnMutationFailed", p.Name(), func() error {
			return p.OnMutationFailed(ctx, op, memberRef, cause)
		})
	}
}

func (r *Registry) dispatch(ctx context.Context, hook, pluginName string, fn func() error) {
	if err := r.callWithTimeout(ctx, pluginName, fn); err != nil {
		r.logger.Warn("plugin "+hook+" failed",
			"plugin", pluginName,
			"error", err,
		)
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins must never block the ledger.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
