// Package registry implements the fabric's ComponentRegistry: it owns
// Component records, serves lookups, maintains registration order for
// deterministic bulk operations, and delegates edge management to the
// dependency graph.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/campusforge/fabric/internal/fabric/component"
	"github.com/campusforge/fabric/internal/fabric/graph"
)

// Entry pairs a component id with its record, used where registration
// order must be preserved (Go has no native ordered map).
type Entry struct {
	ID        component.ID
	Component *component.Component
}

// Registry owns Component records for one fabric instance. Registries are
// per-instance; tests build isolated ones via New. A process-wide default
// exists only for convenience (see Default).
type Registry struct {
	mu           sync.RWMutex
	components   map[component.ID]*component.Component
	order        []component.ID
	graph        *graph.Graph
	attachments  map[component.ID]any
	logger       *slog.Logger
}

// New creates an empty registry backed by its own dependency graph.
func New(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		components:  make(map[component.ID]*component.Component),
		graph:       graph.New(),
		attachments: make(map[component.ID]any),
		logger:      logger,
	}
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// Default returns a lazily-initialized process-wide registry. New code
// should prefer explicit dependency injection via New; this accessor
// exists for glue code and quick scripts, per the module-level-singleton
// convention the rest of the fabric follows.
func Default() *Registry {
	defaultOnce.Do(func() { defaultReg = New(nil) })
	return defaultReg
}

// Graph exposes the registry's backing dependency graph, for components
// (dashboard, adapter) that need direct read access to dependents/impact.
func (r *Registry) Graph() *graph.Graph {
	return r.graph
}

// Register creates and owns a Component record in the given initial
// state (UNKNOWN if unset). Fails with ErrAlreadyRegistered if id exists,
// ErrInvalidID if id is empty.
func (r *Registry) Register(id component.ID, opts ...RegisterOption) (*component.Component, error) {
	if strings.TrimSpace(string(id)) == "" {
		return nil, ErrInvalidID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.components[id]; exists {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyRegistered, id)
	}

	c := component.New(id, string(id), component.Unknown)
	for _, opt := range opts {
		opt(c)
	}

	r.components[id] = c
	r.order = append(r.order, id)
	r.graph.AddNode(id)

	return c, nil
}

// RegisterOption configures an in-progress Register call.
type RegisterOption func(*component.Component)

// WithState sets the component's initial state.
func WithState(s component.State) RegisterOption {
	return func(c *component.Component) { c.SetState(s) }
}

// WithVersion sets the component's version string.
func WithVersion(v string) RegisterOption {
	return func(c *component.Component) { c.Version = v }
}

// WithDescription sets the component's description.
func WithDescription(d string) RegisterOption {
	return func(c *component.Component) { c.Description = d }
}

// WithName overrides the default name (same as id) for the component.
func WithName(n string) RegisterOption {
	return func(c *component.Component) { c.Name = n }
}

// Unregister removes id from the registry, the graph, and registration
// order, along with any attached implementation. Returns false if id was
// not registered.
func (r *Registry) Unregister(id component.ID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.components[id]; !exists {
		return false
	}

	delete(r.components, id)
	delete(r.attachments, id)
	r.graph.RemoveNode(id)

	for i, n := range r.order {
		if n == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// DeclareDependency records that src depends on dep. Fails with
// ErrUnknownComponent unless both are registered. Idempotent.
func (r *Registry) DeclareDependency(src, dep component.ID) error {
	r.mu.Lock()
	c, srcOK := r.components[src]
	_, depOK := r.components[dep]
	r.mu.Unlock()

	if !srcOK {
		return fmt.Errorf("%w: %s", ErrUnknownComponent, src)
	}
	if !depOK {
		return fmt.Errorf("%w: %s", ErrUnknownComponent, dep)
	}

	r.graph.AddEdge(src, dep)
	c.AddDependency(dep)
	return nil
}

// GetComponent returns the component record for id, or nil if unregistered.
func (r *Registry) GetComponent(id component.ID) *component.Component {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.components[id]
}

// GetAllComponents returns every registered component in registration
// order.
func (r *Registry) GetAllComponents() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, Entry{ID: id, Component: r.components[id]})
	}
	return out
}

// GetDependencies returns the ordered list of ids id depends on.
func (r *Registry) GetDependencies(id component.ID) []component.ID {
	return r.graph.DependenciesOf(id)
}

// GetDependents returns the ordered list of ids that directly depend on id.
func (r *Registry) GetDependents(id component.ID) []component.ID {
	return r.graph.DependentsOf(id)
}

// AnalyzeImpact returns the transitive set of dependents of id, in BFS
// order.
func (r *Registry) AnalyzeImpact(id component.ID) []component.ID {
	return r.graph.ImpactBFS(id)
}

// CheckVersionCompatibility reports whether a component satisfies a
// required version. Components with no declared version are always
// treated as compatible; otherwise compatibility requires matching major
// version, following the original source's permissive compatibility
// stub.
func (r *Registry) CheckVersionCompatibility(id component.ID, required string) bool {
	c := r.GetComponent(id)
	if c == nil || c.Version == "" || required == "" {
		return true
	}
	return majorVersion(c.Version) == majorVersion(required)
}

func majorVersion(v string) string {
	v = strings.TrimPrefix(v, "v")
	if i := strings.IndexByte(v, '.'); i >= 0 {
		return v[:i]
	}
	return v
}

// AttachImplementation associates a live implementation object with a
// registered id, so bulk lifecycle operations and status providers can
// find it via its optional capability interfaces.
func (r *Registry) AttachImplementation(id component.ID, impl any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.components[id]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownComponent, id)
	}
	r.attachments[id] = impl
	return nil
}

// Implementation returns the live implementation attached to id, if any.
func (r *Registry) Implementation(id component.ID) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	impl, ok := r.attachments[id]
	return impl, ok
}

// InitializeAll invokes Initialize on every attached implementation that
// supports it, concurrently (mirroring the original asyncio.gather fan
// out), and returns the first error encountered; all errors are logged.
func (r *Registry) InitializeAll(ctx context.Context) error {
	return r.fanOut(ctx, func(impl component.Initializer) error { return impl.Initialize() })
}

// StartAll invokes Start on every attached implementation that supports
// it, concurrently, registration order having no bearing on this phase.
func (r *Registry) StartAll(ctx context.Context) error {
	return r.fanOutStart(ctx)
}

// StopAll invokes Stop on every attached implementation that supports it,
// in reverse registration order, so dependents shut down before their
// dependencies.
func (r *Registry) StopAll(ctx context.Context) error {
	entries := r.GetAllComponents()

	var firstErr error
	for i := len(entries) - 1; i >= 0; i-- {
		impl, ok := r.Implementation(entries[i].ID)
		if !ok {
			continue
		}
		stopper, ok := impl.(component.Stopper)
		if !ok {
			continue
		}
		if err := stopper.Stop(); err != nil {
			r.logger.Error("component stop failed", "component", entries[i].ID, "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("stop %s: %w", entries[i].ID, err)
			}
		}
	}
	return firstErr
}

func (r *Registry) fanOut(ctx context.Context, run func(component.Initializer) error) error {
	entries := r.GetAllComponents()
	g, _ := errgroup.WithContext(ctx)
	for _, e := range entries {
		id := e.ID
		impl, ok := r.Implementation(id)
		if !ok {
			continue
		}
		initializer, ok := impl.(component.Initializer)
		if !ok {
			continue
		}
		g.Go(func() error {
			if err := run(initializer); err != nil {
				r.logger.Error("component initialize failed", "component", id, "error", err)
				return fmt.Errorf("initialize %s: %w", id, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (r *Registry) fanOutStart(ctx context.Context) error {
	entries := r.GetAllComponents()
	g, _ := errgroup.WithContext(ctx)
	for _, e := range entries {
		id := e.ID
		impl, ok := r.Implementation(id)
		if !ok {
			continue
		}
		starter, ok := impl.(component.Starter)
		if !ok {
			continue
		}
		g.Go(func() error {
			if err := starter.Start(); err != nil {
				r.logger.Error("component start failed", "component", id, "error", err)
				return fmt.Errorf("start %s: %w", id, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Clear resets all state. Test-only.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.components = make(map[component.ID]*component.Component)
	r.order = nil
	r.attachments = make(map[component.ID]any)
	r.graph.Clear()
}
