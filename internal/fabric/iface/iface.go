// Package iface implements the fabric's interface contract system: named,
// semver-versioned interface descriptors, validated against concrete
// implementations via reflection.
package iface

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/campusforge/fabric/internal/fabric/events"
)

// OperationSignature describes one required method. In and Out list type
// names as strings rather than reflect.Type, since descriptors are meant
// to be declared as plain data (and, eventually, loaded from config).
type OperationSignature struct {
	Name string
	In   []string
	Out  []string
}

// Descriptor is a named, semver-versioned interface contract.
type Descriptor struct {
	Name        string
	Version     string
	Description string
	Operations  []OperationSignature
}

// ValidationError collects every mismatch found validating an
// implementation against a descriptor.
type ValidationError struct {
	Interface string
	Version   string
	Messages  []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("iface: %s@%s failed validation: %v", e.Interface, e.Version, e.Messages)
}

// Validate checks that impl exposes every operation in d.Operations as an
// exported method with a matching arity. Parameter/return *names* are
// informational only; Go has no runtime representation of them, so only
// counts are checked, which is as much signature verification as a
// reflection-based validator can offer in this language.
func Validate(d Descriptor, impl any) []string {
	var messages []string
	v := reflect.ValueOf(impl)
	t := v.Type()

	for _, op := range d.Operations {
		method, ok := t.MethodByName(op.Name)
		if !ok {
			messages = append(messages, fmt.Sprintf("missing method %q", op.Name))
			continue
		}
		// method.Func includes the receiver as the first argument.
		gotIn := method.Type.NumIn() - 1
		if gotIn != len(op.In) {
			messages = append(messages, fmt.Sprintf("%s: expected %d parameters, got %d", op.Name, len(op.In), gotIn))
		}
		gotOut := method.Type.NumOut()
		if gotOut != len(op.Out) {
			messages = append(messages, fmt.Sprintf("%s: expected %d return values, got %d", op.Name, len(op.Out), gotOut))
		}
	}
	return messages
}

// Registry owns registered descriptors and their live implementations,
// and publishes "interface.registered" on the bus for every successful
// registration.
type Registry struct {
	mu    sync.RWMutex
	descs map[string]Descriptor
	impls map[string]any
	bus   events.Bus
}

// New constructs an interface registry; a nil bus disables event
// publication.
func New(bus events.Bus) *Registry {
	return &Registry{
		descs: make(map[string]Descriptor),
		impls: make(map[string]any),
		bus:   bus,
	}
}

func key(name, version string) string { return name + "@" + version }

// Declare registers a descriptor under its name@version key.
func (r *Registry) Declare(d Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.descs[key(d.Name, d.Version)] = d
}

// Register validates impl against the declared descriptor for
// name@version and, on success, records it and emits
// "interface.registered". On failure it returns a *ValidationError and
// does not record the implementation.
func (r *Registry) Register(name, version string, impl any) error {
	r.mu.Lock()
	d, ok := r.descs[key(name, version)]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("iface: no descriptor declared for %s@%s", name, version)
	}

	if messages := Validate(d, impl); len(messages) > 0 {
		return &ValidationError{Interface: name, Version: version, Messages: messages}
	}

	r.mu.Lock()
	r.impls[key(name, version)] = impl
	r.mu.Unlock()

	if r.bus != nil {
		e := events.New(events.TypeInterfaceRegistered, events.CategoryIntegration, name,
			map[string]any{"interface": name, "version": version}, events.PriorityNormal, false)
		_ = r.bus.Publish(context.Background(), e)
	}
	return nil
}

// Implementation returns the registered implementation for name@version.
func (r *Registry) Implementation(name, version string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	impl, ok := r.impls[key(name, version)]
	return impl, ok
}
