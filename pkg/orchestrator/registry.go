package orchestrator

import "sort"

// registry maps names to factories and memoizes the instance each factory produces.
type registry[T any] struct {
	factories map[string]func() T
	instances map[string]T
}

func newRegistry[T any]() *registry[T] {
	return &registry[T]{
		factories: make(map[string]func() T),
		instances: make(map[string]T),
	}
}

// register sets the factory for name. An instance already built for name is kept.
func (r *registry[T]) register(name string, factory func() T) {
	r.factories[name] = factory
}

func (r *registry[T]) unregister(name string) {
	delete(r.factories, name)
	delete(r.instances, name)
}

// find returns the cached instance, building it on first use.
func (r *registry[T]) find(name string) (T, bool) {
	if inst, ok := r.instances[name]; ok {
		return inst, true
	}
	factory, ok := r.factories[name]
	if !ok || factory == nil {
		var zero T
		return zero, false
	}
	inst := factory()
	r.instances[name] = inst
	return inst, true
}

// cached returns the instances built so far, sorted by name.
func (r *registry[T]) cached() []string {
	names := make([]string, 0, len(r.instances))
	for name := range r.instances {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *registry[T]) names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// forget drops a cached instance but keeps the factory.
func (r *registry[T]) forget(name string) {
	delete(r.instances, name)
}
