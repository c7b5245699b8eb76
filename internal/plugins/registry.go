// Package plugins maps plugin descriptors onto esbuild plugins.
package plugins

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/io724/web/internal/buildconfig"
)

var ErrUnknownPlugin = errors.New("unknown plugin")

// Factory creates a fresh plugin instance for one build.
type Factory func() api.Plugin

type Registry struct {
	factories map[string]Factory
	mu        sync.RWMutex
}

// NewRegistry returns a registry with the built-in plugins.
func NewRegistry() *Registry {
	r := &Registry{factories: map[string]Factory{}}
	r.Register(buildconfig.VuePlugin, Vue)
	return r
}

// Register adds or replaces the factory for name.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.factories[name] = f
}

// Names returns the registered plugin names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve instantiates the plugins for descs, keeping their order.
func (r *Registry) Resolve(descs []buildconfig.PluginDescriptor) ([]api.Plugin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]api.Plugin, 0, len(descs))
	for _, d := range descs {
		f, ok := r.factories[d.Name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownPlugin, d.Name)
		}
		out = append(out, f())
	}
	return out, nil
}
