package llm

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Factory builds a provider from process configuration.
type Factory func(ctx context.Context) (Provider, error)

var (
	registryMu sync.RWMutex
	factories  = make(map[string]Factory)
)

func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	factories[name] = f
}

func New(ctx context.Context, name string) (Provider, error) {
	registryMu.RLock()
	f, ok := factories[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported llm provider %q (known: %v)", name, Names())
	}
	return f(ctx)
}

func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]string, 0, len(factories))
	for n := range factories {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
