package asr

import (
	"fmt"
	"sync"
)

// Factory creates an Engine from a flat config map.
type Factory func(config map[string]string) (Engine, error)

var (
	regMu     sync.RWMutex
	factories = make(map[string]Factory)
)

// Register adds a named engine factory. Backends call this from init().
func Register(name string, factory Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	factories[name] = factory
}

// NewEngine instantiates the named backend. An unknown name or a factory
// error is reported as a ResourceInitFailure.
func NewEngine(name string, config map[string]string) (Engine, error) {
	regMu.RLock()
	factory, ok := factories[name]
	regMu.RUnlock()

	if !ok {
		return nil, &ResourceInitFailure{Backend: name, Err: fmt.Errorf("unknown backend")}
	}

	eng, err := factory(config)
	if err != nil {
		return nil, &ResourceInitFailure{Backend: name, Err: err}
	}
	return eng, nil
}

// Backends returns all registered backend names.
func Backends() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	return names
}
