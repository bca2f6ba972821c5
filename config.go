package vfsbox

import (
	"fmt"
	"sort"
	"sync"
)

// Config holds the storage provider configuration.
type Config struct {
	// Type is the driver name: "os", "mem", "rclone", etc.
	Type string `json:"type" yaml:"type"`

	// BasePath is the root directory or remote for file-based drivers.
	BasePath string `json:"basePath,omitempty" yaml:"basePath,omitempty"`

	// Options holds driver-specific configuration.
	Options map[string]any `json:"options,omitempty" yaml:"options,omitempty"`
}

// Factory is a function that creates a [Provider] from a [Config].
type Factory func(cfg *Config) (Provider, error)

var (
	mu         sync.RWMutex
	factories  = make(map[string]Factory)
	permanent  = make(map[string]bool)
	defaultVFS Provider
)

// Register makes a storage driver available by the provided name.
// This is typically called from the driver package's init() function.
// It panics if called twice with the same name.
func Register(name string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()

	if _, exists := factories[name]; exists {
		panic(fmt.Sprintf("vfsbox: driver %q already registered", name))
	}
	factories[name] = factory
}

// RegisterPermanent is like [Register] but marks the driver as
// permanent: Unregister refuses to remove it for the life of the
// process. Drivers that install process-wide state register this way.
func RegisterPermanent(name string, factory Factory) {
	Register(name, factory)
	mu.Lock()
	permanent[name] = true
	mu.Unlock()
}

// Unregister removes a previously registered driver. It returns an
// error for unknown names and for drivers registered permanently.
func Unregister(name string) error {
	mu.Lock()
	defer mu.Unlock()

	if _, exists := factories[name]; !exists {
		return fmt.Errorf("vfsbox: driver %q is not registered", name)
	}
	if permanent[name] {
		return fmt.Errorf("vfsbox: driver %q is registered permanently", name)
	}
	delete(factories, name)
	return nil
}

// Drivers returns a sorted list of all registered driver names.
func Drivers() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List is an alias for [Drivers].
func List() []string {
	return Drivers()
}

// Open creates a new [Provider] using the registered driver specified in cfg.Type.
func Open(cfg *Config) (Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("vfsbox: config must not be nil")
	}

	mu.RLock()
	factory, ok := factories[cfg.Type]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("vfsbox: unknown driver %q (forgotten import?)", cfg.Type)
	}

	return factory(cfg)
}

// MustOpen is like [Open] but panics on error.
func MustOpen(cfg *Config) Provider {
	p, err := Open(cfg)
	if err != nil {
		panic(err)
	}
	return p
}

// SetDefault installs p as the process-wide default provider. Wrapping
// drivers consult [Default] at install time to find the provider they
// delegate to.
func SetDefault(p Provider) {
	mu.Lock()
	defaultVFS = p
	mu.Unlock()
}

// SetDefaultIfUnset installs p as the default provider only when no
// default is set. Conventional drivers call this from init() so a
// delegate is always available.
func SetDefaultIfUnset(p Provider) {
	mu.Lock()
	if defaultVFS == nil {
		defaultVFS = p
	}
	mu.Unlock()
}

// Default returns the process-wide default provider, or nil when none
// has been installed.
func Default() Provider {
	mu.RLock()
	defer mu.RUnlock()
	return defaultVFS
}
