// Package sources holds the feed-adapter registry. Each configured feed
// names an adapter kind; the registry resolves the kind to a factory
// that validates the per-source settings before the core sees them.
package sources

import (
	"fmt"
	"time"

	"autoblogger/internal/ports"
)

// Config is the validated per-source configuration, one tagged variant
// per adapter kind.
type Config struct {
	Name     string
	Kind     string // adapter kind, e.g. "rss"
	URL      string
	Category string
	MaxItems int
	Timeout  time.Duration
}

// Factory builds a feed source from its validated config.
type Factory func(cfg Config) (ports.FeedSource, error)

// Registry maps adapter kinds to their factories.
type Registry struct {
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

// Register adds or replaces the factory for an adapter kind.
func (r *Registry) Register(kind string, factory Factory) {
	if r.factories == nil {
		r.factories = map[string]Factory{}
	}
	r.factories[kind] = factory
}

// Build resolves the config's kind and constructs the source.
func (r *Registry) Build(cfg Config) (ports.FeedSource, error) {
	factory, ok := r.factories[cfg.Kind]
	if !ok {
		return nil, fmt.Errorf("source adapter %q is not registered", cfg.Kind)
	}
	if cfg.Name == "" {
		return nil, fmt.Errorf("source without a name")
	}
	return factory(cfg)
}

// BuildAll constructs every configured source; a single invalid config
// fails the whole wiring, since it is an operator mistake.
func (r *Registry) BuildAll(configs []Config) ([]ports.FeedSource, error) {
	built := make([]ports.FeedSource, 0, len(configs))
	for _, cfg := range configs {
		source, err := r.Build(cfg)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", cfg.Name, err)
		}
		built = append(built, source)
	}
	return built, nil
}
