package tts

import (
	"context"
	"errors"
	"fmt"

	"github.com/book-expert/narration-service/internal/core"
)

// Static errors.
var (
	// ErrUnknownEngine indicates a lookup for an engine id that was never
	// registered.
	ErrUnknownEngine = errors.New("unknown speech engine")
	// ErrNoEngineAvailable indicates that none of the registered engines
	// passed its availability check.
	ErrNoEngineAvailable = errors.New("no speech engine available")
)

// availabilityChecker is implemented by engines that can probe their backend.
type availabilityChecker interface {
	Available(ctx context.Context) bool
}

// Entry is one registered engine together with its availability, determined
// once when the registry is built.
type Entry struct {
	Engine    core.SpeechEngine
	Available bool
}

// Registry maps engine identifiers to engines. Availability is a
// configuration-time decision: it is probed once at startup, not re-derived
// per chapter.
type Registry struct {
	entries map[string]Entry
	// order preserves registration order for fallback selection.
	order []string
}

// NewRegistry builds a registry from the given engines, probing each one's
// availability. Registration order doubles as fallback preference order.
func NewRegistry(ctx context.Context, engines ...core.SpeechEngine) *Registry {
	registry := &Registry{
		entries: make(map[string]Entry, len(engines)),
		order:   make([]string, 0, len(engines)),
	}

	for _, engine := range engines {
		available := true
		if checker, ok := engine.(availabilityChecker); ok {
			available = checker.Available(ctx)
		}

		registry.entries[engine.EngineID()] = Entry{
			Engine:    engine,
			Available: available,
		}
		registry.order = append(registry.order, engine.EngineID())
	}

	return registry
}

// Lookup returns the engine registered under id, failing when the id is
// unknown or the engine's backend was unavailable at startup.
func (r *Registry) Lookup(id string) (core.SpeechEngine, error) {
	entry, ok := r.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, id)
	}

	if !entry.Available {
		return nil, fmt.Errorf("%w: %q is not available", ErrNoEngineAvailable, id)
	}

	return entry.Engine, nil
}

// First returns the first available engine in registration order.
func (r *Registry) First() (core.SpeechEngine, error) {
	for _, id := range r.order {
		if entry := r.entries[id]; entry.Available {
			return entry.Engine, nil
		}
	}

	return nil, ErrNoEngineAvailable
}

// Entries returns a copy of the registry contents keyed by engine id.
func (r *Registry) Entries() map[string]Entry {
	snapshot := make(map[string]Entry, len(r.entries))
	for id, entry := range r.entries {
		snapshot[id] = entry
	}

	return snapshot
}
