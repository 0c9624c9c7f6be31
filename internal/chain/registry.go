package chain

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	walleterr "github.com/mrz1836/dnawallet/pkg/errors"
)

// MaxChains is the registry capacity.
const MaxChains = 16

// Info describes a registered chain.
type Info struct {
	Name        string
	Type        Type
	Initialized bool
}

type entry struct {
	Info

	chain Chain
}

// Registry maps chain names to implementations. The application builds one
// and passes it to every caller; there is no package-level registry.
type Registry struct {
	mu      sync.RWMutex
	entries []*entry
	logger  zerolog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{logger: logger.With().Str("component", "registry").Logger()}
}

// Register adds c under name. Names are unique and capacity is MaxChains.
func (r *Registry) Register(name string, typ Type, c Chain) error {
	if name == "" || c == nil {
		return walleterr.WithDetails(walleterr.ErrInvalidInput, map[string]string{"reason": "name and chain are required"})
	}
	if !typ.IsValid() {
		return walleterr.WithDetails(walleterr.ErrInvalidInput, map[string]string{"type": string(typ)})
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.find(name) != nil {
		return walleterr.WithDetails(walleterr.ErrChainExists, map[string]string{"name": name})
	}
	if len(r.entries) >= MaxChains {
		return walleterr.WithDetails(walleterr.ErrRegistryFull, map[string]string{"name": name})
	}

	r.entries = append(r.entries, &entry{Info: Info{Name: name, Type: typ}, chain: c})
	r.logger.Debug().Str("chain", name).Str("type", typ.String()).Msg("registered")
	return nil
}

// Lookup returns the chain registered as name.
func (r *Registry) Lookup(name string) (Chain, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if e := r.find(name); e != nil {
		return e.chain, nil
	}
	return nil, walleterr.WithDetails(walleterr.ErrChainNotFound, map[string]string{"name": name})
}

// LookupByType returns the first chain registered with typ.
func (r *Registry) LookupByType(typ Type) (Chain, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.entries {
		if e.Type == typ {
			return e.chain, nil
		}
	}
	return nil, walleterr.WithDetails(walleterr.ErrChainNotFound, map[string]string{"type": typ.String()})
}

// List returns the registered chains in registration order.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Info, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Info
	}
	return out
}

// Len returns the number of registered chains.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// InitAll initializes every chain not yet initialized and returns how many
// failed. A failure does not stop the remaining chains.
func (r *Registry) InitAll(ctx context.Context) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	failed := 0
	for _, e := range r.entries {
		if e.Initialized {
			continue
		}
		if err := e.chain.Init(ctx); err != nil {
			failed++
			r.logger.Error().Err(err).Str("chain", e.Name).Msg("init failed")
			continue
		}
		e.Initialized = true
	}
	return failed
}

// Init initializes the chain registered as name if it is not yet
// initialized and returns its error, for callers that need one chain only.
func (r *Registry) Init(ctx context.Context, name string) (Chain, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.find(name)
	if e == nil {
		return nil, walleterr.WithDetails(walleterr.ErrChainNotFound, map[string]string{"name": name})
	}
	if !e.Initialized {
		if err := e.chain.Init(ctx); err != nil {
			return nil, fmt.Errorf("initializing %s: %w", name, err)
		}
		e.Initialized = true
	}
	return e.chain, nil
}

// CleanupAll closes every chain and empties the registry.
func (r *Registry) CleanupAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.entries {
		if err := e.chain.Close(); err != nil {
			r.logger.Warn().Err(err).Str("chain", e.Name).Msg("close failed")
		}
	}
	r.entries = nil
}

func (r *Registry) find(name string) *entry {
	for _, e := range r.entries {
		if e.Name == name {
			return e
		}
	}
	return nil
}
