package ingest

import (
	"sort"
	"sync"

	"github.com/helioswap/routegraph/cache"
	"github.com/helioswap/routegraph/graph"
	"github.com/helioswap/routegraph/router"
)

// ChainService bundles everything one chain owns: its graph, the cache
// in front of it, the builder that refreshes it and the pathfinder that
// queries it. Chains share nothing, so no locking is needed between
// them.
type ChainService struct {
	ChainID    uint64
	Graph      *graph.LiquidityGraph
	Cache      *cache.Manager
	Builder    *GraphBuilder
	Pathfinder *router.Pathfinder
}

// Registry is the explicitly-constructed process-wide container of
// per-chain services. It is built once at startup and passed down to
// the scheduler and the query surface; there is no module-level state.
type Registry struct {
	mu     sync.RWMutex
	chains map[uint64]*ChainService
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{chains: make(map[uint64]*ChainService)}
}

// Register adds or replaces a chain's service bundle.
func (r *Registry) Register(svc *ChainService) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chains[svc.ChainID] = svc
}

// Service returns the bundle for a chain.
func (r *Registry) Service(chainID uint64) (*ChainService, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	svc, ok := r.chains[chainID]
	return svc, ok
}

// Builder returns the graph builder for a chain.
func (r *Registry) Builder(chainID uint64) (*GraphBuilder, bool) {
	svc, ok := r.Service(chainID)
	if !ok {
		return nil, false
	}
	return svc.Builder, true
}

// ChainIDs returns every registered chain id in ascending order.
func (r *Registry) ChainIDs() []uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]uint64, 0, len(r.chains))
	for id := range r.chains {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
