package graph

import (
	"context"
)

// Graph is the Graph Access Layer: entity resolution, vertex/edge MERGE
// semantics, and N-hop path finding over the property graph.
type Graph struct {
	store         *Store
	resolver      *Resolver
	disambiguator Disambiguator
	cache         *CandidateCache
}

// New builds a Graph over store, resolving ambiguous candidate sets via
// disambiguator and memoizing candidate lookups in cache (optional).
func New(store *Store, disambiguator Disambiguator, cache *CandidateCache) *Graph {
	return &Graph{
		store:         store,
		resolver:      NewResolver(store, cache),
		disambiguator: disambiguator,
		cache:         cache,
	}
}

// GetOrCreateID resolves (label, name) to a vertex id, creating one if no
// candidate matches. attrs are MERGEd into the resolved or newly created
// vertex; edges are free-text context passed to the disambiguator only.
// Retries once after a jittered sleep on a transient store error.
func (g *Graph) GetOrCreateID(ctx context.Context, label, rawName string, attrs map[string]string, contextEdges []string) (string, error) {
	name := CleanName(rawName)
	if name == "" {
		return "", nil
	}

	var id string
	err := withTransientRetry(ctx, func() error {
		var innerErr error
		id, innerErr = g.resolveOrCreate(ctx, label, name, attrs, contextEdges)
		return innerErr
	})
	return id, err
}

func (g *Graph) resolveOrCreate(ctx context.Context, label, name string, attrs map[string]string, contextEdges []string) (string, error) {
	candidates, err := g.resolver.candidates(ctx, label, name)
	if err != nil {
		return "", err
	}

	var resolvedID string
	if len(candidates) > 0 {
		resolvedID, err = g.disambiguator.Disambiguate(ctx, label, name, attrs, contextEdges, candidates)
		if err != nil {
			return "", err
		}
	}

	if resolvedID == "" {
		id, err := g.store.createVertex(ctx, label, name, attrs)
		if err != nil {
			return "", err
		}
		if g.cache != nil {
			g.cache.Invalidate(label, name)
		}
		return id, nil
	}

	if err := g.store.mergeVertexAttributes(ctx, resolvedID, attrs); err != nil {
		return "", err
	}
	return resolvedID, nil
}

// AddOrUpdateEdge inserts (src, label, dst) with props, or MERGEs props
// as a set-union into the existing edge. Retries once on transient error.
func (g *Graph) AddOrUpdateEdge(ctx context.Context, src, label, dst string, props map[string]string) error {
	return withTransientRetry(ctx, func() error {
		existing, err := g.store.findEdge(ctx, src, label, dst)
		if err != nil {
			return err
		}
		if existing == nil {
			return g.store.insertEdge(ctx, src, label, dst, props)
		}
		return g.store.mergeEdgeProperties(ctx, existing.ID, existing.Properties, props)
	})
}

// UpdateInterested flips the INTERESTED flag on a vertex.
func (g *Graph) UpdateInterested(ctx context.Context, id string, interested bool) error {
	return withTransientRetry(ctx, func() error {
		return g.store.updateInterested(ctx, id, interested)
	})
}

// Entity is a flattened vertex for GetEntities consumers.
type Entity struct {
	ID         string
	Label      string
	Name       string
	Interested bool
	Attributes map[string]string
}

// GetEntities returns every vertex in the graph.
func (g *Graph) GetEntities(ctx context.Context) ([]Entity, error) {
	rows, err := g.store.getEntities(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Entity, 0, len(rows))
	for _, r := range rows {
		out = append(out, Entity{
			ID:         r.ID,
			Label:      r.Label,
			Name:       r.Name,
			Interested: r.Interested == "YES",
			Attributes: r.Attributes,
		})
	}
	return out, nil
}
