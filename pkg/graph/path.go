package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Path is one rendered traversal result: the human-readable path string and
// the name of the terminal INTERESTED=YES vertex it ends at.
type Path struct {
	Rendered       string
	TerminalEntity string
}

// adjacencyEntry is one direction-aware edge incident to a vertex: forward
// is true when the edge was followed src->dst, false when followed
// dst->src (bothE/bothV is undirected, so either direction is valid).
type adjacencyEntry struct {
	edge    edgeRow
	forward bool
	// toName is the name of the vertex the step arrives at; set during
	// traversal, empty in the adjacency list itself.
	toName string
}

// FindWithinNHops resolves (label, name) to a vertex, then returns the
// union of (a) the single-vertex path when that vertex itself has
// INTERESTED=YES, and (b) every simple path of length <= n hops that
// terminates at an INTERESTED=YES vertex. Implemented as a bounded DFS over
// graph_edges since no graph-engine driver exists in this stack
// (ent/schema/graphvertex.go) — the equivalent of a Gremlin
// repeat/emit/has traversal expressed over a relational adjacency list.
func (g *Graph) FindWithinNHops(ctx context.Context, label, name string, attrs map[string]string, contextEdges []string, n int) ([]Path, error) {
	cleanedName := CleanName(name)
	if cleanedName == "" {
		return nil, nil
	}

	candidates, err := g.resolver.candidates(ctx, label, cleanedName)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	var rootID string
	if len(candidates) == 1 {
		rootID = candidates[0].ID
	} else {
		rootID, err = g.disambiguator.Disambiguate(ctx, label, cleanedName, attrs, contextEdges, candidates)
		if err != nil {
			return nil, err
		}
	}
	if rootID == "" {
		return nil, nil
	}

	root, err := g.store.getVertex(ctx, rootID)
	if err != nil {
		return nil, err
	}

	var paths []Path
	if root.Interested == "YES" {
		paths = append(paths, Path{Rendered: root.Name, TerminalEntity: root.Name})
	}

	adj, err := g.loadAdjacency(ctx)
	if err != nil {
		return nil, err
	}

	visited := map[string]bool{rootID: true}
	var walk func(vertexID string, steps []adjacencyEntry, depth int) error
	walk = func(vertexID string, steps []adjacencyEntry, depth int) error {
		if depth >= n {
			return nil
		}
		for _, step := range adj[vertexID] {
			var nextID string
			if step.forward {
				nextID = step.edge.DstID
			} else {
				nextID = step.edge.SrcID
			}
			if visited[nextID] {
				continue
			}
			visited[nextID] = true

			nextVertex, err := g.store.getVertex(ctx, nextID)
			if err != nil {
				delete(visited, nextID)
				return err
			}
			arrived := step
			arrived.toName = nextVertex.Name
			nextSteps := append(append([]adjacencyEntry{}, steps...), arrived)
			if nextVertex.Interested == "YES" {
				paths = append(paths, Path{
					Rendered:       renderPath(root.Name, nextSteps),
					TerminalEntity: nextVertex.Name,
				})
			}
			if err := walk(nextID, nextSteps, depth+1); err != nil {
				delete(visited, nextID)
				return err
			}
			delete(visited, nextID)
		}
		return nil
	}

	if err := walk(rootID, nil, 0); err != nil {
		return nil, err
	}

	return paths, nil
}

// loadAdjacency builds an undirected adjacency list over every edge, each
// entry recording the traversal direction for rendering.
func (g *Graph) loadAdjacency(ctx context.Context) (map[string][]adjacencyEntry, error) {
	rows, err := g.store.db.QueryContext(ctx, `SELECT edge_id, src_id, dst_id, label, properties FROM graph_edges`)
	if err != nil {
		return nil, wrapTransient(err)
	}
	defer rows.Close()

	adj := map[string][]adjacencyEntry{}
	for rows.Next() {
		var e edgeRow
		var propsJSON []byte
		if err := rows.Scan(&e.ID, &e.SrcID, &e.DstID, &e.Label, &propsJSON); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(propsJSON, &e.Properties); err != nil {
			return nil, err
		}
		adj[e.SrcID] = append(adj[e.SrcID], adjacencyEntry{edge: e, forward: true})
		adj[e.DstID] = append(adj[e.DstID], adjacencyEntry{edge: e, forward: false})
	}
	return adj, rows.Err()
}

// renderPath formats a path as "A --> label(props) --> B <-- ...", using the
// vertex name each step recorded during traversal.
func renderPath(rootName string, steps []adjacencyEntry) string {
	var b strings.Builder
	b.WriteString(rootName)
	for _, step := range steps {
		arrow := "-->"
		if !step.forward {
			arrow = "<--"
		}
		fmt.Fprintf(&b, " %s %s(%s) %s %s", arrow, step.edge.Label, formatProps(step.edge.Properties), arrow, step.toName)
	}
	return b.String()
}

func formatProps(props map[string]string) string {
	parts := make([]string, 0, len(props))
	for k, v := range props {
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, ",")
}
