package graph

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Store is the raw-SQL backing store for the property graph. GraphVertex
// and GraphEdge (ent/schema) stand in for an opaque graph-engine
// capability; candidate lookups and the edge load behind N-hop traversal
// are hand-written SQL rather than ent queries.
type Store struct {
	db *sql.DB
}

// NewStore wraps db for graph reads/writes.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) findByExactName(ctx context.Context, label, name string) ([]Candidate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT vertex_id, name FROM graph_vertices WHERE label = $1 AND name = $2`,
		label, name,
	)
	if err != nil {
		return nil, wrapTransient(err)
	}
	defer rows.Close()
	return scanCandidates(rows)
}

func (s *Store) findByNameSubstring(ctx context.Context, label, token string) ([]Candidate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT vertex_id, name FROM graph_vertices WHERE label = $1 AND name ILIKE '%' || $2 || '%'`,
		label, token,
	)
	if err != nil {
		return nil, wrapTransient(err)
	}
	defer rows.Close()
	return scanCandidates(rows)
}

func (s *Store) listNames(ctx context.Context, label string) ([]Candidate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT vertex_id, name FROM graph_vertices WHERE label = $1`,
		label,
	)
	if err != nil {
		return nil, wrapTransient(err)
	}
	defer rows.Close()
	return scanCandidates(rows)
}

func scanCandidates(rows *sql.Rows) ([]Candidate, error) {
	var out []Candidate
	for rows.Next() {
		var c Candidate
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// createVertex inserts a new vertex with the given cleaned name and
// attribute set, returning its generated id.
func (s *Store) createVertex(ctx context.Context, label, name string, attrs map[string]string) (string, error) {
	id := uuid.NewString()
	attrJSON, err := json.Marshal(attrs)
	if err != nil {
		return "", fmt.Errorf("marshal attributes: %w", err)
	}
	now := time.Now()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO graph_vertices (vertex_id, label, name, interested, attributes, created_at, updated_at)
		 VALUES ($1, $2, $3, 'NO', $4, $5, $5)`,
		id, label, name, attrJSON, now,
	)
	if err != nil {
		return "", wrapTransient(err)
	}
	return id, nil
}

// mergeVertexAttributes applies a set-union MERGE to an existing vertex's
// attribute map. Narrative summary fields overwrite instead of union.
func (s *Store) mergeVertexAttributes(ctx context.Context, id string, newAttrs map[string]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapTransient(err)
	}
	defer func() { _ = tx.Rollback() }()

	var existingJSON []byte
	if err := tx.QueryRowContext(ctx, `SELECT attributes FROM graph_vertices WHERE vertex_id = $1 FOR UPDATE`, id).Scan(&existingJSON); err != nil {
		return wrapTransient(err)
	}
	var existing map[string]string
	if err := json.Unmarshal(existingJSON, &existing); err != nil {
		return fmt.Errorf("unmarshal existing attributes: %w", err)
	}
	if existing == nil {
		existing = map[string]string{}
	}

	for k, v := range newAttrs {
		if isNarrativeField(k) {
			existing[k] = v
			continue
		}
		existing[k] = unionCommaList(existing[k], v)
	}

	merged, err := json.Marshal(existing)
	if err != nil {
		return fmt.Errorf("marshal merged attributes: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE graph_vertices SET attributes = $1, updated_at = $2 WHERE vertex_id = $3`,
		merged, time.Now(), id,
	); err != nil {
		return wrapTransient(err)
	}

	return tx.Commit()
}

// narrativeFields overwrite rather than union on vertex MERGE.
var narrativeFields = map[string]bool{
	"SUMMARY_OF_BUSINESS_PERFORMANCE": true,
	"SUMMARY_OF_BUSINESS_STRATEGY":    true,
}

func isNarrativeField(key string) bool {
	return narrativeFields[key]
}

// unionCommaList merges two comma-joined value lists: split, trim,
// uppercase, dedup, and rejoin with commas. The same merge logic used for
// edge properties is reused here for vertex attributes.
func unionCommaList(existing, incoming string) string {
	seen := map[string]bool{}
	var ordered []string
	add := func(raw string) {
		for _, part := range strings.Split(raw, ",") {
			v := strings.ToUpper(strings.TrimSpace(part))
			if v == "" || seen[v] {
				continue
			}
			seen[v] = true
			ordered = append(ordered, v)
		}
	}
	add(existing)
	add(incoming)
	return strings.Join(ordered, ",")
}

// updateInterested sets the INTERESTED flag on a vertex.
func (s *Store) updateInterested(ctx context.Context, id string, interested bool) error {
	flag := "NO"
	if interested {
		flag = "YES"
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE graph_vertices SET interested = $1, updated_at = $2 WHERE vertex_id = $3`,
		flag, time.Now(), id,
	)
	return wrapTransient(err)
}

// vertexRow is the full row shape returned by getEntities/getVertex.
type vertexRow struct {
	ID         string
	Label      string
	Name       string
	Interested string
	Attributes map[string]string
}

func (s *Store) getVertex(ctx context.Context, id string) (*vertexRow, error) {
	var v vertexRow
	var attrJSON []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT vertex_id, label, name, interested, attributes FROM graph_vertices WHERE vertex_id = $1`,
		id,
	).Scan(&v.ID, &v.Label, &v.Name, &v.Interested, &attrJSON)
	if err != nil {
		return nil, wrapTransient(err)
	}
	if err := json.Unmarshal(attrJSON, &v.Attributes); err != nil {
		return nil, fmt.Errorf("unmarshal vertex attributes: %w", err)
	}
	return &v, nil
}

func (s *Store) getEntities(ctx context.Context) ([]vertexRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT vertex_id, label, name, interested, attributes FROM graph_vertices`)
	if err != nil {
		return nil, wrapTransient(err)
	}
	defer rows.Close()

	var out []vertexRow
	for rows.Next() {
		var v vertexRow
		var attrJSON []byte
		if err := rows.Scan(&v.ID, &v.Label, &v.Name, &v.Interested, &attrJSON); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(attrJSON, &v.Attributes); err != nil {
			return nil, fmt.Errorf("unmarshal vertex attributes: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// edgeRow is one stored edge.
type edgeRow struct {
	ID         string
	SrcID      string
	DstID      string
	Label      string
	Properties map[string]string
}

func (s *Store) findEdge(ctx context.Context, src, label, dst string) (*edgeRow, error) {
	var e edgeRow
	var propsJSON []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT edge_id, src_id, dst_id, label, properties FROM graph_edges WHERE src_id = $1 AND label = $2 AND dst_id = $3`,
		src, label, dst,
	).Scan(&e.ID, &e.SrcID, &e.DstID, &e.Label, &propsJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrapTransient(err)
	}
	if err := json.Unmarshal(propsJSON, &e.Properties); err != nil {
		return nil, fmt.Errorf("unmarshal edge properties: %w", err)
	}
	return &e, nil
}

func (s *Store) insertEdge(ctx context.Context, src, label, dst string, props map[string]string) error {
	id := uuid.NewString()
	deduped := map[string]string{}
	for k, v := range props {
		deduped[k] = unionCommaList("", v)
	}
	propsJSON, err := json.Marshal(deduped)
	if err != nil {
		return fmt.Errorf("marshal edge properties: %w", err)
	}
	now := time.Now()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO graph_edges (edge_id, src_id, dst_id, label, properties, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $6)`,
		id, src, label, dst, propsJSON, now,
	)
	return wrapTransient(err)
}

func (s *Store) mergeEdgeProperties(ctx context.Context, edgeID string, existing, incoming map[string]string) error {
	merged := map[string]string{}
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range incoming {
		merged[k] = unionCommaList(merged[k], v)
	}
	propsJSON, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("marshal merged edge properties: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE graph_edges SET properties = $1, updated_at = $2 WHERE edge_id = $3`,
		propsJSON, time.Now(), edgeID,
	)
	return wrapTransient(err)
}
