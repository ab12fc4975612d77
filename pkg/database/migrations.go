package database

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect/sql"
)

// CreateGINIndexes creates full-text search GIN indexes for PostgreSQL.
// These indexes enable efficient full-text search on news article text and
// graph vertex names — not expressible through ent schema tags directly.
func CreateGINIndexes(ctx context.Context, driver *sql.Driver) error {
	db := driver.DB()

	_, err := db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_news_records_text_gin
		ON news_records USING gin(to_tsvector('english', COALESCE(text, '')))`)
	if err != nil {
		return fmt.Errorf("failed to create news text GIN index: %w", err)
	}

	_, err = db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_graph_vertices_name_gin
		ON graph_vertices USING gin(to_tsvector('english', name))`)
	if err != nil {
		return fmt.Errorf("failed to create graph vertex name GIN index: %w", err)
	}

	return nil
}
