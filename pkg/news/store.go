package news

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/graphkeep/graphkeep/ent"
	"github.com/graphkeep/graphkeep/ent/newsrecord"
)

// Store persists and retrieves NewsRecord rows.
type Store struct {
	client *ent.Client
}

// NewStore wraps client.
func NewStore(client *ent.Client) *Store {
	return &Store{client: client}
}

// Save writes r as a new NewsRecord row and returns its generated id.
func (s *Store) Save(ctx context.Context, r *Record) (string, error) {
	id := uuid.NewString()
	interested := newsrecord.InterestedNO
	if r.Interested == "YES" {
		interested = newsrecord.InterestedYES
	}

	err := s.client.NewsRecord.Create().
		SetID(id).
		SetDate(r.Date).
		SetTitle(r.Title).
		SetText(r.Text).
		SetURL(r.URL).
		SetTimestamp(r.Timestamp).
		SetInterested(interested).
		SetPaths(r.Paths).
		SetInterestedEntities(r.InterestedEntities).
		SetCreatedAt(time.Now()).
		Exec(ctx)
	if err != nil {
		return "", fmt.Errorf("persist news record: %w", err)
	}
	return id, nil
}

// Delete removes the NewsRecord row by id, called once a reprocess run of
// that record has completed.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.client.NewsRecord.DeleteOneID(id).Exec(ctx)
}

// ReprocessContent reloads a stored article by id and rebuilds the tagged
// body ProcessArticle expects.
func (s *Store) ReprocessContent(ctx context.Context, id string) (string, error) {
	rec, err := s.client.NewsRecord.Get(ctx, id)
	if err != nil {
		return "", fmt.Errorf("load news record %s: %w", id, err)
	}
	return ReprocessInput(rec.Date, rec.Title, rec.Text, rec.URL), nil
}
