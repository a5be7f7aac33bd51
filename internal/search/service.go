package search

import (
	"context"
	"log"
	"strings"

	"threadview/api/internal/thread"
)

// RelatedSnippetLength bounds the snippet shown for a related post.
const RelatedSnippetLength = 100

const reindexBatch = 1000

// Service is the facade that tries Meilisearch first and falls back to PG FTS.
type Service struct {
	meili *Meili
	pgfts *PgFTS
}

// NewService creates a search service. meili may be nil if Meilisearch is not configured.
func NewService(meili *Meili, pgfts *PgFTS) *Service {
	return &Service{meili: meili, pgfts: pgfts}
}

// Search tries Meilisearch if healthy, otherwise falls back to PG FTS.
func (s *Service) Search(ctx context.Context, q Query) Response {
	results, total, err := s.search(ctx, q)
	if err != nil {
		log.Printf("search: pgfts error: %v", err)
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

func (s *Service) search(ctx context.Context, q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(ctx, q)
		if err == nil {
			return results, total, nil
		}
		log.Printf("search: meilisearch error, falling back to pgfts: %v", err)
	}
	if s.pgfts == nil {
		return nil, 0, nil
	}
	return s.pgfts.Search(ctx, q)
}

// Related finds posts in the same server that match title, one per thread,
// skipping the thread being viewed.
func (s *Service) Related(ctx context.Context, serverID, title, excludeThreadID string, limit int) []Result {
	if limit <= 0 {
		return []Result{}
	}
	results, _, err := s.search(ctx, Query{
		Text:            title,
		ServerID:        serverID,
		ExcludeThreadID: excludeThreadID,
		Limit:           limit * 2,
	})
	if err != nil {
		log.Printf("search: related posts for thread %s: %v", excludeThreadID, err)
		return []Result{}
	}
	return relatedPosts(results, excludeThreadID, limit)
}

func relatedPosts(results []Result, excludeThreadID string, limit int) []Result {
	seen := make(map[string]bool)
	out := make([]Result, 0, limit)
	for _, r := range results {
		key := r.ThreadID
		if key == "" {
			key = r.MessageID
		}
		if key == excludeThreadID || seen[key] {
			continue
		}
		seen[key] = true
		r.Snippet = thread.Truncate(thread.StripMarkup(r.Snippet), RelatedSnippetLength)
		out = append(out, r)
		if len(out) == limit {
			break
		}
	}
	return out
}

// ReindexAllFromPG pushes every public message from PostgreSQL into
// Meilisearch. It is a no-op when the index already holds documents.
func (s *Service) ReindexAllFromPG(ctx context.Context) {
	if s.meili == nil || !s.meili.Healthy() || s.pgfts == nil {
		return
	}
	if n, err := s.meili.IndexedCount(); err == nil && n > 0 {
		return
	}
	records, err := s.pgfts.LoadPublicMessages(ctx)
	if err != nil {
		log.Printf("search: reindex load failed: %v", err)
		return
	}
	for start := 0; start < len(records); start += reindexBatch {
		end := min(start+reindexBatch, len(records))
		if err := s.meili.IndexMessages(records[start:end]); err != nil {
			log.Printf("search: reindex messages: %v", err)
			return
		}
	}
	log.Printf("search: reindexed %d public messages", len(records))
}

// Close stops background work.
func (s *Service) Close() {
	if s.meili != nil {
		s.meili.Close()
	}
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
