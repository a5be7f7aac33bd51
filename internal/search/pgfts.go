package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS searches public messages with PostgreSQL full-text search. It is the
// fallback when Meilisearch is down and the source for reindexing it.
type PgFTS struct {
	db              *sql.DB
	excludeAuthorID string
}

// NewPgFTS creates a PostgreSQL FTS searcher. Messages by excludeAuthorID are
// never returned or loaded for indexing; empty excludes nobody.
func NewPgFTS(db *sql.DB, excludeAuthorID string) *PgFTS {
	return &PgFTS{db: db, excludeAuthorID: excludeAuthorID}
}

// threadJoin resolves the thread a message belongs to: its own channel when
// that channel is a thread, otherwise the thread started by the message.
// listed is the top-level channel, whose indexing switch covers its threads.
const threadJoin = `
	FROM messages m
	JOIN channels c ON c.id = m.channel_id
	JOIN channels listed ON listed.id = coalesce(c.parent_id, c.id)
	LEFT JOIN channels t ON t.parent_id IS NOT NULL
		AND t.id = CASE WHEN c.parent_id IS NOT NULL THEN c.id ELSE m.id END`

const tsQuery = "plainto_tsquery('english', $1)"

// visibleWhere is the condition shared by search and reindexing: public
// messages in indexed channels, minus the excluded author. Placeholders
// continue after the given args.
func (p *PgFTS) visibleWhere(args []any) (string, []any) {
	where := "m.public AND listed.indexing_enabled"
	if p.excludeAuthorID != "" {
		args = append(args, p.excludeAuthorID)
		where += fmt.Sprintf(" AND m.author_id <> $%d", len(args))
	}
	return where, args
}

// searchWhere extends visibleWhere with the text match and query filters.
func (p *PgFTS) searchWhere(q Query) (string, []any) {
	where, args := p.visibleWhere([]any{q.Text})
	where += " AND m.fts @@ " + tsQuery
	if q.ServerID != "" {
		args = append(args, q.ServerID)
		where += fmt.Sprintf(" AND m.server_id = $%d", len(args))
	}
	if q.ExcludeThreadID != "" {
		args = append(args, q.ExcludeThreadID)
		where += fmt.Sprintf(" AND coalesce(t.id, '') <> $%d", len(args))
	}
	return where, args
}

// Search ranks public messages with plainto_tsquery and ts_rank, using
// ts_headline for snippets.
func (p *PgFTS) Search(ctx context.Context, q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	where, args := p.searchWhere(q)

	countSQL := "SELECT count(*)" + threadJoin + " WHERE " + where
	dataSQL := fmt.Sprintf(`SELECT m.id, coalesce(t.id, ''), coalesce(t.name, ''), m.channel_id, m.server_id, m.author_name,
			ts_headline('english', m.content, %s, 'MaxFragments=1,MaxWords=30,StartSel=<mark>,StopSel=</mark>')
		%s
		WHERE %s
		ORDER BY ts_rank(m.fts, %s) DESC, m.created_at DESC
		LIMIT %d OFFSET %d`,
		tsQuery, threadJoin, where, tsQuery, limitOrDefault(q.Limit), offset)

	var total int
	if err := p.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.MessageID, &r.ThreadID, &r.ThreadName, &r.ChannelID, &r.ServerID, &r.AuthorName, &r.Snippet); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		results = append(results, r)
	}

	return results, total, rows.Err()
}

// LoadPublicMessages returns every searchable message for full reindexing.
func (p *PgFTS) LoadPublicMessages(ctx context.Context) ([]MessageRecord, error) {
	where, args := p.visibleWhere(nil)
	rows, err := p.db.QueryContext(ctx, `
		SELECT m.id, m.content, m.author_name, m.channel_id, coalesce(t.id, ''), coalesce(t.name, ''),
			m.server_id, extract(epoch FROM m.created_at)::bigint
		`+threadJoin+`
		WHERE `+where+`
		ORDER BY m.created_at, m.id
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	defer rows.Close()

	records := make([]MessageRecord, 0)
	for rows.Next() {
		var r MessageRecord
		if err := rows.Scan(&r.ID, &r.Content, &r.AuthorName, &r.ChannelID, &r.ThreadID, &r.ThreadName, &r.ServerID, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return records, nil
}
