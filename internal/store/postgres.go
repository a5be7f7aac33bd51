package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const serverColumns = `id, name, description, icon, custom_domain, invite_code`

func scanServer(row interface{ Scan(...any) error }) (Server, error) {
	var server Server
	err := row.Scan(&server.ID, &server.Name, &server.Description, &server.Icon, &server.CustomDomain, &server.InviteCode)
	return server, err
}

func (s *PostgresStore) GetServer(ctx context.Context, serverID string) (Server, error) {
	server, err := scanServer(s.db.QueryRowContext(ctx, `SELECT `+serverColumns+` FROM servers WHERE id=$1`, serverID))
	if err != nil {
		return Server{}, err
	}
	return server, nil
}

// GetServerByDomain resolves a tenant from its custom domain.
func (s *PostgresStore) GetServerByDomain(ctx context.Context, domain string) (Server, error) {
	server, err := scanServer(s.db.QueryRowContext(ctx, `SELECT `+serverColumns+` FROM servers WHERE lower(custom_domain)=lower($1)`, domain))
	if err != nil {
		return Server{}, err
	}
	return server, nil
}

const channelColumns = `id, server_id, parent_id, name, type, indexing_enabled`

func scanChannel(row interface{ Scan(...any) error }) (Channel, error) {
	var channel Channel
	err := row.Scan(&channel.ID, &channel.ServerID, &channel.ParentID, &channel.Name, &channel.Type, &channel.IndexingEnabled)
	return channel, err
}

func (s *PostgresStore) GetChannel(ctx context.Context, channelID string) (Channel, error) {
	channel, err := scanChannel(s.db.QueryRowContext(ctx, `SELECT `+channelColumns+` FROM channels WHERE id=$1`, channelID))
	if err != nil {
		return Channel{}, err
	}
	return channel, nil
}

// ListServerChannels returns the indexed top-level channels of a server.
func (s *PostgresStore) ListServerChannels(ctx context.Context, serverID string) ([]Channel, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+channelColumns+`
		FROM channels
		WHERE server_id=$1 AND parent_id IS NULL AND indexing_enabled
		ORDER BY name, id
	`, serverID)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	defer rows.Close()

	channels := make([]Channel, 0)
	for rows.Next() {
		channel, err := scanChannel(rows)
		if err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		channels = append(channels, channel)
	}
	return channels, rows.Err()
}

const messageColumns = `m.id, m.channel_id, m.server_id, m.author_id, m.author_name, m.author_avatar, m.content, m.public, m.created_at`

func scanMessage(row interface{ Scan(...any) error }, dest *Message) error {
	return row.Scan(&dest.ID, &dest.ChannelID, &dest.ServerID, &dest.AuthorID, &dest.AuthorName, &dest.AuthorAvatar, &dest.Content, &dest.Public, &dest.CreatedAt)
}

// GetMessage loads a single message with its attachments and embeds.
func (s *PostgresStore) GetMessage(ctx context.Context, messageID string) (Message, error) {
	var message Message
	row := s.db.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM messages m WHERE m.id=$1`, messageID)
	if err := scanMessage(row, &message); err != nil {
		return Message{}, err
	}
	messages := []Message{message}
	if err := s.loadDetails(ctx, messages); err != nil {
		return Message{}, err
	}
	return messages[0], nil
}

// ListThreadMessages returns the starter message of threadID followed by the
// thread's messages in chronological order. The accepted solutions of the
// thread are attached to the first message.
func (s *PostgresStore) ListThreadMessages(ctx context.Context, threadID string) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+messageColumns+`
		FROM messages m
		WHERE m.channel_id=$1 OR m.id=$1
		ORDER BY (m.id=$1) DESC, m.created_at, m.id
	`, threadID)
	if err != nil {
		return nil, fmt.Errorf("list thread messages: %w", err)
	}
	defer rows.Close()

	messages := make([]Message, 0)
	for rows.Next() {
		var message Message
		if err := scanMessage(rows, &message); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, message)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	if err := s.loadDetails(ctx, messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (s *PostgresStore) loadDetails(ctx context.Context, messages []Message) error {
	if len(messages) == 0 {
		return nil
	}
	ids := make([]string, len(messages))
	index := make(map[string]int, len(messages))
	for i, message := range messages {
		ids[i] = message.ID
		index[message.ID] = i
	}

	if err := s.loadAttachments(ctx, ids, func(a Attachment) {
		i := index[a.MessageID]
		messages[i].Attachments = append(messages[i].Attachments, a)
	}); err != nil {
		return err
	}
	if err := s.loadEmbeds(ctx, ids, func(messageID string, e Embed) {
		i := index[messageID]
		messages[i].Embeds = append(messages[i].Embeds, e)
	}); err != nil {
		return err
	}

	solutionIDs, err := s.listSolutionIDs(ctx, messages[0].ID)
	if err != nil {
		return err
	}
	messages[0].SolutionIDs = solutionIDs
	return nil
}

func (s *PostgresStore) loadAttachments(ctx context.Context, ids []string, add func(Attachment)) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, message_id, filename, coalesce(content_type, ''), size, coalesce(object_key, ''), url
		FROM attachments
		WHERE message_id = ANY($1)
		ORDER BY message_id, position
	`, ids)
	if err != nil {
		return fmt.Errorf("load attachments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a Attachment
		if err := rows.Scan(&a.ID, &a.MessageID, &a.Filename, &a.ContentType, &a.Size, &a.ObjectKey, &a.URL); err != nil {
			return fmt.Errorf("scan attachment: %w", err)
		}
		add(a)
	}
	return rows.Err()
}

func (s *PostgresStore) loadEmbeds(ctx context.Context, ids []string, add func(string, Embed)) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT message_id, payload
		FROM embeds
		WHERE message_id = ANY($1)
		ORDER BY message_id, position
	`, ids)
	if err != nil {
		return fmt.Errorf("load embeds: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var messageID string
		var payload []byte
		if err := rows.Scan(&messageID, &payload); err != nil {
			return fmt.Errorf("scan embed: %w", err)
		}
		var embed Embed
		if err := json.Unmarshal(payload, &embed); err != nil {
			log.Printf("store: skipping malformed embed on message %s: %v", messageID, err)
			continue
		}
		add(messageID, embed)
	}
	return rows.Err()
}

func (s *PostgresStore) listSolutionIDs(ctx context.Context, questionID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT solution_id FROM solutions WHERE question_id=$1 ORDER BY marked_at, solution_id
	`, questionID)
	if err != nil {
		return nil, fmt.Errorf("list solutions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan solution: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListChannelQuestions returns one page of threads under channelID, newest
// first, each with its public starter message.
func (s *PostgresStore) ListChannelQuestions(ctx context.Context, channelID string, limit, offset int) ([]Question, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.server_id, t.parent_id, t.name, t.type, t.indexing_enabled, `+messageColumns+`
		FROM channels t
		JOIN messages m ON m.id = t.id
		WHERE t.parent_id=$1 AND m.public
		ORDER BY m.created_at DESC, t.id DESC
		LIMIT $2 OFFSET $3
	`, channelID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	questions := make([]Question, 0)
	for rows.Next() {
		var q Question
		m := &q.Message
		if err := rows.Scan(
			&q.Thread.ID, &q.Thread.ServerID, &q.Thread.ParentID, &q.Thread.Name, &q.Thread.Type, &q.Thread.IndexingEnabled,
			&m.ID, &m.ChannelID, &m.ServerID, &m.AuthorID, &m.AuthorName, &m.AuthorAvatar, &m.Content, &m.Public, &m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// FindThread resolves the thread a message belongs to: its own channel when
// that is a thread, or a thread started from the message. ok is false when
// the message stands alone.
func (s *PostgresStore) FindThread(ctx context.Context, message Message) (Channel, bool, error) {
	channel, err := s.GetChannel(ctx, message.ChannelID)
	if err != nil {
		return Channel{}, false, fmt.Errorf("load message channel: %w", err)
	}
	if channel.IsThread() {
		return channel, true, nil
	}
	started, err := s.GetChannel(ctx, message.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return Channel{}, false, nil
	}
	if err != nil {
		return Channel{}, false, fmt.Errorf("load started thread: %w", err)
	}
	return started, started.IsThread(), nil
}
