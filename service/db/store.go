package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brojonat/solkit/service/metrics"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// Store provides database operations for the service: the tool invocation
// audit log and chat transcripts.
type Store struct {
	pool    *pgxpool.Pool
	metrics *metrics.Metrics
}

// NewStore creates a new Store with the given database connection pool.
// m may be nil.
func NewStore(pool *pgxpool.Pool, m *metrics.Metrics) *Store {
	return &Store{pool: pool, metrics: m}
}

const schema = `
CREATE TABLE IF NOT EXISTS tool_invocations (
	id          UUID PRIMARY KEY,
	tool        TEXT NOT NULL,
	input       TEXT NOT NULL,
	output      TEXT NOT NULL,
	status      TEXT NOT NULL,
	code        TEXT,
	tx_id       TEXT,
	started_at  TIMESTAMPTZ NOT NULL,
	duration_ms BIGINT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS tool_invocations_tool_started_idx ON tool_invocations (tool, started_at DESC);

CREATE TABLE IF NOT EXISTS chat_messages (
	id         UUID PRIMARY KEY,
	seq        BIGSERIAL,
	chat_id    TEXT NOT NULL,
	role       TEXT NOT NULL,
	content    TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS chat_messages_chat_seq_idx ON chat_messages (chat_id, seq);
`

// EnsureSchema creates the tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	start := time.Now()
	_, err := s.pool.Exec(ctx, schema)
	s.observe("ensure_schema", "all", start, err)
	if err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// Invocation is a stored tool invocation.
type Invocation struct {
	ID        string
	Tool      string
	Input     string
	Output    string
	Status    string
	Code      *string
	TxID      *string
	StartedAt time.Time
	Duration  time.Duration
	CreatedAt time.Time
}

// RecordInvocationParams contains the parameters for recording an invocation.
type RecordInvocationParams struct {
	ID        string // generated when empty
	Tool      string
	Input     string
	Output    string
	Status    string
	Code      string
	TxID      string
	StartedAt time.Time
	Duration  time.Duration
}

// RecordInvocation inserts an invocation. Recording the same ID twice is a
// no-op so retried activities stay idempotent.
func (s *Store) RecordInvocation(ctx context.Context, params RecordInvocationParams) (*Invocation, error) {
	id := params.ID
	if id == "" {
		id = uuid.NewString()
	}
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid invocation id %q: %w", id, err)
	}

	start := time.Now()
	row := s.pool.QueryRow(ctx, `
		INSERT INTO tool_invocations (id, tool, input, output, status, code, tx_id, started_at, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET id = EXCLUDED.id
		RETURNING id, tool, input, output, status, code, tx_id, started_at, duration_ms, created_at`,
		uid,
		params.Tool,
		params.Input,
		params.Output,
		params.Status,
		pgtextFromString(params.Code),
		pgtextFromString(params.TxID),
		pgtype.Timestamptz{Time: params.StartedAt, Valid: true},
		params.Duration.Milliseconds(),
	)
	inv, err := scanInvocation(row)
	s.observe("insert", "tool_invocations", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to record invocation: %w", err)
	}
	return inv, nil
}

// ListInvocationsParams filters and paginates invocations.
type ListInvocationsParams struct {
	Tool   string // all tools when empty
	Limit  int32
	Offset int32
}

// ListInvocations returns invocations, most recent first.
func (s *Store) ListInvocations(ctx context.Context, params ListInvocationsParams) ([]*Invocation, error) {
	if params.Limit <= 0 {
		params.Limit = 50
	}
	start := time.Now()
	rows, err := s.pool.Query(ctx, `
		SELECT id, tool, input, output, status, code, tx_id, started_at, duration_ms, created_at
		FROM tool_invocations
		WHERE ($1 = '' OR tool = $1)
		ORDER BY started_at DESC
		LIMIT $2 OFFSET $3`,
		params.Tool, params.Limit, params.Offset,
	)
	if err != nil {
		s.observe("select", "tool_invocations", start, err)
		return nil, fmt.Errorf("failed to list invocations: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*Invocation, error) {
		return scanInvocation(row)
	})
	s.observe("select", "tool_invocations", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list invocations: %w", err)
	}
	return out, nil
}

// GetInvocation returns one invocation by ID.
func (s *Store) GetInvocation(ctx context.Context, id string) (*Invocation, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid invocation id %q: %w", id, err)
	}
	start := time.Now()
	row := s.pool.QueryRow(ctx, `
		SELECT id, tool, input, output, status, code, tx_id, started_at, duration_ms, created_at
		FROM tool_invocations WHERE id = $1`, uid)
	inv, err := scanInvocation(row)
	s.observe("select", "tool_invocations", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invocation: %w", err)
	}
	return inv, nil
}

// ChatMessage is one stored transcript entry.
type ChatMessage struct {
	ID        string
	ChatID    string
	Role      string
	Content   string
	CreatedAt time.Time
}

// AppendMessageParams contains the parameters for appending a message.
type AppendMessageParams struct {
	ChatID  string
	Role    string
	Content string
}

// AppendMessage adds a message to the end of a chat.
func (s *Store) AppendMessage(ctx context.Context, params AppendMessageParams) (*ChatMessage, error) {
	start := time.Now()
	var (
		id        uuid.UUID
		msg       ChatMessage
		createdAt pgtype.Timestamptz
	)
	err := s.pool.QueryRow(ctx, `
		INSERT INTO chat_messages (id, chat_id, role, content)
		VALUES ($1, $2, $3, $4)
		RETURNING id, chat_id, role, content, created_at`,
		uuid.New(), params.ChatID, params.Role, params.Content,
	).Scan(&id, &msg.ChatID, &msg.Role, &msg.Content, &createdAt)
	s.observe("insert", "chat_messages", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to append message: %w", err)
	}
	msg.ID = id.String()
	msg.CreatedAt = createdAt.Time
	return &msg, nil
}

// ListMessages returns up to limit messages of a chat in transcript order.
// The most recent messages are kept when the chat is longer than limit.
func (s *Store) ListMessages(ctx context.Context, chatID string, limit int32) ([]*ChatMessage, error) {
	if limit <= 0 {
		limit = 200
	}
	start := time.Now()
	rows, err := s.pool.Query(ctx, `
		SELECT id, chat_id, role, content, created_at FROM (
			SELECT id, seq, chat_id, role, content, created_at
			FROM chat_messages
			WHERE chat_id = $1
			ORDER BY seq DESC
			LIMIT $2
		) recent
		ORDER BY seq ASC`,
		chatID, limit,
	)
	if err != nil {
		s.observe("select", "chat_messages", start, err)
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*ChatMessage, error) {
		var (
			id        uuid.UUID
			msg       ChatMessage
			createdAt pgtype.Timestamptz
		)
		if err := row.Scan(&id, &msg.ChatID, &msg.Role, &msg.Content, &createdAt); err != nil {
			return nil, err
		}
		msg.ID = id.String()
		msg.CreatedAt = createdAt.Time
		return &msg, nil
	})
	s.observe("select", "chat_messages", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return out, nil
}

// Helper functions to convert between pgx types and domain types

func scanInvocation(row pgx.Row) (*Invocation, error) {
	var (
		id         uuid.UUID
		inv        Invocation
		code, txID pgtype.Text
		startedAt  pgtype.Timestamptz
		createdAt  pgtype.Timestamptz
		durationMS int64
	)
	if err := row.Scan(&id, &inv.Tool, &inv.Input, &inv.Output, &inv.Status, &code, &txID, &startedAt, &durationMS, &createdAt); err != nil {
		return nil, err
	}
	inv.ID = id.String()
	inv.Code = stringPtrFromPgtext(code)
	inv.TxID = stringPtrFromPgtext(txID)
	inv.StartedAt = startedAt.Time
	inv.CreatedAt = createdAt.Time
	inv.Duration = time.Duration(durationMS) * time.Millisecond
	return &inv, nil
}

func pgtextFromString(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

func stringPtrFromPgtext(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	return &t.String
}

func (s *Store) observe(operation, table string, start time.Time, err error) {
	if s.metrics != nil {
		s.metrics.RecordDBQuery(operation, table, time.Since(start).Seconds(), err)
	}
}
