// Package pgstore provides a PostgreSQL implementation of convlog.Store.
package pgstore

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/frontdesk/internal/convlog"
)

var tracer = otel.Tracer("github.com/linnemanlabs/frontdesk/internal/convlog/pgstore")

//go:embed schema.sql
var schema string

// Store persists conversations in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New applies the schema on the given pool and returns a ready Store. The
// caller owns the pool's lifecycle.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Save replaces the stored entries for the conversation. The delete and
// re-insert run in one transaction so readers never observe a partial log.
func (s *Store) Save(ctx context.Context, conv *convlog.Conversation) error {
	ctx, span := tracer.Start(ctx, "pgstore.Save", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "UPSERT"),
	))
	defer span.End()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is harmless

	_, err = tx.Exec(ctx,
		`INSERT INTO conversations (id, updated_at) VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE SET updated_at = EXCLUDED.updated_at`,
		conv.ID, conv.UpdatedAt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("upsert conversation: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM conversation_entries WHERE conversation_id = $1`, conv.ID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("clear entries: %w", err)
	}

	for i, e := range conv.Entries {
		var metaJSON []byte
		if e.Metadata != nil {
			metaJSON, err = json.Marshal(e.Metadata)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return fmt.Errorf("marshal metadata seq %d: %w", i, err)
			}
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO conversation_entries (conversation_id, seq, role, content, metadata, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			conv.ID, i, e.Role, e.Content, metaJSON, e.Timestamp)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("insert entry seq %d: %w", i, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Load retrieves a conversation with its entries in sequence order.
func (s *Store) Load(ctx context.Context, id string) (*convlog.Conversation, bool, error) {
	ctx, span := tracer.Start(ctx, "pgstore.Load", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	var conv convlog.Conversation
	err := s.pool.QueryRow(ctx, `SELECT id, updated_at FROM conversations WHERE id = $1`, id).
		Scan(&conv.ID, &conv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, fmt.Errorf("scan conversation: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT role, content, metadata, created_at
		 FROM conversation_entries WHERE conversation_id = $1 ORDER BY seq`, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			e        convlog.Entry
			metaJSON []byte
			created  time.Time
		)
		if err := rows.Scan(&e.Role, &e.Content, &metaJSON, &created); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, false, fmt.Errorf("scan entry: %w", err)
		}
		e.Timestamp = created
		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &e.Metadata); err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return nil, false, fmt.Errorf("unmarshal metadata: %w", err)
			}
		}
		conv.Entries = append(conv.Entries, e)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, fmt.Errorf("iterate entries: %w", err)
	}

	return &conv, true, nil
}

// List returns conversation IDs ordered by most recent activity.
func (s *Store) List(ctx context.Context) ([]string, error) {
	ctx, span := tracer.Start(ctx, "pgstore.List", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	rows, err := s.pool.Query(ctx, `SELECT id FROM conversations ORDER BY updated_at DESC`)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("query conversations: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("iterate conversations: %w", err)
	}
	return ids, nil
}
