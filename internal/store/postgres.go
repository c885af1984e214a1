package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rotationlab/rotation-data/internal/config"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id          BIGSERIAL PRIMARY KEY,
	collection  TEXT NOT NULL,
	doc         JSONB NOT NULL,
	inserted_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS documents_collection_idx ON documents (collection);
CREATE INDEX IF NOT EXISTS documents_doc_idx ON documents USING GIN (doc);
`

// Postgres implements Store on a single jsonb-backed table.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// Connect creates a connection pool, verifies it, and ensures the schema.
func Connect(ctx context.Context, cfg config.DBConfig, logger *slog.Logger) (*Postgres, error) {
	if logger == nil {
		logger = slog.Default()
	}

	connStr := BuildConnString(cfg)

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return &Postgres{pool: pool, logger: logger}, nil
}

// Close closes the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

// Ping verifies the connection is healthy.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// ReplaceAll deletes every document in the collection and inserts the given
// ones inside one transaction, so readers never observe a half-replaced
// snapshot.
func (p *Postgres) ReplaceAll(ctx context.Context, collection string, docs []any) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM documents WHERE collection = $1`, collection); err != nil {
		return fmt.Errorf("delete %s: %w", collection, err)
	}

	if err := insertBatch(ctx, tx, collection, docs); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit replace: %w", err)
	}

	p.logger.Debug("replaced collection", "collection", collection, "count", len(docs))
	return nil
}

// InsertMany appends documents to the collection.
func (p *Postgres) InsertMany(ctx context.Context, collection string, docs []any) error {
	if len(docs) == 0 {
		return nil
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin insert: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := insertBatch(ctx, tx, collection, docs); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit insert: %w", err)
	}
	return nil
}

// DeleteMany removes all documents matching the filter.
func (p *Postgres) DeleteMany(ctx context.Context, collection string, filter Filter) error {
	query := `DELETE FROM documents WHERE collection = $1`
	args := []any{collection}

	if len(filter) > 0 {
		match, err := json.Marshal(filter)
		if err != nil {
			return fmt.Errorf("marshal filter: %w", err)
		}
		query += ` AND doc @> $2`
		args = append(args, match)
	}

	if _, err := p.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("delete from %s: %w", collection, err)
	}
	return nil
}

// FindOne decodes the first matching document into dest.
func (p *Postgres) FindOne(ctx context.Context, collection string, filter Filter, sort *Sort, dest any) error {
	query, args, err := buildSelect(collection, filter, sort, 1)
	if err != nil {
		return err
	}

	var raw []byte
	if err := p.pool.QueryRow(ctx, query, args...).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("find one in %s: %w", collection, err)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}

// FindMany returns the raw JSON of every matching document.
func (p *Postgres) FindMany(ctx context.Context, collection string, filter Filter, sort *Sort) ([]json.RawMessage, error) {
	query, args, err := buildSelect(collection, filter, sort, 0)
	if err != nil {
		return nil, err
	}

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find in %s: %w", collection, err)
	}
	defer rows.Close()

	var docs []json.RawMessage
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, json.RawMessage(raw))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", collection, err)
	}

	return docs, nil
}

// insertBatch queues one INSERT per document on a pgx batch.
func insertBatch(ctx context.Context, tx pgx.Tx, collection string, docs []any) error {
	if len(docs) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, doc := range docs {
		data, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("marshal document: %w", err)
		}
		batch.Queue(`INSERT INTO documents (collection, doc) VALUES ($1, $2)`, collection, data)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for range docs {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert into %s: %w", collection, err)
		}
	}

	return results.Close()
}

// buildSelect assembles a document query. The sort field rides as a
// parameter inside doc->>, so no identifier is interpolated.
func buildSelect(collection string, filter Filter, sort *Sort, limit int) (string, []any, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT doc FROM documents WHERE collection = $1`)
	args := []any{collection}

	if len(filter) > 0 {
		match, err := json.Marshal(filter)
		if err != nil {
			return "", nil, fmt.Errorf("marshal filter: %w", err)
		}
		args = append(args, match)
		sb.WriteString(` AND doc @> $` + strconv.Itoa(len(args)))
	}

	if sort != nil {
		args = append(args, sort.Field)
		if sort.AsTime {
			sb.WriteString(` ORDER BY (doc->>$` + strconv.Itoa(len(args)) + `)::timestamptz`)
		} else {
			sb.WriteString(` ORDER BY doc->>$` + strconv.Itoa(len(args)))
		}
		if sort.Desc {
			sb.WriteString(` DESC`)
		}
	}

	if limit > 0 {
		sb.WriteString(` LIMIT ` + strconv.Itoa(limit))
	}

	return sb.String(), args, nil
}
