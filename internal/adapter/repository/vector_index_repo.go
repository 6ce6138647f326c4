package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"answer-orchestrator/internal/domain"
)

// PgVectorIndex is the durable VectorIndex backed by Postgres with the
// pgvector extension. Chunks live in one table keyed by (collection, id), so
// re-upserting an id replaces the row atomically.
type PgVectorIndex struct {
	pool *pgxpool.Pool
	tm   TransactionManager
}

// NewPgVectorIndex creates the Postgres-backed vector index.
func NewPgVectorIndex(pool *pgxpool.Pool) *PgVectorIndex {
	return &PgVectorIndex{pool: pool, tm: NewPostgresTransactionManager(pool)}
}

var _ domain.VectorIndex = (*PgVectorIndex)(nil)

type dbExecutor interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

func (r *PgVectorIndex) getExecutor(ctx context.Context) dbExecutor {
	if tx := ExtractTx(ctx); tx != nil {
		return tx
	}
	return r.pool
}

// EnsureSchema creates the extension and tables. Called once at startup.
func (r *PgVectorIndex) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS collections (
			name       text PRIMARY KEY,
			dimension  integer NOT NULL,
			metric     text NOT NULL,
			created_at timestamptz NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS chunks (
			collection   text NOT NULL REFERENCES collections(name) ON DELETE CASCADE,
			id           text NOT NULL,
			ordinal      integer NOT NULL,
			content      text NOT NULL,
			section      text NOT NULL DEFAULT '',
			subsection   text NOT NULL DEFAULT '',
			content_type text NOT NULL,
			entities     text[] NOT NULL DEFAULT '{}',
			importance   double precision NOT NULL,
			embedding    vector NOT NULL,
			created_at   timestamptz NOT NULL,
			PRIMARY KEY (collection, id)
		)`,
	}
	for _, stmt := range statements {
		if _, err := r.getExecutor(ctx).Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

func (r *PgVectorIndex) CreateCollection(ctx context.Context, spec domain.CollectionSpec, forceRecreate bool) error {
	// Force-recreate clears rows and rewrites the declared spec in one
	// transaction so a concurrent reader never sees them out of step.
	if forceRecreate && ExtractTx(ctx) == nil {
		return r.tm.RunInTx(ctx, func(ctx context.Context) error {
			return r.createCollection(ctx, spec, true)
		})
	}
	return r.createCollection(ctx, spec, forceRecreate)
}

func (r *PgVectorIndex) createCollection(ctx context.Context, spec domain.CollectionSpec, forceRecreate bool) error {
	exec := r.getExecutor(ctx)

	var dimension int
	var metric string
	err := exec.QueryRow(ctx,
		`SELECT dimension, metric FROM collections WHERE name = $1`, spec.Name,
	).Scan(&dimension, &metric)
	switch {
	case err == nil:
		if forceRecreate {
			if _, err := exec.Exec(ctx, `DELETE FROM chunks WHERE collection = $1`, spec.Name); err != nil {
				return fmt.Errorf("failed to clear collection %s: %w", spec.Name, err)
			}
			_, err = exec.Exec(ctx,
				`UPDATE collections SET dimension = $2, metric = $3 WHERE name = $1`,
				spec.Name, spec.Dimension, string(spec.Metric))
			if err != nil {
				return fmt.Errorf("failed to update collection %s: %w", spec.Name, err)
			}
			return nil
		}
		if dimension != spec.Dimension || metric != string(spec.Metric) {
			return fmt.Errorf("collection %s declared with dimension %d metric %s: %w",
				spec.Name, dimension, metric, domain.ErrDimensionMismatch)
		}
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		_, err = exec.Exec(ctx,
			`INSERT INTO collections (name, dimension, metric, created_at) VALUES ($1, $2, $3, $4)`,
			spec.Name, spec.Dimension, string(spec.Metric), time.Now())
		if err != nil {
			return fmt.Errorf("failed to create collection %s: %w", spec.Name, err)
		}
		return nil
	default:
		return fmt.Errorf("failed to look up collection %s: %w", spec.Name, err)
	}
}

func (r *PgVectorIndex) Upsert(ctx context.Context, collection string, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	exec := r.getExecutor(ctx)

	var dimension int
	err := exec.QueryRow(ctx,
		`SELECT dimension FROM collections WHERE name = $1`, collection,
	).Scan(&dimension)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("collection %s: %w", collection, domain.ErrCollectionNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to look up collection %s: %w", collection, err)
	}

	for _, chunk := range chunks {
		if got := len(chunk.Embedding.Slice()); got != dimension {
			return fmt.Errorf("chunk %s has dimension %d, collection %s declares %d: %w",
				chunk.ID, got, collection, dimension, domain.ErrDimensionMismatch)
		}
	}

	now := time.Now()
	batch := &pgx.Batch{}
	for _, chunk := range chunks {
		batch.Queue(
			`INSERT INTO chunks
				(collection, id, ordinal, content, section, subsection, content_type, entities, importance, embedding, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			 ON CONFLICT (collection, id) DO UPDATE SET
				ordinal = EXCLUDED.ordinal,
				content = EXCLUDED.content,
				section = EXCLUDED.section,
				subsection = EXCLUDED.subsection,
				content_type = EXCLUDED.content_type,
				entities = EXCLUDED.entities,
				importance = EXCLUDED.importance,
				embedding = EXCLUDED.embedding,
				created_at = EXCLUDED.created_at`,
			collection, chunk.ID, chunk.Ordinal, chunk.Text, chunk.Section, chunk.Subsection,
			string(chunk.Type), chunk.Entities, chunk.Importance, chunk.Embedding, now,
		)
	}

	results := exec.SendBatch(ctx, batch)
	defer func() { _ = results.Close() }()
	for range chunks {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to upsert chunks into %s: %w", collection, err)
		}
	}
	return nil
}

func (r *PgVectorIndex) Search(ctx context.Context, collection string, queryVector []float32, topK int, filter *domain.SearchFilter) ([]domain.SearchHit, error) {
	exec := r.getExecutor(ctx)

	var dimension int
	err := exec.QueryRow(ctx,
		`SELECT dimension FROM collections WHERE name = $1`, collection,
	).Scan(&dimension)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("collection %s: %w", collection, domain.ErrCollectionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up collection %s: %w", collection, err)
	}
	if len(queryVector) != dimension {
		return nil, fmt.Errorf("query vector has dimension %d, collection %s declares %d: %w",
			len(queryVector), collection, dimension, domain.ErrDimensionMismatch)
	}

	query := `
		SELECT id, ordinal, content, section, subsection, content_type, entities, importance, embedding,
		       1 - (embedding <=> $1) AS similarity
		FROM chunks
		WHERE collection = $2`
	args := []interface{}{pgvector.NewVector(queryVector), collection}
	if filter != nil && filter.ContentType != "" {
		args = append(args, string(filter.ContentType))
		query += fmt.Sprintf(" AND content_type = $%d", len(args))
	}
	if filter != nil && filter.Section != "" {
		args = append(args, filter.Section)
		query += fmt.Sprintf(" AND section = $%d", len(args))
	}
	args = append(args, topK)
	query += fmt.Sprintf(" ORDER BY embedding <=> $1 LIMIT $%d", len(args))

	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search collection %s: %w", collection, err)
	}
	defer rows.Close()

	var hits []domain.SearchHit
	for rows.Next() {
		var hit domain.SearchHit
		var ctype string
		if err := rows.Scan(
			&hit.Chunk.ID, &hit.Chunk.Ordinal, &hit.Chunk.Text,
			&hit.Chunk.Section, &hit.Chunk.Subsection, &ctype,
			&hit.Chunk.Entities, &hit.Chunk.Importance, &hit.Chunk.Embedding,
			&hit.Similarity,
		); err != nil {
			return nil, fmt.Errorf("failed to scan hit: %w", err)
		}
		hit.Chunk.Type = domain.ContentType(ctype)
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return hits, nil
}

func (r *PgVectorIndex) Count(ctx context.Context, collection string) (int, error) {
	var count int
	err := r.getExecutor(ctx).QueryRow(ctx,
		`SELECT count(*) FROM chunks WHERE collection = $1`, collection,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count chunks in %s: %w", collection, err)
	}
	return count, nil
}

func (r *PgVectorIndex) DropCollection(ctx context.Context, collection string) error {
	_, err := r.getExecutor(ctx).Exec(ctx,
		`DELETE FROM collections WHERE name = $1`, collection)
	if err != nil {
		return fmt.Errorf("failed to drop collection %s: %w", collection, err)
	}
	return nil
}
