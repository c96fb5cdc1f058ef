package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/prsense-labs/prsense/internal/vectormath"
)

// Postgres is the client/server relational backend: typed vector
// columns (pgvector) with an ANN index, falling back to a full scan
// when the extension is unavailable.
type Postgres struct {
	pool      *pgxpool.Pool
	dims      int
	hasVector bool
}

// connectMaxAttempts bounds the exponential-backoff connection retry;
// the final failure surfaces a storage error to the core.
const connectMaxAttempts = 5

// OpenPostgres connects to dsn, retrying with exponential backoff on
// failure, and provisions the schema. dims is the embedding dimension
// for the vector columns (a per-deployment choice, see DESIGN.md).
func OpenPostgres(ctx context.Context, dsn string, dims int) (*Postgres, error) {
	var pool *pgxpool.Pool

	operation := func() error {
		p, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return err
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			return err
		}
		pool = p
		return nil
	}

	bo := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), connectMaxAttempts-1)
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return nil, fmt.Errorf("storage: connect to postgres after %d attempts: %w", connectMaxAttempts, err)
	}

	p := &Postgres{pool: pool, dims: dims}
	if err := p.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("storage: migrate postgres: %w", err)
	}
	return p, nil
}

func (p *Postgres) Name() string { return "postgres" }

func (p *Postgres) migrate(ctx context.Context) error {
	// The pgvector extension must be superuser-installed in most
	// managed deployments; degrade to a full scan rather than fail hard
	// when it isn't present.
	_, err := p.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	p.hasVector = err == nil

	vectorType := "bytea"
	if p.hasVector {
		vectorType = fmt.Sprintf("vector(%d)", p.dims)
	}

	schema := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS records (
		id BIGINT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		files JSONB NOT NULL,
		text_embedding %s NOT NULL,
		diff_embedding %s NOT NULL,
		created_at BIGINT NOT NULL
	)`, vectorType, vectorType)
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create records table: %w", err)
	}

	if _, err := p.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS check_results (
		id BIGINT NOT NULL,
		result_type TEXT NOT NULL,
		original_id BIGINT,
		confidence DOUBLE PRECISION NOT NULL,
		timestamp_ms BIGINT NOT NULL
	)`); err != nil {
		return fmt.Errorf("create check_results table: %w", err)
	}

	if p.hasVector {
		// Index creation degrades to a no-op (via IF NOT EXISTS plus a
		// tolerated error) when the extension or a compatible opclass
		// is unavailable; correctness-but-slow full scan still answers
		// queries either way.
		_, _ = p.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_records_text_embedding
			ON records USING ivfflat (text_embedding vector_cosine_ops) WITH (lists = 100)`)
	}

	return nil
}

func (p *Postgres) Save(ctx context.Context, rec Record) error {
	filesJSON, err := json.Marshal(rec.Files)
	if err != nil {
		return fmt.Errorf("storage: marshal files: %w", err)
	}

	if p.hasVector {
		_, err = p.pool.Exec(ctx, `INSERT INTO records (id, title, description, files, text_embedding, diff_embedding, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO UPDATE SET
				title = excluded.title,
				description = excluded.description,
				files = excluded.files,
				text_embedding = excluded.text_embedding,
				diff_embedding = excluded.diff_embedding,
				created_at = excluded.created_at`,
			rec.ID, rec.Title, rec.Description, filesJSON,
			pgvector.NewVector(rec.TextEmbedding), pgvector.NewVector(rec.DiffEmbedding), rec.CreatedAtMilli)
	} else {
		_, err = p.pool.Exec(ctx, `INSERT INTO records (id, title, description, files, text_embedding, diff_embedding, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO UPDATE SET
				title = excluded.title,
				description = excluded.description,
				files = excluded.files,
				text_embedding = excluded.text_embedding,
				diff_embedding = excluded.diff_embedding,
				created_at = excluded.created_at`,
			rec.ID, rec.Title, rec.Description, filesJSON,
			encodeVector(rec.TextEmbedding), encodeVector(rec.DiffEmbedding), rec.CreatedAtMilli)
	}
	if err != nil {
		return fmt.Errorf("storage: save record: %w", err)
	}
	return nil
}

func (p *Postgres) scanRow(row pgx.Row) (Record, error) {
	var rec Record
	var filesJSON []byte
	if p.hasVector {
		var textVec, diffVec pgvector.Vector
		if err := row.Scan(&rec.ID, &rec.Title, &rec.Description, &filesJSON, &textVec, &diffVec, &rec.CreatedAtMilli); err != nil {
			return Record{}, err
		}
		rec.TextEmbedding = textVec.Slice()
		rec.DiffEmbedding = diffVec.Slice()
	} else {
		var textBlob, diffBlob []byte
		if err := row.Scan(&rec.ID, &rec.Title, &rec.Description, &filesJSON, &textBlob, &diffBlob, &rec.CreatedAtMilli); err != nil {
			return Record{}, err
		}
		rec.TextEmbedding = decodeVector(textBlob)
		rec.DiffEmbedding = decodeVector(diffBlob)
	}
	if err := json.Unmarshal(filesJSON, &rec.Files); err != nil {
		return Record{}, fmt.Errorf("unmarshal files: %w", err)
	}
	return rec, nil
}

func (p *Postgres) Get(ctx context.Context, id int64) (Record, error) {
	row := p.pool.QueryRow(ctx, `SELECT id, title, description, files, text_embedding, diff_embedding, created_at
		FROM records WHERE id = $1`, id)
	rec, err := p.scanRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("storage: get record: %w", err)
	}
	return rec, nil
}

func (p *Postgres) GetAll(ctx context.Context) ([]Record, error) {
	rows, err := p.pool.Query(ctx, `SELECT id, title, description, files, text_embedding, diff_embedding, created_at
		FROM records ORDER BY id LIMIT $1`, getAllLimit)
	if err != nil {
		return nil, fmt.Errorf("storage: get all: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := p.scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Search delegates to the ANN index when pgvector is available;
// otherwise it performs an equivalent full scan with cosine computed
// in-process, preserving ordering semantics.
func (p *Postgres) Search(ctx context.Context, query []float32, k int) ([]ScoredID, error) {
	if p.hasVector {
		rows, err := p.pool.Query(ctx, `SELECT id, 1 - (text_embedding <=> $1) AS score
			FROM records ORDER BY text_embedding <=> $1 LIMIT $2`, pgvector.NewVector(query), k)
		if err != nil {
			return nil, fmt.Errorf("storage: search: %w", err)
		}
		defer rows.Close()

		var out []ScoredID
		for rows.Next() {
			var s ScoredID
			if err := rows.Scan(&s.ID, &s.Score); err != nil {
				return nil, fmt.Errorf("storage: scan search row: %w", err)
			}
			out = append(out, s)
		}
		return out, rows.Err()
	}

	rows, err := p.pool.Query(ctx, `SELECT id, text_embedding FROM records`)
	if err != nil {
		return nil, fmt.Errorf("storage: search (scan fallback): %w", err)
	}
	defer rows.Close()

	return scanAndRankPostgresFallback(rows, query, k)
}

func (p *Postgres) Delete(ctx context.Context, id int64) error {
	_, err := p.pool.Exec(ctx, "DELETE FROM records WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("storage: delete record: %w", err)
	}
	return nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func (p *Postgres) SaveCheck(ctx context.Context, result CheckResult) error {
	_, err := p.pool.Exec(ctx, `INSERT INTO check_results (id, result_type, original_id, confidence, timestamp_ms)
		VALUES ($1, $2, $3, $4, $5)`, result.ID, result.ResultType, result.OriginalID, result.Confidence, result.TimestampMilli)
	if err != nil {
		return fmt.Errorf("storage: save check: %w", err)
	}
	return nil
}

func (p *Postgres) GetAnalytics(ctx context.Context) (AnalyticsSummary, error) {
	var summary AnalyticsSummary
	row := p.pool.QueryRow(ctx, `SELECT
		COUNT(*),
		COALESCE(SUM(CASE WHEN result_type = 'duplicate' THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN result_type = 'possible' THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN result_type = 'unique' THEN 1 ELSE 0 END), 0)
		FROM check_results`)
	if err := row.Scan(&summary.TotalChecks, &summary.DuplicateCount, &summary.PossibleCount, &summary.UniqueCount); err != nil {
		return AnalyticsSummary{}, fmt.Errorf("storage: get analytics: %w", err)
	}
	return summary, nil
}

func scanAndRankPostgresFallback(rows pgx.Rows, query []float32, k int) ([]ScoredID, error) {
	var scored []ScoredID
	for rows.Next() {
		var id int64
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, fmt.Errorf("storage: scan fallback row: %w", err)
		}
		scored = append(scored, ScoredID{ID: id, Score: vectormath.Cosine(query, decodeVector(blob))})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].ID < scored[j].ID
	})
	if k > 0 && len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}
