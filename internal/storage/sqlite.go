package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/prsense-labs/prsense/internal/vectormath"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLite is the embedded single-file relational backend: one table for
// records, one for check results, with cosine computed in-process
// since this driver carries no vector extension.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if absent) a SQLite database at dsn and
// applies any unapplied migrations. dsn may be a file path or ":memory:".
func OpenSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: open sqlite: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: set WAL mode: %w", err)
	}
	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: migrate: %w", err)
	}
	return s, nil
}

func (s *SQLite) Name() string { return "sqlite" }

func (s *SQLite) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version TEXT PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, f := range files {
		var applied int
		err := s.db.QueryRow("SELECT COUNT(*) FROM schema_migrations WHERE version = ?", f).Scan(&applied)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", f, err)
		}
		if applied > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + f)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", f, err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin tx for %s: %w", f, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("exec migration %s: %w", f, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", f); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %s: %w", f, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", f, err)
		}
	}
	return nil
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(x))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	n := len(buf) / 4
	v := make([]float32, n)
	for i := 0; i < n; i++ {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return v
}

func (s *SQLite) Save(ctx context.Context, rec Record) error {
	filesJSON, err := json.Marshal(rec.Files)
	if err != nil {
		return fmt.Errorf("storage: marshal files: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO records
		(id, title, description, files_json, text_embedding, diff_embedding, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			files_json = excluded.files_json,
			text_embedding = excluded.text_embedding,
			diff_embedding = excluded.diff_embedding,
			created_at = excluded.created_at`,
		rec.ID, rec.Title, rec.Description, string(filesJSON),
		encodeVector(rec.TextEmbedding), encodeVector(rec.DiffEmbedding), rec.CreatedAtMilli)
	if err != nil {
		return fmt.Errorf("storage: save record: %w", err)
	}
	return nil
}

func (s *SQLite) scanRecord(row interface {
	Scan(dest ...any) error
}) (Record, error) {
	var rec Record
	var filesJSON string
	var textBlob, diffBlob []byte
	if err := row.Scan(&rec.ID, &rec.Title, &rec.Description, &filesJSON, &textBlob, &diffBlob, &rec.CreatedAtMilli); err != nil {
		return Record{}, err
	}
	if err := json.Unmarshal([]byte(filesJSON), &rec.Files); err != nil {
		return Record{}, fmt.Errorf("storage: unmarshal files: %w", err)
	}
	rec.TextEmbedding = decodeVector(textBlob)
	rec.DiffEmbedding = decodeVector(diffBlob)
	return rec, nil
}

func (s *SQLite) Get(ctx context.Context, id int64) (Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, title, description, files_json, text_embedding, diff_embedding, created_at
		FROM records WHERE id = ?`, id)
	rec, err := s.scanRecord(row)
	if err == sql.ErrNoRows {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("storage: get record: %w", err)
	}
	return rec, nil
}

// getAllLimit bounds bulk loads to a fixed ceiling; callers treat the
// result as a paginated snapshot, not a live cursor.
const getAllLimit = 10000

func (s *SQLite) GetAll(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title, description, files_json, text_embedding, diff_embedding, created_at
		FROM records ORDER BY id LIMIT ?`, getAllLimit)
	if err != nil {
		return nil, fmt.Errorf("storage: get all: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := s.scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLite) Search(ctx context.Context, query []float32, k int) ([]ScoredID, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, text_embedding FROM records`)
	if err != nil {
		return nil, fmt.Errorf("storage: search: %w", err)
	}
	defer rows.Close()

	var scored []ScoredID
	for rows.Next() {
		var id int64
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, fmt.Errorf("storage: scan search row: %w", err)
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

func (s *SQLite) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM records WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("storage: delete record: %w", err)
	}
	return nil
}

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) SaveCheck(ctx context.Context, result CheckResult) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO check_results (id, result_type, original_id, confidence, timestamp_ms)
		VALUES (?, ?, ?, ?, ?)`, result.ID, result.ResultType, result.OriginalID, result.Confidence, result.TimestampMilli)
	if err != nil {
		return fmt.Errorf("storage: save check: %w", err)
	}
	return nil
}

func (s *SQLite) GetAnalytics(ctx context.Context) (AnalyticsSummary, error) {
	var summary AnalyticsSummary
	row := s.db.QueryRowContext(ctx, `SELECT
		COUNT(*),
		SUM(CASE WHEN result_type = 'duplicate' THEN 1 ELSE 0 END),
		SUM(CASE WHEN result_type = 'possible' THEN 1 ELSE 0 END),
		SUM(CASE WHEN result_type = 'unique' THEN 1 ELSE 0 END)
		FROM check_results`)
	var dup, poss, uniq sql.NullInt64
	if err := row.Scan(&summary.TotalChecks, &dup, &poss, &uniq); err != nil {
		return AnalyticsSummary{}, fmt.Errorf("storage: get analytics: %w", err)
	}
	summary.DuplicateCount = dup.Int64
	summary.PossibleCount = poss.Int64
	summary.UniqueCount = uniq.Int64
	return summary, nil
}
