// Package sqlite persists the vector index in a single SQLite file using the
// pure Go modernc.org/sqlite driver. Similarity is computed by a full scan.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"ragpipe/internal/domain"
	"ragpipe/internal/vectorstore"
)

const schema = `
CREATE TABLE IF NOT EXISTS index_meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS chunks (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	id         TEXT NOT NULL UNIQUE,
	content    TEXT NOT NULL,
	metadata   TEXT NOT NULL,
	vector     BLOB NOT NULL,
	created_at TEXT NOT NULL
);`

const dimensionKey = "dimension"

// Storage is a SQLite-backed vector store.
type Storage struct {
	db *sql.DB
}

// Open opens or creates the index database at path. The special path
// ":memory:" keeps the database in memory.
func Open(path string) (*Storage, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: sqlite index path is required", domain.ErrInvalidConfig)
	}
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating index directory: %w", err)
		}
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if path == ":memory:" {
		// every connection would see its own empty database
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &Storage{db: db}, nil
}

func (s *Storage) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid dimension %d", dimension)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO index_meta (key, value) VALUES (?, ?)`,
		dimensionKey, strconv.Itoa(dimension),
	); err != nil {
		return fmt.Errorf("storing dimension: %w", err)
	}
	stored, err := s.Dimension(ctx)
	if err != nil {
		return err
	}
	if stored != dimension {
		return fmt.Errorf("%w: index holds %d-dimensional vectors, got %d", domain.ErrDimensionMismatch, stored, dimension)
	}
	return nil
}

func (s *Storage) Dimension(ctx context.Context) (int, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM index_meta WHERE key = ?`, dimensionKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading dimension: %w", err)
	}
	d, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("corrupt dimension %q: %w", value, err)
	}
	return d, nil
}

func (s *Storage) Insert(ctx context.Context, records []vectorstore.Record) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO chunks (id, content, metadata, vector, created_at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, r := range records {
		meta, err := domain.MarshalMetadata(r.Chunk.Metadata)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("encoding metadata of %s: %w", r.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, r.ID, r.Chunk.Content, string(meta), encodeVector(r.Vector), now); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("inserting %s: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

func (s *Storage) Search(ctx context.Context, vector []float64, topK int) ([]domain.SearchResult, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT seq, id, content, metadata, vector FROM chunks ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("scanning chunks: %w", err)
	}
	defer rows.Close()

	var candidates []vectorstore.Candidate
	for rows.Next() {
		var (
			seq     int64
			id      string
			content string
			meta    string
			blob    []byte
		)
		if err := rows.Scan(&seq, &id, &content, &meta, &blob); err != nil {
			return nil, err
		}
		md, err := domain.UnmarshalMetadata([]byte(meta))
		if err != nil {
			return nil, fmt.Errorf("decoding metadata of %s: %w", id, err)
		}
		candidates = append(candidates, vectorstore.Candidate{
			Seq: seq,
			Result: domain.SearchResult{
				ID:    id,
				Chunk: domain.Chunk{Content: content, Metadata: md},
				Score: vectorstore.Cosine(decodeVector(blob), vector),
			},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return vectorstore.TopK(candidates, topK), nil
}

func (s *Storage) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	_, err := s.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM chunks WHERE id IN (%s)", placeholders), args...)
	return err
}

func (s *Storage) Clear(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, q := range []string{`DELETE FROM chunks`, `DELETE FROM index_meta`} {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (s *Storage) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Storage) Close() error { return s.db.Close() }

// encodeVector stores float64 values little-endian, 8 bytes each.
func encodeVector(v []float64) []byte {
	buf := make([]byte, 8*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(f))
	}
	return buf
}

func decodeVector(b []byte) []float64 {
	v := make([]float64, len(b)/8)
	for i := range v {
		v[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[8*i:]))
	}
	return v
}
