package db

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"time"

	// Register the modernc sqlite driver under the name "sqlite"
	_ "modernc.org/sqlite"

	"github.com/markdave123-py/Assist/internal/models"
)

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS knowledge_base (
		id          TEXT PRIMARY KEY,
		text_data   TEXT NOT NULL,
		vector_data BLOB NOT NULL,
		created_at  TIMESTAMP NOT NULL
	)`

// SQLiteClient is a local knowledge store. It ranks with a full scan by cosine
// similarity, which is fine for development-sized knowledge bases.
type SQLiteClient struct {
	db       *sql.DB
	limit    int
	embedDim int
}

// NewSQLiteClient opens (or creates) the database at path. Use ":memory:" in tests.
func NewSQLiteClient(ctx context.Context, path string, limit, embedDim int) (*SQLiteClient, error) {
	dsn := path +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=synchronous(NORMAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	// One connection keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite %q: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	if limit <= 0 {
		limit = 5
	}

	return &SQLiteClient{db: db, limit: limit, embedDim: embedDim}, nil
}

func (c *SQLiteClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

func (c *SQLiteClient) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *SQLiteClient) Save(ctx context.Context, entry models.KnowledgeEntry) error {
	if err := checkDim(entry.Vector, c.embedDim); err != nil {
		return err
	}
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	const q = `INSERT INTO knowledge_base (id, text_data, vector_data, created_at) VALUES (?, ?, ?, ?)`
	if _, err := c.db.ExecContext(ctx, q, entry.ID, entry.Text, encodeVector(entry.Vector), createdAt); err != nil {
		return fmt.Errorf("insert knowledge entry: %w", err)
	}
	return nil
}

// Query returns the most similar entries first. Ties keep insertion order.
func (c *SQLiteClient) Query(ctx context.Context, vector models.Vector) ([]models.KnowledgeEntry, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT id, text_data, vector_data, created_at FROM knowledge_base ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("search knowledge base: %w", err)
	}
	defer rows.Close()

	type scored struct {
		entry models.KnowledgeEntry
		score float64
	}
	var all []scored
	for rows.Next() {
		var (
			e    models.KnowledgeEntry
			blob []byte
		)
		if err := rows.Scan(&e.ID, &e.Text, &blob, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Vector = decodeVector(blob)
		all = append(all, scored{entry: e, score: cosine(vector, e.Vector)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].score > all[j].score })
	if len(all) > c.limit {
		all = all[:c.limit]
	}
	out := make([]models.KnowledgeEntry, len(all))
	for i := range all {
		out[i] = all[i].entry
	}
	return out, nil
}

func encodeVector(v models.Vector) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) models.Vector {
	v := make(models.Vector, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v
}

// cosine returns 0 for mismatched or zero vectors.
func cosine(a, b models.Vector) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

var _ DbClient = (*SQLiteClient)(nil)
var _ DbClient = (*DatabaseClient)(nil)
