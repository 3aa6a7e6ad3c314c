package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/pgvector/pgvector-go"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/markdave123-py/Assist/internal/config"
	"github.com/markdave123-py/Assist/internal/models"
)

type DatabaseClient struct {
	db       *sql.DB
	limit    int
	embedDim int
}

func NewDatabaseClient(ctx context.Context, cfg *config.Config) (DbClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database client configuration is nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	dsn, err := withSSL(cfg.DatabaseURL, cfg.SslCertPath)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, db, cfg.EmbedDim); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &DatabaseClient{db: db, limit: cfg.SearchLimit, embedDim: cfg.EmbedDim}, nil
}

// withSSL appends CA verification params when a root certificate is configured.
func withSSL(databaseURL, certPath string) (string, error) {
	if certPath == "" {
		return databaseURL, nil
	}
	if _, err := os.Stat(certPath); err != nil {
		return "", fmt.Errorf("ssl cert not accessible at %q: %w", certPath, err)
	}
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid DATABASE_URL: %w", err)
	}
	q := u.Query()
	q.Set("sslmode", "verify-ca")
	q.Set("sslrootcert", certPath)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *DatabaseClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

func (c *DatabaseClient) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *DatabaseClient) Save(ctx context.Context, entry models.KnowledgeEntry) error {
	if err := checkDim(entry.Vector, c.embedDim); err != nil {
		return err
	}
	const q = `
		INSERT INTO knowledge_base (id, text_data, vector_data, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`
	var createdAt *time.Time
	if !entry.CreatedAt.IsZero() {
		createdAt = &entry.CreatedAt
	}
	_, err := c.db.ExecContext(ctx, q, entry.ID, entry.Text, pgvector.NewVector(entry.Vector), createdAt)
	if err != nil {
		return fmt.Errorf("insert knowledge entry: %w", err)
	}
	return nil
}

// Query returns the closest entries by cosine distance, nearest first.
func (c *DatabaseClient) Query(ctx context.Context, vector models.Vector) ([]models.KnowledgeEntry, error) {
	const q = `
		SELECT id, text_data, vector_data, created_at
		FROM knowledge_base
		ORDER BY vector_data <=> $1
		LIMIT $2
	`
	rows, err := c.db.QueryContext(ctx, q, pgvector.NewVector(vector), c.limit)
	if err != nil {
		return nil, fmt.Errorf("search knowledge base: %w", err)
	}
	defer rows.Close()

	var out []models.KnowledgeEntry
	for rows.Next() {
		var (
			e   models.KnowledgeEntry
			vec pgvector.Vector
		)
		if err := rows.Scan(&e.ID, &e.Text, &vec, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Vector = vec.Slice()
		out = append(out, e)
	}
	return out, rows.Err()
}

func checkDim(v models.Vector, dim int) error {
	if dim > 0 && len(v) != dim {
		return fmt.Errorf("embedding has %d dimensions, store expects %d", len(v), dim)
	}
	return nil
}
