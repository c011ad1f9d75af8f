package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/khmer-text-classifier/internal/core/domain"
)

type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// OpenDB returns a pool without contacting the server; readiness is checked
// separately so startup can retry.
func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

func (r *DocumentRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("db ping: %w", err)
	}
	return nil
}

func (r *DocumentRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across concurrent replicas.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026101901)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	if _, err := tx.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}
	for _, c := range domain.Categories() {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO categories (id, name) VALUES ($1, $2)
ON CONFLICT (id) DO NOTHING
`, c.ID, c.Name); err != nil {
			return fmt.Errorf("seed category %d: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS categories (
	id INTEGER PRIMARY KEY,
	name VARCHAR(50) NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS documents (
	id BIGSERIAL PRIMARY KEY,
	content TEXT NOT NULL,
	category_id INTEGER REFERENCES categories(id),
	confidence_score DOUBLE PRECISION,
	model_version VARCHAR(20),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents(created_at DESC);

CREATE TABLE IF NOT EXISTS history_log (
	id BIGSERIAL PRIMARY KEY,
	document_id BIGINT REFERENCES documents(id) ON DELETE CASCADE,
	action_type VARCHAR(50),
	category_id INTEGER REFERENCES categories(id),
	confidence_score DOUBLE PRECISION,
	model_version VARCHAR(20),
	prediction_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_history_log_prediction_at ON history_log(prediction_at DESC);

CREATE OR REPLACE FUNCTION log_document_prediction() RETURNS TRIGGER AS $$
BEGIN
	INSERT INTO history_log (document_id, action_type, category_id, confidence_score, model_version, prediction_at)
	VALUES (NEW.id, 'PREDICTION', NEW.category_id, NEW.confidence_score, NEW.model_version, NEW.created_at);
	RETURN NEW;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS trg_documents_prediction_log ON documents;
CREATE TRIGGER trg_documents_prediction_log
	AFTER INSERT ON documents
	FOR EACH ROW EXECUTE FUNCTION log_document_prediction();
`

// Insert writes one document in its own transaction. Any failure rolls the
// transaction back, including the trigger's history row.
func (r *DocumentRepository) Insert(ctx context.Context, doc domain.NewDocument) (*domain.Document, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin insert tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	out := domain.Document{
		Content:         doc.Content,
		CategoryID:      doc.CategoryID,
		ConfidenceScore: doc.ConfidenceScore,
		ModelVersion:    doc.ModelVersion,
	}
	err = tx.QueryRowContext(ctx, `
INSERT INTO documents (content, category_id, confidence_score, model_version)
VALUES ($1, $2, $3, $4)
RETURNING id, created_at
`, doc.Content, doc.CategoryID, doc.ConfidenceScore, doc.ModelVersion).Scan(&out.ID, &out.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert document: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit document: %w", err)
	}
	out.CreatedAt = out.CreatedAt.UTC()
	return &out, nil
}

func (r *DocumentRepository) ListLatest(ctx context.Context, limit int) ([]domain.Document, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, content, COALESCE(category_id, 0), COALESCE(confidence_score, 0), COALESCE(model_version, ''), created_at
FROM documents
ORDER BY created_at DESC, id DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Document, 0, limit)
	for rows.Next() {
		var doc domain.Document
		if err := rows.Scan(&doc.ID, &doc.Content, &doc.CategoryID, &doc.ConfidenceScore, &doc.ModelVersion, &doc.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		doc.CreatedAt = doc.CreatedAt.UTC()
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return out, nil
}

func (r *DocumentRepository) ListHistoryLogs(ctx context.Context, limit int) ([]domain.HistoryLog, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, COALESCE(document_id, 0), COALESCE(action_type, ''), COALESCE(category_id, 0),
	COALESCE(confidence_score, 0), COALESCE(model_version, ''), prediction_at
FROM history_log
ORDER BY prediction_at DESC, id DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history log: %w", err)
	}
	defer rows.Close()

	out := make([]domain.HistoryLog, 0, limit)
	for rows.Next() {
		var entry domain.HistoryLog
		if err := rows.Scan(
			&entry.ID, &entry.DocumentID, &entry.ActionType, &entry.CategoryID,
			&entry.ConfidenceScore, &entry.ModelVersion, &entry.PredictionAt,
		); err != nil {
			return nil, fmt.Errorf("scan history log: %w", err)
		}
		entry.Category = domain.CategoryName(entry.CategoryID)
		entry.PredictionAt = entry.PredictionAt.UTC()
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history log: %w", err)
	}
	return out, nil
}
