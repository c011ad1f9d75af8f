// Package sqlite provides a SQLite-backed document store for local runs.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kirillkom/khmer-text-classifier/internal/core/domain"
)

type DocumentRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db, now: time.Now}
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// OpenDB opens path with WAL and foreign keys enabled. ":memory:" is kept
// on a single connection so every query sees the same database.
func OpenDB(path string) (*sql.DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := path
	if path != ":memory:" {
		dsn = filepath.Clean(path)
	}
	dsn += "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	return db, nil
}

func (r *DocumentRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping sqlite db: %w", err)
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

	for _, stmt := range schemaStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute schema ddl: %w", err)
		}
	}
	for _, c := range domain.Categories() {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO categories (id, name) VALUES (?, ?)`, c.ID, c.Name); err != nil {
			return fmt.Errorf("seed category %d: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS categories (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL UNIQUE
)`,
	`CREATE TABLE IF NOT EXISTS documents (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	content TEXT NOT NULL,
	category_id INTEGER REFERENCES categories(id),
	confidence_score REAL,
	model_version TEXT,
	created_at INTEGER NOT NULL,
	updated_at INTEGER
)`,
	`CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents(created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS history_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	document_id INTEGER REFERENCES documents(id) ON DELETE CASCADE,
	action_type TEXT,
	category_id INTEGER REFERENCES categories(id),
	confidence_score REAL,
	model_version TEXT,
	prediction_at INTEGER NOT NULL
)`,
	`CREATE TRIGGER IF NOT EXISTS trg_documents_prediction_log
AFTER INSERT ON documents
BEGIN
	INSERT INTO history_log (document_id, action_type, category_id, confidence_score, model_version, prediction_at)
	VALUES (NEW.id, 'PREDICTION', NEW.category_id, NEW.confidence_score, NEW.model_version, NEW.created_at);
END`,
}

func (r *DocumentRepository) Insert(ctx context.Context, doc domain.NewDocument) (*domain.Document, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin insert tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	createdAt := toMillis(r.now())
	res, err := tx.ExecContext(ctx, `
INSERT INTO documents (content, category_id, confidence_score, model_version, created_at)
VALUES (?, ?, ?, ?, ?)
`, doc.Content, doc.CategoryID, doc.ConfidenceScore, doc.ModelVersion, createdAt)
	if err != nil {
		return nil, fmt.Errorf("insert document: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("read document id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit document: %w", err)
	}
	return &domain.Document{
		ID:              id,
		Content:         doc.Content,
		CategoryID:      doc.CategoryID,
		ConfidenceScore: doc.ConfidenceScore,
		ModelVersion:    doc.ModelVersion,
		CreatedAt:       fromMillis(createdAt),
	}, nil
}

func (r *DocumentRepository) ListLatest(ctx context.Context, limit int) ([]domain.Document, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, content, COALESCE(category_id, 0), COALESCE(confidence_score, 0), COALESCE(model_version, ''), created_at
FROM documents
ORDER BY created_at DESC, id DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Document, 0, limit)
	for rows.Next() {
		var (
			doc       domain.Document
			createdAt int64
		)
		if err := rows.Scan(&doc.ID, &doc.Content, &doc.CategoryID, &doc.ConfidenceScore, &doc.ModelVersion, &createdAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		doc.CreatedAt = fromMillis(createdAt)
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
LIMIT ?
`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history log: %w", err)
	}
	defer rows.Close()

	out := make([]domain.HistoryLog, 0, limit)
	for rows.Next() {
		var (
			entry        domain.HistoryLog
			predictionAt int64
		)
		if err := rows.Scan(
			&entry.ID, &entry.DocumentID, &entry.ActionType, &entry.CategoryID,
			&entry.ConfidenceScore, &entry.ModelVersion, &predictionAt,
		); err != nil {
			return nil, fmt.Errorf("scan history log: %w", err)
		}
		entry.Category = domain.CategoryName(entry.CategoryID)
		entry.PredictionAt = fromMillis(predictionAt)
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history log: %w", err)
	}
	return out, nil
}
