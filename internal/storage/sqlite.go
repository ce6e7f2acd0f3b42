package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/BadakalaYashwanth/Scrible/internal/models"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS notebooks (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		name TEXT NOT NULL,
		description TEXT,
		overall_summary TEXT,
		key_insights TEXT,
		summarized_at TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_notebooks_owner ON notebooks(owner_id);

	CREATE TABLE IF NOT EXISTS sources (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		notebook_id TEXT NOT NULL,
		name TEXT,
		kind TEXT NOT NULL,
		content TEXT,
		stage TEXT NOT NULL,
		progress INTEGER NOT NULL,
		message TEXT,
		error_message TEXT,
		status_updated_at TIMESTAMP,
		summary TEXT,
		key_points TEXT,
		metadata TEXT,
		origin_id TEXT,
		run INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_sources_notebook ON sources(notebook_id, seq);
	CREATE INDEX IF NOT EXISTS idx_sources_origin ON sources(notebook_id, origin_id);

	CREATE TABLE IF NOT EXISTS chat_messages (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		notebook_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		citations TEXT,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_chat_notebook ON chat_messages(notebook_id, seq);
	`
	_, err := db.Exec(schema)
	return err
}

func marshalJSON(v interface{}) (string, error) {
	if v == nil {
		return "", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalJSON(s string, v interface{}) error {
	if s == "" || s == "null" {
		return nil
	}
	return json.Unmarshal([]byte(s), v)
}

// CreateNotebook inserts a notebook.
func (s *SQLiteStore) CreateNotebook(ctx context.Context, nb *models.Notebook) error {
	insights, err := marshalJSON(nb.KeyInsights)
	if err != nil {
		return fmt.Errorf("failed to marshal key insights: %w", err)
	}
	now := time.Now()
	nb.CreatedAt, nb.UpdatedAt = now, now
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO notebooks (id, owner_id, name, description, overall_summary, key_insights, summarized_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nb.ID, nb.OwnerID, nb.Name, nb.Description, nb.OverallSummary, insights, nb.SummarizedAt, nb.CreatedAt, nb.UpdatedAt,
	)
	return err
}

const notebookColumns = `id, owner_id, name, description, overall_summary, key_insights, summarized_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanNotebook(row rowScanner) (*models.Notebook, error) {
	var nb models.Notebook
	var description, summary, insights sql.NullString
	var summarizedAt sql.NullTime
	if err := row.Scan(&nb.ID, &nb.OwnerID, &nb.Name, &description, &summary, &insights, &summarizedAt, &nb.CreatedAt, &nb.UpdatedAt); err != nil {
		return nil, err
	}
	nb.Description = description.String
	nb.OverallSummary = summary.String
	if summarizedAt.Valid {
		at := summarizedAt.Time
		nb.SummarizedAt = &at
	}
	if err := unmarshalJSON(insights.String, &nb.KeyInsights); err != nil {
		return nil, fmt.Errorf("failed to unmarshal key insights: %w", err)
	}
	return &nb, nil
}

// GetNotebook returns a notebook by ID and owner.
func (s *SQLiteStore) GetNotebook(ctx context.Context, id, ownerID string) (*models.Notebook, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+notebookColumns+` FROM notebooks WHERE id = ? AND owner_id = ?`, id, ownerID)
	nb, err := scanNotebook(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("notebook %s: %w", id, ErrNotFound)
	}
	return nb, err
}

// ListNotebooks returns the owner's notebooks, newest first.
func (s *SQLiteStore) ListNotebooks(ctx context.Context, ownerID string) ([]*models.Notebook, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+notebookColumns+` FROM notebooks WHERE owner_id = ? ORDER BY created_at DESC, id`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*models.Notebook, 0)
	for rows.Next() {
		nb, err := scanNotebook(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, nb)
	}
	return out, rows.Err()
}

// UpdateNotebook updates name, description, and summary fields.
func (s *SQLiteStore) UpdateNotebook(ctx context.Context, nb *models.Notebook) error {
	insights, err := marshalJSON(nb.KeyInsights)
	if err != nil {
		return fmt.Errorf("failed to marshal key insights: %w", err)
	}
	nb.UpdatedAt = time.Now()
	result, err := s.db.ExecContext(ctx,
		`UPDATE notebooks SET name = ?, description = ?, overall_summary = ?, key_insights = ?, summarized_at = ?, updated_at = ?
		 WHERE id = ? AND owner_id = ?`,
		nb.Name, nb.Description, nb.OverallSummary, insights, nb.SummarizedAt, nb.UpdatedAt, nb.ID, nb.OwnerID,
	)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("notebook %s: %w", nb.ID, ErrNotFound)
	}
	return nil
}

// DeleteNotebook removes a notebook with its sources and chat messages in one transaction.
func (s *SQLiteStore) DeleteNotebook(ctx context.Context, id, ownerID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `DELETE FROM notebooks WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("notebook %s: %w", id, ErrNotFound)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sources WHERE notebook_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM chat_messages WHERE notebook_id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// CreateSource inserts a source after checking that its notebook exists.
func (s *SQLiteStore) CreateSource(ctx context.Context, src *models.Source) error {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notebooks WHERE id = ?`, src.NotebookID).Scan(&exists)
	if err != nil {
		return err
	}
	if exists == 0 {
		return fmt.Errorf("notebook %s: %w", src.NotebookID, ErrNotFound)
	}
	keyPoints, metadata, err := marshalSourceJSON(src)
	if err != nil {
		return err
	}
	now := time.Now()
	src.CreatedAt, src.UpdatedAt = now, now
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sources (id, notebook_id, name, kind, content, stage, progress, message, error_message,
			status_updated_at, summary, key_points, metadata, origin_id, run, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		src.ID, src.NotebookID, src.Name, string(src.Kind), src.Content,
		string(src.Status.Stage), src.Status.Progress, src.Status.Message, src.Status.ErrorMessage, src.Status.UpdatedAt,
		src.Summary, keyPoints, metadata, src.OriginID, src.Run, src.CreatedAt, src.UpdatedAt,
	)
	return err
}

func marshalSourceJSON(src *models.Source) (keyPoints, metadata string, err error) {
	keyPoints, err = marshalJSON(src.KeyPoints)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal key points: %w", err)
	}
	metadata, err = marshalJSON(src.Metadata)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal metadata: %w", err)
	}
	return keyPoints, metadata, nil
}

const sourceColumns = `id, notebook_id, name, kind, content, stage, progress, message, error_message,
	status_updated_at, summary, key_points, metadata, origin_id, run, created_at, updated_at`

func scanSource(row rowScanner) (*models.Source, error) {
	var src models.Source
	var kind, stage string
	var name, content, message, errMsg, summary, keyPoints, metadata, origin sql.NullString
	var statusAt sql.NullTime
	err := row.Scan(&src.ID, &src.NotebookID, &name, &kind, &content, &stage, &src.Status.Progress,
		&message, &errMsg, &statusAt, &summary, &keyPoints, &metadata, &origin, &src.Run,
		&src.CreatedAt, &src.UpdatedAt)
	if err != nil {
		return nil, err
	}
	src.Name = name.String
	src.Kind = models.SourceKind(kind)
	src.Content = content.String
	src.Status.Stage = models.Stage(stage)
	src.Status.Message = message.String
	src.Status.ErrorMessage = errMsg.String
	src.Status.UpdatedAt = statusAt.Time
	src.Summary = summary.String
	src.OriginID = origin.String
	if err := unmarshalJSON(keyPoints.String, &src.KeyPoints); err != nil {
		return nil, fmt.Errorf("failed to unmarshal key points: %w", err)
	}
	if err := unmarshalJSON(metadata.String, &src.Metadata); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}
	return &src, nil
}

// GetSource returns a source of notebookID.
func (s *SQLiteStore) GetSource(ctx context.Context, notebookID, sourceID string) (*models.Source, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sourceColumns+` FROM sources WHERE id = ? AND notebook_id = ?`, sourceID, notebookID)
	src, err := scanSource(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("source %s: %w", sourceID, ErrNotFound)
	}
	return src, err
}

// ListSources returns notebookID's sources in insertion order.
func (s *SQLiteStore) ListSources(ctx context.Context, notebookID string) ([]*models.Source, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sourceColumns+` FROM sources WHERE notebook_id = ? ORDER BY seq`, notebookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*models.Source, 0)
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, src)
	}
	return out, rows.Err()
}

// UpdateSource rewrites every mutable column of a source in a single statement.
func (s *SQLiteStore) UpdateSource(ctx context.Context, src *models.Source) error {
	keyPoints, metadata, err := marshalSourceJSON(src)
	if err != nil {
		return err
	}
	src.UpdatedAt = time.Now()
	result, err := s.db.ExecContext(ctx,
		`UPDATE sources SET name = ?, kind = ?, content = ?, stage = ?, progress = ?, message = ?, error_message = ?,
			status_updated_at = ?, summary = ?, key_points = ?, metadata = ?, origin_id = ?, run = ?, updated_at = ?
		 WHERE id = ? AND notebook_id = ?`,
		src.Name, string(src.Kind), src.Content, string(src.Status.Stage), src.Status.Progress, src.Status.Message,
		src.Status.ErrorMessage, src.Status.UpdatedAt, src.Summary, keyPoints, metadata, src.OriginID, src.Run,
		src.UpdatedAt, src.ID, src.NotebookID,
	)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("source %s: %w", src.ID, ErrNotFound)
	}
	return nil
}

// DeleteSource removes a source from its notebook.
func (s *SQLiteStore) DeleteSource(ctx context.Context, notebookID, sourceID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sources WHERE id = ? AND notebook_id = ?`, sourceID, notebookID)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("source %s: %w", sourceID, ErrNotFound)
	}
	return nil
}

// FindSourceByOrigin returns the first source of notebookID imported from originID.
func (s *SQLiteStore) FindSourceByOrigin(ctx context.Context, notebookID, originID string) (*models.Source, error) {
	if originID == "" {
		return nil, fmt.Errorf("source with empty origin: %w", ErrNotFound)
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sourceColumns+` FROM sources WHERE notebook_id = ? AND origin_id = ? ORDER BY seq LIMIT 1`,
		notebookID, originID)
	src, err := scanSource(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("source with origin %s: %w", originID, ErrNotFound)
	}
	return src, err
}

// AppendChatMessage inserts a chat message.
func (s *SQLiteStore) AppendChatMessage(ctx context.Context, msg *models.ChatMessage) error {
	citations, err := marshalJSON(msg.Citations)
	if err != nil {
		return fmt.Errorf("failed to marshal citations: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO chat_messages (id, notebook_id, role, content, citations, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.NotebookID, string(msg.Role), msg.Content, citations, msg.Timestamp,
	)
	return err
}

// ListChatMessages returns the newest limit messages of a notebook, oldest first.
func (s *SQLiteStore) ListChatMessages(ctx context.Context, notebookID string, limit int) ([]*models.ChatMessage, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, notebook_id, role, content, citations, created_at FROM (
			SELECT seq, id, notebook_id, role, content, citations, created_at
			FROM chat_messages WHERE notebook_id = ? ORDER BY seq DESC LIMIT ?
		) ORDER BY seq`, notebookID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*models.ChatMessage, 0)
	for rows.Next() {
		var msg models.ChatMessage
		var role string
		var citations sql.NullString
		if err := rows.Scan(&msg.ID, &msg.NotebookID, &role, &msg.Content, &citations, &msg.Timestamp); err != nil {
			return nil, err
		}
		msg.Role = models.Role(role)
		if err := unmarshalJSON(citations.String, &msg.Citations); err != nil {
			return nil, fmt.Errorf("failed to unmarshal citations: %w", err)
		}
		out = append(out, &msg)
	}
	return out, rows.Err()
}

// Stats returns store-wide counts.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx,
		`SELECT
			(SELECT COUNT(*) FROM notebooks),
			(SELECT COUNT(*) FROM sources),
			(SELECT COUNT(*) FROM sources WHERE stage = ?),
			(SELECT COUNT(*) FROM chat_messages)`, string(models.StageCompleted),
	).Scan(&st.Notebooks, &st.Sources, &st.ReadySources, &st.ChatMessages)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
