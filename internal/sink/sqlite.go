package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/tracyhatemice/mailimport/internal/message"
)

// SQLite stores records in a local SQLite database, standing in for the
// message bus.
type SQLite struct {
	db *sqlx.DB
}

// StoredRecord is a record as read back from the database.
type StoredRecord struct {
	message.Record
	Importer   string
	SourceType string
	ImportedAt time.Time
}

type recordRow struct {
	ID          string    `db:"id"`
	Importer    string    `db:"importer"`
	SourceType  string    `db:"source_type"`
	Header      string    `db:"header"`
	Content     string    `db:"content"`
	Author      string    `db:"author"`
	Language    string    `db:"language"`
	OriginIndex string    `db:"origin_index"`
	Copyright   string    `db:"copyright"`
	Directories string    `db:"directories"`
	Sender      string    `db:"sender"`
	ReceivedAt  time.Time `db:"received_at"`
	ImportedAt  time.Time `db:"imported_at"`
}

// NewSQLite opens (or creates) the database at dbPath and applies pending
// schema migrations.
func NewSQLite(dbPath string) (*SQLite, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// A single connection keeps ":memory:" databases consistent.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLite{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) runMigrations() error {
	current := 0

	var tableCount int
	err := s.db.Get(&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'")
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}
	if tableCount > 0 {
		if err := s.db.Get(&current, "SELECT COALESCE(MAX(version), 0) FROM schema_version"); err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}
	return nil
}

// Add inserts rec. Records are keyed by ID, so re-adding the same record
// fails.
func (s *SQLite) Add(ctx context.Context, importer, sourceType string, rec *message.Record) error {
	dirs, err := json.Marshal(rec.Directories)
	if err != nil {
		return fmt.Errorf("encoding directories: %w", err)
	}

	row := recordRow{
		ID:          rec.ID,
		Importer:    importer,
		SourceType:  sourceType,
		Header:      rec.Header,
		Content:     rec.Content,
		Author:      rec.Author,
		Language:    rec.Language,
		OriginIndex: rec.OriginIndex,
		Copyright:   rec.Copyright,
		Directories: string(dirs),
		Sender:      rec.Sender,
		ReceivedAt:  rec.ReceivedAt.UTC(),
		ImportedAt:  time.Now().UTC(),
	}

	const query = `
		INSERT INTO messages (
			id, importer, source_type, header, content,
			author, language, origin_index, copyright, directories,
			sender, received_at, imported_at
		) VALUES (
			:id, :importer, :source_type, :header, :content,
			:author, :language, :origin_index, :copyright, :directories,
			:sender, :received_at, :imported_at
		)`

	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("inserting message %s: %w", rec.ID, err)
	}
	return nil
}

// List returns the stored records of one importer, oldest first.
func (s *SQLite) List(ctx context.Context, importer string) ([]StoredRecord, error) {
	var rows []recordRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT * FROM messages WHERE importer = ? ORDER BY imported_at, rowid", importer)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}

	out := make([]StoredRecord, 0, len(rows))
	for _, r := range rows {
		var dirs []string
		if err := json.Unmarshal([]byte(r.Directories), &dirs); err != nil {
			return nil, fmt.Errorf("decoding directories of %s: %w", r.ID, err)
		}
		out = append(out, StoredRecord{
			Record: message.Record{
				ID:          r.ID,
				Header:      r.Header,
				Content:     r.Content,
				Author:      r.Author,
				Language:    r.Language,
				OriginIndex: r.OriginIndex,
				Copyright:   r.Copyright,
				Directories: dirs,
				Sender:      r.Sender,
				ReceivedAt:  r.ReceivedAt,
			},
			Importer:   r.Importer,
			SourceType: r.SourceType,
			ImportedAt: r.ImportedAt,
		})
	}
	return out, nil
}
