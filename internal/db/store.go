package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/jwulff/bolt/internal/domain"
)

// ErrNotFound is returned when an entry id does not exist.
var ErrNotFound = errors.New("entry not found")

// Store provides access to the BOLT history database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database read-write with WAL and
// ensures the schema exists.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	return open(dsn, true)
}

// OpenReadOnly opens an existing database without write access.
func OpenReadOnly(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(5000)", path)
	return open(dsn, false)
}

// OpenMemory opens a private in-memory database.
func OpenMemory() (*Store, error) {
	return open(":memory:", true)
}

func open(dsn string, migrate bool) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection keeps :memory: databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if migrate {
		if _, err := db.Exec(schema); err != nil {
			db.Close()
			return nil, fmt.Errorf("init schema: %w", err)
		}
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// LoadEntries returns every entry, newest first.
func (s *Store) LoadEntries() ([]domain.HistoryEntry, error) {
	return s.ListEntries(Filter{})
}

// ListEntries returns entries matching f, newest first.
func (s *Store) ListEntries(f Filter) ([]domain.HistoryEntry, error) {
	var (
		where []string
		args  []any
	)
	if f.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(f.Type))
	}
	if f.SavedOnly {
		where = append(where, "isSaved = 1")
	}

	q := `SELECT id, type, text, confidence, isSaved, createdAt FROM entries`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY createdAt DESC, rowid DESC"
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.HistoryEntry
	for rows.Next() {
		var r entryRow
		if err := rows.Scan(&r.ID, &r.Type, &r.Text, &r.Confidence, &r.IsSaved, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, r.toEntry())
	}
	return entries, rows.Err()
}

// GetEntry returns one entry by id.
func (s *Store) GetEntry(id string) (domain.HistoryEntry, error) {
	row := s.db.QueryRow(`
		SELECT id, type, text, confidence, isSaved, createdAt
		FROM entries
		WHERE id = ?
	`, id)

	var r entryRow
	if err := row.Scan(&r.ID, &r.Type, &r.Text, &r.Confidence, &r.IsSaved, &r.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.HistoryEntry{}, ErrNotFound
		}
		return domain.HistoryEntry{}, fmt.Errorf("scan entry: %w", err)
	}
	return r.toEntry(), nil
}

// InsertEntry stores a new entry.
func (s *Store) InsertEntry(e domain.HistoryEntry) error {
	var conf sql.NullFloat64
	if e.Confidence != nil {
		conf = sql.NullFloat64{Float64: *e.Confidence, Valid: true}
	}
	_, err := s.db.Exec(`
		INSERT INTO entries (id, type, text, confidence, isSaved, createdAt)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.ID, string(e.Type), e.Text, conf, e.IsSaved, unixFromTime(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	return nil
}

// SetSaved flips the saved flag of one entry.
func (s *Store) SetSaved(id string, saved bool) error {
	res, err := s.db.Exec(`UPDATE entries SET isSaved = ? WHERE id = ?`, saved, id)
	if err != nil {
		return fmt.Errorf("update entry: %w", err)
	}
	return requireRow(res)
}

// UnsaveAll clears the saved flag on every entry of type t.
func (s *Store) UnsaveAll(t domain.EntryType) error {
	if _, err := s.db.Exec(`UPDATE entries SET isSaved = 0 WHERE type = ?`, string(t)); err != nil {
		return fmt.Errorf("update entries: %w", err)
	}
	return nil
}

// DeleteEntry removes one entry.
func (s *Store) DeleteEntry(id string) error {
	res, err := s.db.Exec(`DELETE FROM entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return requireRow(res)
}

// ClearEntries removes every entry.
func (s *Store) ClearEntries() error {
	if _, err := s.db.Exec(`DELETE FROM entries`); err != nil {
		return fmt.Errorf("clear entries: %w", err)
	}
	return nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
