// Package db persists BOLT history entries in SQLite.
package db

import (
	"database/sql"
	"time"

	"github.com/jwulff/bolt/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS entries (
	id TEXT PRIMARY KEY,
	type TEXT NOT NULL,
	text TEXT NOT NULL,
	confidence REAL,
	isSaved INTEGER NOT NULL DEFAULT 0,
	createdAt REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_entries_created ON entries(createdAt DESC);
`

// Filter narrows ListEntries.
type Filter struct {
	Type      domain.EntryType // empty means every type
	SavedOnly bool
	Limit     int // 0 means no limit
}

type entryRow struct {
	ID         string
	Type       string
	Text       string
	Confidence sql.NullFloat64
	IsSaved    bool
	CreatedAt  float64
}

func (r entryRow) toEntry() domain.HistoryEntry {
	e := domain.HistoryEntry{
		ID:        r.ID,
		Type:      domain.EntryType(r.Type),
		Text:      r.Text,
		CreatedAt: timeFromUnix(r.CreatedAt),
		IsSaved:   r.IsSaved,
	}
	if r.Confidence.Valid {
		e.Confidence = domain.Float64Ptr(r.Confidence.Float64)
	}
	return e
}

func unixFromTime(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func timeFromUnix(ts float64) time.Time {
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}
