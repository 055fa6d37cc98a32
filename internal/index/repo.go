package index

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/dailylog/internal/models"
)

// FileRow represents a row in the files table.
type FileRow struct {
	Path      string
	Checksum  string
	Title     string
	UpdatedAt time.Time
}

// UpsertFile inserts or replaces the tracked state of a vault file.
func (db *DB) UpsertFile(row FileRow) error {
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = time.Now()
	}
	_, err := db.conn.Exec(`
		INSERT INTO files (path, checksum, title, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			checksum   = excluded.checksum,
			title      = excluded.title,
			updated_at = excluded.updated_at
	`, row.Path, row.Checksum, row.Title, row.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert file: %w", err)
	}
	return nil
}

// DeleteFile forgets a vault file.
func (db *DB) DeleteFile(path string) error {
	if _, err := db.conn.Exec(`DELETE FROM files WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete file: %w", err)
	}
	return nil
}

// GetChecksum returns the stored checksum for a file, or empty string if
// the file is not tracked.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM files WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

// AllChecksums returns path → checksum for every tracked file.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM files`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// RecordActivity appends one journal row.
func (db *DB) RecordActivity(a models.Activity) error {
	_, err := db.conn.Exec(`
		INSERT INTO activity (id, date, path, name, title, kind, diary_path, at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.Date, a.Path, a.Name, a.Title, string(a.Kind), a.DiaryPath, a.At)
	if err != nil {
		return fmt.Errorf("index: record activity: %w", err)
	}
	return nil
}

// ListActivity returns journal rows, newest first. An empty date lists all
// days. A row without a title takes the current title of its file.
func (db *DB) ListActivity(date string, limit int) ([]models.Activity, error) {
	if limit <= 0 {
		limit = 100
	}
	// Rows journaled before a note had a title fall back to the tracked one.
	query := `
		SELECT a.id, a.date, a.path, a.name, COALESCE(NULLIF(a.title, ''), f.title, ''),
		       a.kind, a.diary_path, a.at
		FROM activity a
		LEFT JOIN files f ON f.path = a.path`
	args := []any{}
	if date != "" {
		query += ` WHERE a.date = ?`
		args = append(args, date)
	}
	query += ` ORDER BY a.at DESC, a.rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("index: list activity: %w", err)
	}
	defer rows.Close()

	out := []models.Activity{}
	for rows.Next() {
		var a models.Activity
		var kind string
		if err := rows.Scan(&a.ID, &a.Date, &a.Path, &a.Name, &a.Title, &kind, &a.DiaryPath, &a.At); err != nil {
			return nil, err
		}
		a.Kind = models.Kind(kind)
		out = append(out, a)
	}
	return out, rows.Err()
}
