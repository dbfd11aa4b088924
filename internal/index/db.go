package index

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite database for the local index.
type DB struct {
	db *sql.DB
}

// OpenDB opens or creates the SQLite database at the given path.
func OpenDB(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

func migrate(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS directories (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		path TEXT NOT NULL UNIQUE,
		mod_ms INTEGER NOT NULL DEFAULT 0,
		last_crawled DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_directories_path ON directories(path);

	CREATE TABLE IF NOT EXISTS entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		path TEXT NOT NULL,
		is_dir INTEGER NOT NULL DEFAULT 0,
		is_link INTEGER NOT NULL DEFAULT 0,
		size INTEGER NOT NULL DEFAULT 0,
		mod_ms INTEGER NOT NULL DEFAULT 0,
		directory_id INTEGER REFERENCES directories(id)
	);

	CREATE INDEX IF NOT EXISTS idx_entries_directory ON entries(directory_id);
	CREATE INDEX IF NOT EXISTS idx_entries_path ON entries(path);

	CREATE VIRTUAL TABLE IF NOT EXISTS entries_fts USING fts5(
		name,
		path,
		content=entries,
		content_rowid=id,
		tokenize='unicode61 remove_diacritics 2'
	);

	CREATE TRIGGER IF NOT EXISTS entries_ai AFTER INSERT ON entries BEGIN
		INSERT INTO entries_fts(rowid, name, path) VALUES (new.id, new.name, new.path);
	END;

	CREATE TRIGGER IF NOT EXISTS entries_ad AFTER DELETE ON entries BEGIN
		INSERT INTO entries_fts(entries_fts, rowid, name, path) VALUES('delete', old.id, old.name, old.path);
	END;

	CREATE TRIGGER IF NOT EXISTS entries_au AFTER UPDATE ON entries BEGIN
		INSERT INTO entries_fts(entries_fts, rowid, name, path) VALUES('delete', old.id, old.name, old.path);
		INSERT INTO entries_fts(entries_fts, rowid, name, path) VALUES (new.id, new.name, new.path);
	END;
	`
	_, err := db.Exec(schema)
	return err
}

// EntryRecord represents an indexed file or directory.
type EntryRecord struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Path        string `json:"path"`
	IsDir       bool   `json:"is_dir"`
	IsLink      bool   `json:"is_link"`
	Size        int64  `json:"size"`
	ModMs       int64  `json:"mod_ms"`
	DirectoryID int64  `json:"directory_id"`
}

// sanitizeFTS5Query escapes FTS5 special characters so user input
// does not cause syntax errors. Each word is wrapped in double quotes,
// and embedded double quotes are doubled (FTS5 escaping).
func sanitizeFTS5Query(query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return ""
	}

	// `report (final)` becomes `"report" "final"`, which FTS5 treats as AND.
	words := strings.Fields(query)
	var quoted []string
	for _, w := range words {
		w = strings.ReplaceAll(w, `"`, `""`)
		w = strings.NewReplacer(
			"(", "",
			")", "",
			"[", "",
			"]", "",
			"{", "",
			"}", "",
			"^", "",
			"*", "",
		).Replace(w)
		if w == "" {
			continue
		}
		quoted = append(quoted, `"`+w+`"*`)
	}
	if len(quoted) == 0 {
		return ""
	}
	return strings.Join(quoted, " ")
}

// UpsertDirectory inserts or updates a directory and returns its ID.
func (d *DB) UpsertDirectory(path string, modMs int64) (int64, error) {
	res, err := d.db.Exec(
		`INSERT INTO directories (path, mod_ms) VALUES (?, ?)
		 ON CONFLICT(path) DO UPDATE SET mod_ms=excluded.mod_ms`,
		path, modMs,
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil || id == 0 {
		row := d.db.QueryRow("SELECT id FROM directories WHERE path = ?", path)
		if err := row.Scan(&id); err != nil {
			return 0, err
		}
	}
	return id, nil
}

// MarkDirectoryCrawled updates the last_crawled timestamp.
func (d *DB) MarkDirectoryCrawled(dirID int64) error {
	_, err := d.db.Exec(
		"UPDATE directories SET last_crawled = ? WHERE id = ?",
		time.Now().UTC(), dirID,
	)
	return err
}

// IsDirectoryStale reports whether a directory needs re-crawling: it was
// never crawled, or its modification time changed since.
func (d *DB) IsDirectoryStale(path string, modMs int64) (bool, error) {
	var lastCrawled sql.NullTime
	var storedMod int64
	err := d.db.QueryRow("SELECT last_crawled, mod_ms FROM directories WHERE path = ?", path).Scan(&lastCrawled, &storedMod)
	if errors.Is(err, sql.ErrNoRows) {
		return true, nil
	}
	if err != nil {
		return true, err
	}
	if !lastCrawled.Valid {
		return true, nil
	}
	return storedMod != modMs, nil
}

// ChildDirectories returns the indexed subdirectories of path. Links to
// directories are not included.
func (d *DB) ChildDirectories(path string) ([]string, error) {
	rows, err := d.db.Query(`
		SELECT e.path FROM entries e
		JOIN directories d ON d.id = e.directory_id
		WHERE d.path = ? AND e.is_dir = 1 AND e.is_link = 0
		ORDER BY e.path`, path)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dirs []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		dirs = append(dirs, p)
	}
	return dirs, rows.Err()
}

// ClearDirectoryEntries deletes all entries of a directory (before re-indexing).
func (d *DB) ClearDirectoryEntries(dirID int64) error {
	_, err := d.db.Exec("DELETE FROM entries WHERE directory_id = ?", dirID)
	return err
}

// InsertEntryBatch inserts multiple entries in a single transaction.
func (d *DB) InsertEntryBatch(entries []EntryRecord) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO entries (name, path, is_dir, is_link, size, mod_ms, directory_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.Exec(e.Name, e.Path, e.IsDir, e.IsLink, e.Size, e.ModMs, e.DirectoryID); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Prune removes directories (and their entries) at or below prefix that are
// not in keep. It drops index rows for directories deleted from disk.
func (d *DB) Prune(prefix string, keep map[string]struct{}) (int, error) {
	rows, err := d.db.Query(
		"SELECT id, path FROM directories WHERE path = ? OR path LIKE ? ESCAPE '\\'",
		prefix, escapeLike(strings.TrimSuffix(prefix, "/"))+"/%",
	)
	if err != nil {
		return 0, err
	}
	var stale []int64
	for rows.Next() {
		var id int64
		var path string
		if err := rows.Scan(&id, &path); err != nil {
			rows.Close()
			return 0, err
		}
		if _, ok := keep[path]; !ok {
			stale = append(stale, id)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for _, id := range stale {
		if err := d.ClearDirectoryEntries(id); err != nil {
			return 0, err
		}
		if _, err := d.db.Exec("DELETE FROM directories WHERE id = ?", id); err != nil {
			return 0, err
		}
	}
	return len(stale), nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(s)
}

// Search performs a full-text search across all indexed entries.
func (d *DB) Search(query string, limit int) ([]EntryRecord, error) {
	return d.SearchUnder(query, "", limit)
}

// SearchUnder performs FTS search restricted to entries below prefix.
func (d *DB) SearchUnder(query, prefix string, limit int) ([]EntryRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	sanitized := sanitizeFTS5Query(query)
	if sanitized == "" {
		return nil, nil
	}

	like := "%"
	if p := strings.TrimSuffix(prefix, "/"); p != "" {
		like = escapeLike(p) + "/%"
	}

	rows, err := d.db.Query(`
		SELECT e.id, e.name, e.path, e.is_dir, e.is_link, e.size, e.mod_ms, e.directory_id
		FROM entries_fts fts
		JOIN entries e ON e.id = fts.rowid
		WHERE entries_fts MATCH ?
		  AND e.path LIKE ? ESCAPE '\'
		ORDER BY rank
		LIMIT ?
	`, sanitized, like, limit)
	if err != nil {
		return nil, fmt.Errorf("search query failed: %w", err)
	}
	defer rows.Close()

	var results []EntryRecord
	for rows.Next() {
		var r EntryRecord
		if err := rows.Scan(&r.ID, &r.Name, &r.Path, &r.IsDir, &r.IsLink, &r.Size, &r.ModMs, &r.DirectoryID); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// Stats summarizes the index.
type Stats struct {
	Directories int
	Files       int
	TotalBytes  int64
}

// GetStats returns statistics about the index.
func (d *DB) GetStats() (Stats, error) {
	var s Stats
	if err := d.db.QueryRow("SELECT COUNT(*) FROM directories").Scan(&s.Directories); err != nil {
		return s, err
	}
	if err := d.db.QueryRow("SELECT COUNT(*), COALESCE(SUM(size), 0) FROM entries WHERE is_dir = 0").Scan(&s.Files, &s.TotalBytes); err != nil {
		return s, err
	}
	return s, nil
}
