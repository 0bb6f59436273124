package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"hreq/internal/history"
	"hreq/internal/model"

	_ "modernc.org/sqlite"
)

const (
	dbFile = "hreq.db"

	// Secure file permissions - owner read/write only
	secureFileMode = 0600 // -rw-------
	secureDirMode  = 0700 // drwx------
)

// ensureSecureFile creates a file with secure permissions if it doesn't exist,
// or verifies/fixes permissions if it does exist.
func ensureSecureFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, secureFileMode)
		if err != nil {
			return fmt.Errorf("failed to create secure file: %w", err)
		}
		f.Close()
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	if info.Mode().Perm() != secureFileMode {
		if err := os.Chmod(path, secureFileMode); err != nil {
			return fmt.Errorf("failed to set secure permissions: %w", err)
		}
	}
	return nil
}

// SQLiteStorage keeps the working request history between CLI runs.
type SQLiteStorage struct {
	db      *sql.DB
	dataDir string
}

// NewStorage opens (creating if needed) the database in dataDir.
func NewStorage(dataDir string) (*SQLiteStorage, error) {
	if err := os.MkdirAll(dataDir, secureDirMode); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dataDir, dbFile)

	// Create database file with secure permissions if it doesn't exist
	// This avoids a race condition where the file is created with default
	// permissions and then chmod'd afterward
	if err := ensureSecureFile(dbPath); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	s := &SQLiteStorage{db: db, dataDir: dataDir}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Path returns the database file location.
func (s *SQLiteStorage) Path() string {
	return filepath.Join(s.dataDir, dbFile)
}

// initSchema creates the database tables if they don't exist
func (s *SQLiteStorage) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS history (
		id TEXT PRIMARY KEY,
		method TEXT NOT NULL,
		position INTEGER NOT NULL,
		url TEXT NOT NULL,
		content_type TEXT NOT NULL,
		body TEXT DEFAULT '',
		headers TEXT DEFAULT '',
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_history_method ON history(method, position);
	`

	_, err := s.db.Exec(schema)
	return err
}

// LoadStore reads every record into a new history store, ordered per method.
func (s *SQLiteStorage) LoadStore() (*history.Store, error) {
	rows, err := s.db.Query(`
		SELECT id, method, url, content_type, body, headers
		FROM history
		ORDER BY method, position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byMethod := make(map[model.Method][]model.RequestRecord)
	for rows.Next() {
		var rec model.RequestRecord
		if err := rows.Scan(&rec.ID, &rec.Method, &rec.URL, &rec.ContentType, &rec.Body, &rec.Headers); err != nil {
			return nil, err
		}
		byMethod[rec.Method] = append(byMethod[rec.Method], rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	store := history.NewStore()
	for _, method := range model.Methods {
		for _, rec := range byMethod[method] {
			store.Append(rec)
		}
	}
	return store, nil
}

// SaveStore replaces all history with the store's contents.
func (s *SQLiteStorage) SaveStore(store *history.Store) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM history"); err != nil {
		return err
	}

	for _, method := range model.Methods {
		for i, rec := range store.Records(method) {
			if err := insertRecord(tx, rec, i); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// AppendRecord stores rec after the existing records of its method and
// returns it with its ID set.
func (s *SQLiteStorage) AppendRecord(rec model.RequestRecord) (model.RequestRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return rec, err
	}
	defer tx.Rollback()

	var maxPos sql.NullInt64
	if err := tx.QueryRow("SELECT MAX(position) FROM history WHERE method = ?", rec.Method).Scan(&maxPos); err != nil {
		return rec, err
	}
	nextPos := 0
	if maxPos.Valid {
		nextPos = int(maxPos.Int64) + 1
	}

	if err := insertRecord(tx, rec, nextPos); err != nil {
		return rec, err
	}
	return rec, tx.Commit()
}

func insertRecord(tx *sql.Tx, rec model.RequestRecord, position int) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	_, err := tx.Exec(`
		INSERT OR REPLACE INTO history (
			id, method, position, url, content_type, body, headers, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, string(rec.Method), position, rec.URL, string(rec.ContentType),
		rec.Body, rec.Headers, time.Now().UTC(),
	)
	return err
}

// DeleteRecord removes a record by ID and reports whether it existed.
func (s *SQLiteStorage) DeleteRecord(id string) (bool, error) {
	res, err := s.db.Exec("DELETE FROM history WHERE id = ?", id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ClearHistory clears all history
func (s *SQLiteStorage) ClearHistory() error {
	_, err := s.db.Exec("DELETE FROM history")
	return err
}
