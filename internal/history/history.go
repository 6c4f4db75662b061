// Package history provides a SQLite-backed, write-only transcript archive
// for observability. The database is opened lazily and created on first use.
// If opening the DB or executing queries fails, the archive falls back to
// in-memory storage. Session state itself is never restored from here;
// sessions stay volatile.
package history

import (
	"database/sql"
	"sync"
	"time"

	_ "github.com/glebarez/go-sqlite"

	"github.com/zyfalo/sereno/internal/logger"
)

// Entry is one archived turn.
type Entry struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Archive records turns as they happen. The zero value is not usable; use
// New.
type Archive struct {
	mu      sync.Mutex
	path    string
	entries []Entry // in-memory fallback

	dbOnce  sync.Once
	db      *sql.DB
	initErr error
}

// New returns an archive writing to the SQLite file at path.
func New(path string) *Archive {
	return &Archive{path: path}
}

// initDB lazily opens the database and creates the turns table.
func (a *Archive) initDB() {
	var err error
	a.db, err = sql.Open("sqlite", "file:"+a.path+"?_busy_timeout=10000&_fk=1")
	if err != nil {
		a.initErr = err
		logger.L.Warn("sqlite open failed; archiving in memory only", "error", err)
		return
	}
	if _, err = a.db.Exec(`CREATE TABLE IF NOT EXISTS turns (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        session_id TEXT,
        role TEXT,
        content TEXT,
        created_at DATETIME
    );`); err != nil {
		a.initErr = err
		logger.L.Warn("sqlite table creation failed; archiving in memory only", "error", err)
		return
	}
	logger.L.Info("transcript archive initialized", "path", a.path)
}

// Record archives one turn. Failures are logged, never propagated: the chat
// pipeline must not fail because the archive is unavailable.
func (a *Archive) Record(sessionID, role, content string) {
	a.dbOnce.Do(a.initDB)

	e := Entry{SessionID: sessionID, Role: role, Content: content, CreatedAt: time.Now()}

	if a.initErr == nil && a.db != nil {
		_, err := a.db.Exec(`INSERT INTO turns (session_id, role, content, created_at) VALUES (?,?,?,?);`,
			e.SessionID, e.Role, e.Content, e.CreatedAt)
		if err != nil {
			logger.L.Error("failed to archive turn in sqlite; falling back to memory", "error", err)
		}
	}

	a.mu.Lock()
	a.entries = append(a.entries, e)
	a.mu.Unlock()
}

// List returns all archived turns of a session in chronological order.
func (a *Archive) List(sessionID string) []Entry {
	a.dbOnce.Do(a.initDB)

	var out []Entry
	if a.initErr == nil && a.db != nil {
		rows, err := a.db.Query(`SELECT id, session_id, role, content, created_at FROM turns WHERE session_id = ? ORDER BY id ASC;`, sessionID)
		if err == nil {
			defer rows.Close()
			for rows.Next() {
				var e Entry
				if err := rows.Scan(&e.ID, &e.SessionID, &e.Role, &e.Content, &e.CreatedAt); err == nil {
					out = append(out, e)
				}
			}
			return out
		}
	}

	a.mu.Lock()
	for _, e := range a.entries {
		if e.SessionID == sessionID {
			out = append(out, e)
		}
	}
	a.mu.Unlock()
	return out
}

// Close releases the database handle.
func (a *Archive) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}
