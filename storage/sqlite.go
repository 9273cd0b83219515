package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"netwarden/authorize"
	"netwarden/presence"
	"netwarden/scanner"
)

// SQLiteStore implements the device and guest stores on an embedded
// SQLite database. Saves keep full-rewrite semantics so both backends
// behave identically from the cache's point of view.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at dbPath. Empty path
// means in-memory, which tests use.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = ":memory:"
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("storage: open database: %w", err)
	}
	// SQLite serializes writes internally; a single connection avoids
	// table-locked errors on the Pi's slow SD card.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout = 10000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("storage: set pragma: %w", err)
		}
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS devices (
		mac TEXT PRIMARY KEY,
		ip TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL DEFAULT '',
		vendor TEXT NOT NULL DEFAULT '',
		type TEXT NOT NULL DEFAULT 'Other',
		status TEXT NOT NULL DEFAULT 'offline',
		blocked INTEGER NOT NULL DEFAULT 0,
		last_seen TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS guests (
		mac TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		joined_at TIMESTAMP NOT NULL,
		expires_at TIMESTAMP
	);`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("storage: initialize schema: %w", err)
	}
	return nil
}

// LoadDevices reads all device rows into a MAC-keyed map.
func (s *SQLiteStore) LoadDevices(ctx context.Context) (map[string]presence.DeviceRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT mac, ip, name, vendor, type, status, blocked, last_seen FROM devices`)
	if err != nil {
		return nil, fmt.Errorf("storage: query devices: %w", err)
	}
	defer rows.Close()

	devices := make(map[string]presence.DeviceRecord)
	for rows.Next() {
		var rec presence.DeviceRecord
		var devType, status string
		var blocked int
		var lastSeen sql.NullString
		if err := rows.Scan(&rec.MAC, &rec.IP, &rec.Name, &rec.Vendor, &devType, &status, &blocked, &lastSeen); err != nil {
			return nil, fmt.Errorf("storage: scan device row: %w", err)
		}
		rec.Type = scanner.DeviceType(devType)
		rec.Status = presence.DeviceStatus(status)
		rec.Blocked = blocked != 0
		if lastSeen.Valid {
			if t, err := time.Parse(time.RFC3339Nano, lastSeen.String); err == nil {
				rec.LastSeen = t
			}
		}
		devices[rec.MAC] = rec
	}
	return devices, rows.Err()
}

// SaveDevices replaces the devices table with the given map in one
// transaction.
func (s *SQLiteStore) SaveDevices(ctx context.Context, devices map[string]presence.DeviceRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: begin save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM devices`); err != nil {
		return fmt.Errorf("storage: clear devices: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO devices (mac, ip, name, vendor, type, status, blocked, last_seen)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("storage: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range devices {
		blocked := 0
		if rec.Blocked {
			blocked = 1
		}
		var lastSeen interface{}
		if !rec.LastSeen.IsZero() {
			lastSeen = rec.LastSeen.UTC().Format(time.RFC3339Nano)
		}
		if _, err := stmt.ExecContext(ctx, rec.MAC, rec.IP, rec.Name, rec.Vendor,
			string(rec.Type), string(rec.Status), blocked, lastSeen); err != nil {
			return fmt.Errorf("storage: insert device %s: %w", rec.MAC, err)
		}
	}
	return tx.Commit()
}

// LoadGuests reads all guest session rows.
func (s *SQLiteStore) LoadGuests(ctx context.Context) ([]authorize.GuestSession, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT mac, name, joined_at, expires_at FROM guests ORDER BY joined_at`)
	if err != nil {
		return nil, fmt.Errorf("storage: query guests: %w", err)
	}
	defer rows.Close()

	var sessions []authorize.GuestSession
	for rows.Next() {
		var g authorize.GuestSession
		var joined string
		var expires sql.NullString
		if err := rows.Scan(&g.MAC, &g.Name, &joined, &expires); err != nil {
			return nil, fmt.Errorf("storage: scan guest row: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, joined); err == nil {
			g.JoinedAt = t
		}
		if expires.Valid {
			if t, err := time.Parse(time.RFC3339Nano, expires.String); err == nil {
				g.ExpiresAt = &t
			}
		}
		sessions = append(sessions, g)
	}
	return sessions, rows.Err()
}

// SaveGuests replaces the guests table with the given sessions.
func (s *SQLiteStore) SaveGuests(ctx context.Context, sessions []authorize.GuestSession) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: begin save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM guests`); err != nil {
		return fmt.Errorf("storage: clear guests: %w", err)
	}
	for _, g := range sessions {
		var expires interface{}
		if g.ExpiresAt != nil {
			expires = g.ExpiresAt.UTC().Format(time.RFC3339Nano)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO guests (mac, name, joined_at, expires_at) VALUES (?, ?, ?, ?)`,
			g.MAC, g.Name, g.JoinedAt.UTC().Format(time.RFC3339Nano), expires); err != nil {
			return fmt.Errorf("storage: insert guest %s: %w", g.MAC, err)
		}
	}
	return tx.Commit()
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }
