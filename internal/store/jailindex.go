package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// JailIndexEntry is one row of the jail-instance index `ps` reads from —
// a queryable cache of the same facts state/<name>.json holds, kept for
// cheap cross-jail listing without opening every record file.
type JailIndexEntry struct {
	Name      string
	State     string
	Release   string
	IPAddress string
	PID       int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UpsertJailIndex writes or replaces one jail's index row.
func UpsertJailIndex(ctx context.Context, db *sql.DB, e JailIndexEntry) error {
	now := time.Now().Unix()
	_, err := db.ExecContext(ctx, `
		INSERT INTO jail_instances (name, state, release, ip_address, pid, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			state = excluded.state,
			release = excluded.release,
			ip_address = excluded.ip_address,
			pid = excluded.pid,
			updated_at = excluded.updated_at
	`, e.Name, e.State, e.Release, e.IPAddress, e.PID, now, now)
	if err != nil {
		return fmt.Errorf("upsert jail index for %s: %w", e.Name, err)
	}
	return nil
}

// RemoveJailIndex deletes name's row (cleanup --force on a fully-released jail).
func RemoveJailIndex(ctx context.Context, db *sql.DB, name string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM jail_instances WHERE name = ?`, name)
	return err
}

// ListJailIndex returns every jail's index row, the backing data for `ps`.
func ListJailIndex(ctx context.Context, db *sql.DB) ([]JailIndexEntry, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT name, state, release, ip_address, pid, created_at, updated_at FROM jail_instances ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("list jail index: %w", err)
	}
	defer rows.Close()

	var out []JailIndexEntry
	for rows.Next() {
		var e JailIndexEntry
		var ip sql.NullString
		var createdAt, updatedAt int64
		if err := rows.Scan(&e.Name, &e.State, &e.Release, &ip, &e.PID, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan jail index row: %w", err)
		}
		e.IPAddress = ip.String
		e.CreatedAt = time.Unix(createdAt, 0)
		e.UpdatedAt = time.Unix(updatedAt, 0)
		out = append(out, e)
	}
	return out, rows.Err()
}
