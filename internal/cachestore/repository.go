// Package cachestore provides persistent caching for upstream API responses.
// All data is stored as JSON blobs with write and expiration timestamps so
// reads can report entry age and expire stale rows lazily.
package cachestore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// AllTables lists all tables in cache.db, one per upstream resource kind.
var AllTables = []string{
	"quote",
	"chart",
	"options",
	"options_chain",
	"summary",
	"news",
	"financials",
	"holdings",
	"auth",
}

// validTables is a set for O(1) table name validation.
var validTables = func() map[string]bool {
	m := make(map[string]bool, len(AllTables))
	for _, t := range AllTables {
		m[t] = true
	}
	return m
}()

// Repository provides cache operations for upstream response data.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new cache repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Migrate creates the cache tables and indexes if they do not exist.
func Migrate(db *sql.DB) error {
	var b strings.Builder
	for _, table := range AllTables {
		fmt.Fprintf(&b,
			"CREATE TABLE IF NOT EXISTS %s (cache_key TEXT PRIMARY KEY, data TEXT NOT NULL, written_at INTEGER NOT NULL, expires_at INTEGER NOT NULL);\n",
			table,
		)
		fmt.Fprintf(&b,
			"CREATE INDEX IF NOT EXISTS idx_%s_expires ON %s(expires_at);\n",
			table, table,
		)
	}

	if _, err := db.Exec(b.String()); err != nil {
		return fmt.Errorf("failed to create cache schema: %w", err)
	}
	return nil
}

// validateTable ensures the table name is in our allowed list.
// This prevents SQL injection through table names.
func validateTable(table string) error {
	if !validTables[table] {
		return fmt.Errorf("invalid table name: %s", table)
	}
	return nil
}

// Store saves data with written_at = now and expiration = now + ttl.
// Uses INSERT OR REPLACE, so concurrent writes to one key are last-write-wins.
func (r *Repository) Store(table, key string, data interface{}, ttl time.Duration) error {
	if err := validateTable(table); err != nil {
		return err
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	now := time.Now().Unix()
	expiresAt := time.Now().Add(ttl).Unix()

	query := fmt.Sprintf(
		"INSERT OR REPLACE INTO %s (cache_key, data, written_at, expires_at) VALUES (?, ?, ?, ?)",
		table,
	)

	_, err = r.db.Exec(query, key, string(jsonData), now, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to store data in %s: %w", table, err)
	}

	return nil
}

// GetFresh returns data and its age in seconds, only if expires_at > now.
// Expiry is enforced here rather than trusted to the backing store.
// Returns nil data if the key doesn't exist or the row is expired.
func (r *Repository) GetFresh(table, key string) (json.RawMessage, int64, error) {
	if err := validateTable(table); err != nil {
		return nil, 0, err
	}

	now := time.Now().Unix()

	query := fmt.Sprintf(
		"SELECT data, written_at FROM %s WHERE cache_key = ? AND expires_at > ?",
		table,
	)

	var data string
	var writtenAt int64
	err := r.db.QueryRow(query, key, now).Scan(&data, &writtenAt)
	if err == sql.ErrNoRows {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get data from %s: %w", table, err)
	}

	age := now - writtenAt
	if age < 0 {
		age = 0
	}

	return json.RawMessage(data), age, nil
}

// Delete removes a specific entry. Reports whether a row was removed.
func (r *Repository) Delete(table, key string) (bool, error) {
	if err := validateTable(table); err != nil {
		return false, err
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE cache_key = ?", table)

	result, err := r.db.Exec(query, key)
	if err != nil {
		return false, fmt.Errorf("failed to delete from %s: %w", table, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected for %s: %w", table, err)
	}

	return affected > 0, nil
}

// DeleteExpired removes all rows where expires_at < now.
// Returns the number of rows deleted.
func (r *Repository) DeleteExpired(table string) (int64, error) {
	if err := validateTable(table); err != nil {
		return 0, err
	}

	now := time.Now().Unix()

	query := fmt.Sprintf("DELETE FROM %s WHERE expires_at < ?", table)

	result, err := r.db.Exec(query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired from %s: %w", table, err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected for %s: %w", table, err)
	}

	return deleted, nil
}

// DeleteAllExpired removes all expired entries from all tables.
// Returns a map of table name to number of rows deleted.
func (r *Repository) DeleteAllExpired() (map[string]int64, error) {
	results := make(map[string]int64)

	for _, table := range AllTables {
		deleted, err := r.DeleteExpired(table)
		if err != nil {
			return results, fmt.Errorf("failed to delete expired from %s: %w", table, err)
		}
		results[table] = deleted
	}

	return results, nil
}
