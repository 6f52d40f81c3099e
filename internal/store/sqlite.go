package store

import (
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const credentialKey = "gemini_api_key"

type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	// One writer, one control flow.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db, now: time.Now}
	if err = store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS settings (
        key TEXT PRIMARY KEY,
        value TEXT NOT NULL
    );

    CREATE TABLE IF NOT EXISTS foods (
        name TEXT PRIMARY KEY, -- case-folded
        calories_per_100g REAL NOT NULL CHECK (calories_per_100g > 0),
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );

    CREATE TABLE IF NOT EXISTS log_entries (
        id TEXT PRIMARY KEY, -- UUIDv7
        date_key TEXT NOT NULL,
        food TEXT NOT NULL,
        weight REAL NOT NULL CHECK (weight > 0),
        calories INTEGER NOT NULL CHECK (calories >= 0),
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );

    CREATE INDEX IF NOT EXISTS idx_log_entries_date_key ON log_entries (date_key);
    `
	_, err := s.db.Exec(schema)
	return err
}

// Credential methods
func (s *SQLiteStore) GetCredential() (string, bool, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM settings WHERE key = ?", credentialKey).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to query credential: %w", err)
	}
	return value, true, nil
}

func (s *SQLiteStore) SetCredential(value string) error {
	_, err := s.db.Exec(
		"INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		credentialKey, value,
	)
	if err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}
	return nil
}

// Food density methods
func (s *SQLiteStore) GetDensityTable() (map[string]float64, error) {
	rows, err := s.db.Query("SELECT name, calories_per_100g FROM foods")
	if err != nil {
		return nil, fmt.Errorf("failed to query foods: %w", err)
	}
	defer rows.Close()

	table := make(map[string]float64)
	for rows.Next() {
		var name string
		var density float64
		if err := rows.Scan(&name, &density); err != nil {
			return nil, fmt.Errorf("failed to scan food row: %w", err)
		}
		table[name] = density
	}
	return table, rows.Err()
}

func (s *SQLiteStore) ListFoods() ([]Food, error) {
	rows, err := s.db.Query("SELECT name, calories_per_100g, created_at FROM foods ORDER BY name ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query foods: %w", err)
	}
	defer rows.Close()

	var foods []Food
	for rows.Next() {
		var food Food
		if err := rows.Scan(&food.Name, &food.CaloriesPer100g, &food.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan food row: %w", err)
		}
		foods = append(foods, food)
	}
	return foods, rows.Err()
}

// GetDensity looks up the calories per 100 g of a food, case-insensitively.
func (s *SQLiteStore) GetDensity(name string) (float64, bool, error) {
	var density float64
	err := s.db.QueryRow("SELECT calories_per_100g FROM foods WHERE name = ?", NormalizeFoodName(name)).Scan(&density)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to query food density: %w", err)
	}
	return density, true, nil
}

// SetDensity records a density for a food that is not yet known. Known
// densities are left untouched; the returned bool reports an insert.
func validDensity(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

func (s *SQLiteStore) SetDensity(name string, caloriesPer100g float64) (bool, error) {
	key := NormalizeFoodName(name)
	if key == "" {
		return false, fmt.Errorf("food name cannot be empty")
	}
	if !validDensity(caloriesPer100g) {
		return false, fmt.Errorf("calories per 100g must be a positive finite number, got %v", caloriesPer100g)
	}

	res, err := s.db.Exec(
		"INSERT INTO foods (name, calories_per_100g, created_at) VALUES (?, ?, ?) ON CONFLICT(name) DO NOTHING",
		key, caloriesPer100g, s.now(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert food: %w", err)
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

// Daily log methods
func (s *SQLiteStore) GetLog(dateKey string) ([]LogEntry, error) {
	rows, err := s.db.Query(
		"SELECT id, date_key, food, weight, calories, created_at FROM log_entries WHERE date_key = ? ORDER BY rowid ASC",
		dateKey,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query log entries: %w", err)
	}
	defer rows.Close()

	entries := []LogEntry{}
	for rows.Next() {
		var e LogEntry
		if err := rows.Scan(&e.ID, &e.DateKey, &e.Food, &e.Weight, &e.Calories, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan log entry row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// AppendEntry adds an entry to the end of a day's log. ID and CreatedAt are
// filled in when empty.
func (s *SQLiteStore) AppendEntry(dateKey string, entry *LogEntry) error {
	if entry.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate entry id: %w", err)
		}
		entry.ID = id.String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now()
	}
	entry.DateKey = dateKey

	stmt, err := s.db.Prepare("INSERT INTO log_entries (id, date_key, food, weight, calories, created_at) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare log entry insert: %w", err)
	}
	defer stmt.Close()

	_, err = stmt.Exec(entry.ID, entry.DateKey, entry.Food, entry.Weight, entry.Calories, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to execute log entry insert: %w", err)
	}
	return nil
}

func (s *SQLiteStore) RemoveEntry(dateKey, id string) (bool, error) {
	res, err := s.db.Exec("DELETE FROM log_entries WHERE date_key = ? AND id = ?", dateKey, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete log entry: %w", err)
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}
