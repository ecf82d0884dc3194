package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/martinsuchenak/geotoolkit/internal/model"
)

const rangeColumns = `id, name, description, start_ip, end_ip, tags, created_at, updated_at`

// SQLiteStorage implements RangeStorage with SQLite backend
type SQLiteStorage struct {
	mu   sync.RWMutex
	db   *sql.DB
	path string
}

// NewSQLiteStorage creates a new SQLite-based storage
func NewSQLiteStorage(dataDir string) (*SQLiteStorage, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dataDir, "ranges.db")

	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite works best with single writer
	db.SetMaxIdleConns(1)

	ss := &SQLiteStorage{
		db:   db,
		path: dbPath,
	}

	if err := ss.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return ss, nil
}

// Close closes the database connection
func (ss *SQLiteStorage) Close() error {
	return ss.db.Close()
}

// GetDatabasePath returns the database file path
func (ss *SQLiteStorage) GetDatabasePath() string {
	return ss.path
}

// ListRanges returns stored ranges ordered by start address then name
func (ss *SQLiteStorage) ListRanges(filter *model.KnownRangeFilter) ([]model.KnownRange, error) {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	query := `SELECT ` + rangeColumns + ` FROM known_ranges`
	var args []any
	if filter != nil && filter.Name != "" {
		query += ` WHERE LOWER(name) LIKE ?`
		args = append(args, "%"+strings.ToLower(filter.Name)+"%")
	}

	rows, err := ss.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying ranges: %w", err)
	}
	defer rows.Close()

	ranges, err := scanRanges(rows)
	if err != nil {
		return nil, err
	}

	if filter != nil && len(filter.Tags) > 0 {
		ranges = slices.DeleteFunc(ranges, func(r model.KnownRange) bool {
			return !hasAnyTag(r.Tags, filter.Tags)
		})
	}

	slices.SortStableFunc(ranges, func(a, b model.KnownRange) int {
		if c := compareStart(a.StartIP, b.StartIP); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})

	return ranges, nil
}

// GetRange retrieves a range by ID or name
func (ss *SQLiteStorage) GetRange(id string) (*model.KnownRange, error) {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	if id == "" {
		return nil, ErrInvalidID
	}

	r, err := ss.queryRange(`SELECT `+rangeColumns+` FROM known_ranges WHERE id = ? LIMIT 1`, id)
	if err == nil {
		return r, nil
	}
	if !errors.Is(err, ErrRangeNotFound) {
		return nil, err
	}

	return ss.queryRange(`SELECT `+rangeColumns+` FROM known_ranges WHERE LOWER(name) = LOWER(?) LIMIT 1`, id)
}

// CreateRange adds a new range, assigning an ID when none is set
func (ss *SQLiteStorage) CreateRange(r *model.KnownRange) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if r.ID == "" {
		r.ID = generateID()
	}

	var exists int
	err := ss.db.QueryRow(`SELECT COUNT(1) FROM known_ranges WHERE id = ?`, r.ID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("checking range: %w", err)
	}
	if exists > 0 {
		return ErrRangeExists
	}

	tags, err := encodeTags(r.Tags)
	if err != nil {
		return fmt.Errorf("encoding tags: %w", err)
	}

	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now

	_, err = ss.db.Exec(`
		INSERT INTO known_ranges (`+rangeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.Name, r.Description, r.StartIP, r.EndIP, tags, r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting range: %w", err)
	}

	return nil
}

// UpdateRange replaces the mutable fields of an existing range
func (ss *SQLiteStorage) UpdateRange(r *model.KnownRange) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if r.ID == "" {
		return ErrInvalidID
	}

	tags, err := encodeTags(r.Tags)
	if err != nil {
		return fmt.Errorf("encoding tags: %w", err)
	}

	r.UpdatedAt = time.Now().UTC()

	result, err := ss.db.Exec(`
		UPDATE known_ranges
		SET name = ?, description = ?, start_ip = ?, end_ip = ?, tags = ?, updated_at = ?
		WHERE id = ?
	`, r.Name, r.Description, r.StartIP, r.EndIP, tags, r.UpdatedAt, r.ID)
	if err != nil {
		return fmt.Errorf("updating range: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrRangeNotFound
	}

	return nil
}

// DeleteRange removes a range
func (ss *SQLiteStorage) DeleteRange(id string) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if id == "" {
		return ErrInvalidID
	}

	result, err := ss.db.Exec("DELETE FROM known_ranges WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting range: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrRangeNotFound
	}

	return nil
}

func (ss *SQLiteStorage) queryRange(query string, args ...any) (*model.KnownRange, error) {
	rows, err := ss.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying range: %w", err)
	}
	defer rows.Close()

	ranges, err := scanRanges(rows)
	if err != nil {
		return nil, err
	}
	if len(ranges) == 0 {
		return nil, ErrRangeNotFound
	}
	return &ranges[0], nil
}

func scanRanges(rows *sql.Rows) ([]model.KnownRange, error) {
	ranges := make([]model.KnownRange, 0)
	for rows.Next() {
		var r model.KnownRange
		var tags string
		if err := rows.Scan(&r.ID, &r.Name, &r.Description, &r.StartIP, &r.EndIP, &tags,
			&r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning range: %w", err)
		}
		decoded, err := decodeTags(tags)
		if err != nil {
			return nil, fmt.Errorf("decoding tags for %s: %w", r.ID, err)
		}
		r.Tags = decoded
		ranges = append(ranges, r)
	}
	return ranges, rows.Err()
}

// generateID generates a UUIDv7 for a range
func generateID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
