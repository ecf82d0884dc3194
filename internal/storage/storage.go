package storage

import (
	"errors"

	"github.com/martinsuchenak/geotoolkit/internal/model"
)

var (
	ErrRangeNotFound = errors.New("ip range not found")
	ErrInvalidID     = errors.New("invalid ip range ID")
	ErrRangeExists   = errors.New("ip range already exists")
)

// RangeStorage defines the interface for the known range inventory
type RangeStorage interface {
	ListRanges(filter *model.KnownRangeFilter) ([]model.KnownRange, error)
	GetRange(id string) (*model.KnownRange, error)
	CreateRange(r *model.KnownRange) error
	UpdateRange(r *model.KnownRange) error
	DeleteRange(id string) error
}

// NewStorage opens the SQLite inventory in dataDir
func NewStorage(dataDir string) (*SQLiteStorage, error) {
	return NewSQLiteStorage(dataDir)
}
