package api

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/martinsuchenak/geotoolkit/internal/model"
	"github.com/martinsuchenak/geotoolkit/internal/storage"
)

// mockStorage is a simple in-memory storage for testing
type mockStorage struct {
	mu     sync.Mutex
	ranges map[string]*model.KnownRange
	order  []string
	nextID int
	err    error
}

func newMockStorage() *mockStorage {
	return &mockStorage{ranges: make(map[string]*model.KnownRange)}
}

func (m *mockStorage) ListRanges(filter *model.KnownRangeFilter) ([]model.KnownRange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}

	result := make([]model.KnownRange, 0, len(m.ranges))
	for _, id := range m.order {
		r := m.ranges[id]
		if filter != nil && filter.Name != "" &&
			!strings.Contains(strings.ToLower(r.Name), strings.ToLower(filter.Name)) {
			continue
		}
		result = append(result, *r)
	}
	return result, nil
}

func (m *mockStorage) GetRange(id string) (*model.KnownRange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r, ok := m.ranges[id]; ok {
		clone := *r
		return &clone, nil
	}
	for _, r := range m.ranges {
		if strings.EqualFold(r.Name, id) {
			clone := *r
			return &clone, nil
		}
	}
	return nil, storage.ErrRangeNotFound
}

func (m *mockStorage) CreateRange(r *model.KnownRange) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r.ID == "" {
		m.nextID++
		r.ID = fmt.Sprintf("range-%d", m.nextID)
	}
	if _, exists := m.ranges[r.ID]; exists {
		return storage.ErrRangeExists
	}
	r.CreatedAt = time.Now()
	r.UpdatedAt = r.CreatedAt

	clone := *r
	m.ranges[r.ID] = &clone
	m.order = append(m.order, r.ID)
	return nil
}

func (m *mockStorage) UpdateRange(r *model.KnownRange) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.ranges[r.ID]; !ok {
		return storage.ErrRangeNotFound
	}
	r.UpdatedAt = time.Now()
	clone := *r
	m.ranges[r.ID] = &clone
	return nil
}

func (m *mockStorage) DeleteRange(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.ranges[id]; !ok {
		return storage.ErrRangeNotFound
	}
	delete(m.ranges, id)
	m.order = slices.DeleteFunc(m.order, func(s string) bool { return s == id })
	return nil
}
