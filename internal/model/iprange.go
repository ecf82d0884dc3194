package model

import (
	"time"

	"github.com/martinsuchenak/geotoolkit/internal/iprange"
)

// KnownRange is an IPv4 range kept in the inventory
type KnownRange struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	StartIP     string    `json:"start_ip"`
	EndIP       string    `json:"end_ip"`
	Tags        []string  `json:"tags,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// KnownRangeFilter holds filter criteria for listing ranges
type KnownRangeFilter struct {
	Name string   // Filter by name (partial match)
	Tags []string // Any of these tags
}

// Range converts the stored record to validator input
func (k KnownRange) Range() iprange.Range {
	return iprange.Range{
		Name:        k.Name,
		Description: k.Description,
		Start:       k.StartIP,
		End:         k.EndIP,
	}
}

// Ranges converts a slice of stored records, preserving order
func Ranges(known []KnownRange) []iprange.Range {
	ranges := make([]iprange.Range, len(known))
	for i, k := range known {
		ranges[i] = k.Range()
	}
	return ranges
}
