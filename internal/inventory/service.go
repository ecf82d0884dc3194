// Package inventory runs the validator against the stored range inventory.
// It is shared by the HTTP API, the MCP tools, the CLI and the audit task.
package inventory

import (
	"errors"
	"fmt"

	"github.com/martinsuchenak/geotoolkit/internal/iprange"
	"github.com/martinsuchenak/geotoolkit/internal/model"
	"github.com/martinsuchenak/geotoolkit/internal/storage"
)

// ErrRejected is returned when a range is refused because of a critical issue
var ErrRejected = errors.New("ip range has critical issues")

// Report is the outcome of validating a batch
type Report struct {
	Results []iprange.Result `json:"results"`
	Summary iprange.Summary  `json:"summary"`
}

// AuditEntry ties a validation result to the stored range it came from
type AuditEntry struct {
	ID string `json:"id"`
	iprange.Result
}

// AuditReport is the outcome of validating the whole inventory
type AuditReport struct {
	Entries []AuditEntry    `json:"results"`
	Summary iprange.Summary `json:"summary"`
}

// Notable returns the entries worth alerting on
func (a AuditReport) Notable() []AuditEntry {
	var out []AuditEntry
	for _, e := range a.Entries {
		if iprange.ShouldNotify(e.Result) {
			out = append(out, e)
		}
	}
	return out
}

// Service validates uploads and guards writes to the inventory
type Service struct {
	store     storage.RangeStorage
	validator *iprange.Validator
}

// NewService creates a service over store. A nil validator uses the default policy.
func NewService(store storage.RangeStorage, validator *iprange.Validator) *Service {
	if validator == nil {
		validator = iprange.Default()
	}
	return &Service{store: store, validator: validator}
}

// Validate runs a stateless validation of ranges
func (s *Service) Validate(ranges []iprange.Range) Report {
	results := s.validator.ValidateAll(ranges)
	return Report{Results: results, Summary: iprange.Summarize(results)}
}

// Audit validates every stored range as one batch
func (s *Service) Audit() (AuditReport, error) {
	known, err := s.store.ListRanges(nil)
	if err != nil {
		return AuditReport{}, fmt.Errorf("listing ranges: %w", err)
	}

	ids := make([]string, len(known))
	for i, k := range known {
		ids[i] = k.ID
	}

	results := s.validator.ValidateAll(model.Ranges(known))
	entries := make([]AuditEntry, len(results))
	for i, res := range results {
		attachOverlapIDs(res, ids)
		entries[i] = AuditEntry{ID: known[i].ID, Result: res}
	}

	return AuditReport{Entries: entries, Summary: iprange.Summarize(results)}, nil
}

// List returns stored ranges
func (s *Service) List(filter *model.KnownRangeFilter) ([]model.KnownRange, error) {
	return s.store.ListRanges(filter)
}

// Get returns a stored range by ID or name
func (s *Service) Get(id string) (*model.KnownRange, error) {
	return s.store.GetRange(id)
}

// Delete removes a stored range by ID or name
func (s *Service) Delete(id string) error {
	existing, err := s.store.GetRange(id)
	if err != nil {
		return err
	}
	return s.store.DeleteRange(existing.ID)
}

// Check validates candidate against the rest of the inventory. A stored
// range with the same ID is left out so an update does not overlap itself.
// Overlaps carry the stored ID of the range they point at; their Index is a
// position in an internal list and means nothing to callers.
func (s *Service) Check(candidate model.KnownRange) (iprange.Result, error) {
	known, err := s.store.ListRanges(nil)
	if err != nil {
		return iprange.Result{}, fmt.Errorf("listing ranges: %w", err)
	}

	existing := make([]iprange.Range, 0, len(known))
	ids := make([]string, 0, len(known))
	for _, k := range known {
		if candidate.ID != "" && k.ID == candidate.ID {
			continue
		}
		existing = append(existing, k.Range())
		ids = append(ids, k.ID)
	}

	result := s.validator.Check(candidate.Range(), existing)
	attachOverlapIDs(result, ids)
	return result, nil
}

// attachOverlapIDs sets the stored ID on every overlap, ids being indexed
// like the batch the result was computed from.
func attachOverlapIDs(result iprange.Result, ids []string) {
	for i := range result.Issues {
		for j := range result.Issues[i].Overlaps {
			o := &result.Issues[i].Overlaps[j]
			if o.Index >= 0 && o.Index < len(ids) {
				o.ID = ids[o.Index]
			}
		}
	}
}

// Create validates and stores a new range. Ranges with a critical issue are
// rejected with ErrRejected unless force is set; the result is returned
// either way.
func (s *Service) Create(r *model.KnownRange, force bool) (iprange.Result, error) {
	result, err := s.Check(*r)
	if err != nil {
		return iprange.Result{}, err
	}
	if result.Status == iprange.SeverityCritical && !force {
		return result, ErrRejected
	}

	if err := s.store.CreateRange(r); err != nil {
		return result, err
	}
	return result, nil
}

// Update validates and replaces an existing range, with the same rules as Create
func (s *Service) Update(r *model.KnownRange, force bool) (iprange.Result, error) {
	existing, err := s.store.GetRange(r.ID)
	if err != nil {
		return iprange.Result{}, err
	}
	r.ID = existing.ID
	r.CreatedAt = existing.CreatedAt

	result, err := s.Check(*r)
	if err != nil {
		return iprange.Result{}, err
	}
	if result.Status == iprange.SeverityCritical && !force {
		return result, ErrRejected
	}

	if err := s.store.UpdateRange(r); err != nil {
		return result, err
	}
	return result, nil
}
