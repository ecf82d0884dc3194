// Package iprange classifies IPv4 start/end ranges: per-range anomalies,
// pairwise overlaps within a batch, a severity status per range and a
// summary for the batch. Everything here is a pure function of its input.
package iprange

import (
	"encoding/binary"
	"fmt"
	"net/netip"
	"strings"

	"go4.org/netipx"
)

// Range is an input record as uploaded or stored
type Range struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Start       string `json:"start"`
	End         string `json:"end"`
}

// DisplayName returns the name, or "Range #n" for unnamed ranges at index n-1
func (r Range) DisplayName(index int) string {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Sprintf("Range #%d", index+1)
	}
	return r.Name
}

func (r Range) startText() string { return strings.TrimSpace(r.Start) }
func (r Range) endText() string   { return strings.TrimSpace(r.End) }

// Result is the validation outcome for one input range
type Result struct {
	Range  Range    `json:"ip_range"`
	Size   int64    `json:"range_size"`
	Issues []Issue  `json:"issues"`
	Status Severity `json:"status"`
}

// bounds is a range whose endpoints both parsed. start may exceed end.
type bounds struct {
	start netip.Addr
	end   netip.Addr
	lo    uint32
	hi    uint32
}

// size follows the literal end - start + 1, so inverted ranges go to zero
// or below.
func (b bounds) size() int64 {
	return int64(b.hi) - int64(b.lo) + 1
}

func (b bounds) inverted() bool {
	return b.lo > b.hi
}

func (b bounds) overlaps(o bounds) bool {
	return b.lo <= o.hi && b.hi >= o.lo
}

// parsedRange is computed once per input: either valid with bounds, or not.
type parsedRange struct {
	Range
	bounds
	valid bool
}

func parseRange(r Range) parsedRange {
	start, ok1 := parseIPv4(r.Start)
	end, ok2 := parseIPv4(r.End)
	if !ok1 || !ok2 {
		return parsedRange{Range: r}
	}
	return parsedRange{
		Range: r,
		bounds: bounds{
			start: start,
			end:   end,
			lo:    addrToUint32(start),
			hi:    addrToUint32(end),
		},
		valid: true,
	}
}

// IsValidIPv4 reports whether s is a dotted-quad IPv4 address
func IsValidIPv4(s string) bool {
	_, ok := parseIPv4(s)
	return ok
}

func parseIPv4(s string) (netip.Addr, bool) {
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil || !addr.Is4() {
		return netip.Addr{}, false
	}
	return addr, true
}

func addrToUint32(addr netip.Addr) uint32 {
	b := addr.As4()
	return binary.BigEndian.Uint32(b[:])
}

// Validator applies a Policy to batches of ranges. It holds no mutable
// state and is safe for concurrent use.
type Validator struct {
	largeThreshold   int64
	extremeThreshold int64
	private          []block
	privateSet       *netipx.IPSet
	reserved         []block
}

// New compiles a policy into a Validator
func New(policy Policy) (*Validator, error) {
	if policy.LargeRangeThreshold <= 0 || policy.ExtremelyLargeRangeThreshold <= 0 {
		return nil, fmt.Errorf("%w: size thresholds must be positive", ErrInvalidPolicy)
	}
	if policy.LargeRangeThreshold > policy.ExtremelyLargeRangeThreshold {
		return nil, fmt.Errorf("%w: large range threshold %d exceeds extremely large threshold %d",
			ErrInvalidPolicy, policy.LargeRangeThreshold, policy.ExtremelyLargeRangeThreshold)
	}

	v := &Validator{
		largeThreshold:   policy.LargeRangeThreshold,
		extremeThreshold: policy.ExtremelyLargeRangeThreshold,
	}

	var sb netipx.IPSetBuilder
	for _, s := range policy.PrivateBlocks {
		b, err := compileBlock(s, s)
		if err != nil {
			return nil, err
		}
		v.private = append(v.private, b)
		sb.AddRange(b.r)
	}
	set, err := sb.IPSet()
	if err != nil {
		return nil, fmt.Errorf("%w: building private set: %w", ErrInvalidPolicy, err)
	}
	v.privateSet = set

	for _, rb := range policy.ReservedBlocks {
		name := rb.Name
		if name == "" {
			name = rb.Block
		}
		b, err := compileBlock(name, rb.Block)
		if err != nil {
			return nil, err
		}
		v.reserved = append(v.reserved, b)
	}

	return v, nil
}

// Default returns a Validator for DefaultPolicy
func Default() *Validator {
	v, err := New(DefaultPolicy())
	if err != nil {
		panic(err)
	}
	return v
}

// ValidateAll validates every range and returns results in input order.
// Overlaps are computed by index, so identical ranges flag each other, and
// ranges with unparsable addresses take no part in overlap detection.
func (v *Validator) ValidateAll(ranges []Range) []Result {
	parsed := make([]parsedRange, len(ranges))
	for i, r := range ranges {
		parsed[i] = parseRange(r)
	}

	results := make([]Result, len(parsed))
	for i, p := range parsed {
		if !p.valid {
			results[i] = Result{
				Range:  p.Range,
				Issues: []Issue{invalidIPIssue(p.Range)},
				Status: SeverityCritical,
			}
			continue
		}

		issues := v.detectIssues(p, findOverlaps(p, parsed, i))
		results[i] = Result{
			Range:  p.Range,
			Size:   p.size(),
			Issues: issues,
			Status: Status(issues),
		}
	}

	return results
}

// Check validates a candidate range against an existing inventory and
// returns the candidate's result. Overlap indexes are positions in existing,
// so they are only meaningful to a caller holding that slice.
func (v *Validator) Check(candidate Range, existing []Range) Result {
	all := make([]Range, 0, len(existing)+1)
	all = append(all, existing...)
	all = append(all, candidate)
	return v.ValidateAll(all)[len(existing)]
}

func findOverlaps(target parsedRange, all []parsedRange, exclude int) []Overlap {
	var overlaps []Overlap
	for j, other := range all {
		if j == exclude || !other.valid {
			continue
		}
		if target.overlaps(other.bounds) {
			overlaps = append(overlaps, Overlap{
				Index: j,
				Name:  other.DisplayName(j),
				Start: other.startText(),
				End:   other.endText(),
			})
		}
	}
	return overlaps
}

// detectIssues runs the single-range checks in their fixed output order
func (v *Validator) detectIssues(p parsedRange, overlaps []Overlap) []Issue {
	issues := make([]Issue, 0)

	if p.inverted() {
		issues = append(issues, invertedRangeIssue(p.Range))
	}

	size := p.size()
	if size > v.extremeThreshold {
		issues = append(issues, extremelyLargeRangeIssue(size, v.extremeThreshold))
	} else if size > v.largeThreshold {
		issues = append(issues, largeRangeIssue(size, v.largeThreshold))
	}

	startPrivate := v.privateSet.Contains(p.start)
	endPrivate := v.privateSet.Contains(p.end)
	if startPrivate != endPrivate {
		issues = append(issues, mixedPrivatePublicIssue())
	}

	if hit := v.reservedBlocksHit(p.bounds); len(hit) > 0 {
		issues = append(issues, containsReservedIssue(hit))
	}

	if v.withinOnePrivateBlock(p.bounds) {
		issues = append(issues, privateIPRangeIssue())
	}

	if len(overlaps) > 0 {
		issues = append(issues, overlappingRangesIssue(overlaps))
	}

	if size == 1 && p.startText() == p.endText() {
		issues = append(issues, singleIPAsRangeIssue(p.Range))
	}

	return issues
}

func (v *Validator) reservedBlocksHit(b bounds) []string {
	var hit []string
	for _, rb := range v.reserved {
		if b.lo <= rb.to && b.hi >= rb.from {
			hit = append(hit, rb.name)
		}
	}
	return hit
}

func (v *Validator) withinOnePrivateBlock(b bounds) bool {
	for _, pb := range v.private {
		if pb.r.Contains(b.start) && pb.r.Contains(b.end) {
			return true
		}
	}
	return false
}
