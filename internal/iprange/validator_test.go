package iprange

import (
	"reflect"
	"testing"
)

func issueTypes(issues []Issue) []IssueType {
	types := make([]IssueType, 0, len(issues))
	for _, issue := range issues {
		types = append(types, issue.Type)
	}
	return types
}

func TestIsValidIPv4(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"1.2.3.4", true},
		{"0.0.0.0", true},
		{"255.255.255.255", true},
		{" 10.0.0.1 ", true},
		{"256.0.0.1", false},
		{"1.2.3", false},
		{"1.2.3.4.5", false},
		{"01.2.3.4", false},
		{"::1", false},
		{"::ffff:1.2.3.4", false},
		{"1.2.3.4/24", false},
		{"", false},
		{"not-an-ip", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := IsValidIPv4(tt.input); got != tt.want {
				t.Errorf("IsValidIPv4(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestValidator_SingleRange(t *testing.T) {
	v := Default()

	tests := []struct {
		name       string
		start      string
		end        string
		wantIssues []IssueType
		wantStatus Severity
	}{
		{
			name:       "public range without findings",
			start:      "8.8.8.0",
			end:        "8.8.8.255",
			wantIssues: []IssueType{},
			wantStatus: SeverityValid,
		},
		{
			name:       "private single address",
			start:      "10.0.0.1",
			end:        "10.0.0.1",
			wantIssues: []IssueType{IssuePrivateIPRange, IssueSingleIPAsRange},
			wantStatus: SeverityWarning,
		},
		{
			name:       "public single address",
			start:      "1.1.1.1",
			end:        "1.1.1.1",
			wantIssues: []IssueType{IssueSingleIPAsRange},
			wantStatus: SeverityInfo,
		},
		{
			name:       "invalid start address",
			start:      "256.1.1.1",
			end:        "1.1.1.1",
			wantIssues: []IssueType{IssueInvalidIP},
			wantStatus: SeverityCritical,
		},
		{
			name:       "invalid end address",
			start:      "1.1.1.1",
			end:        "1.1.1",
			wantIssues: []IssueType{IssueInvalidIP},
			wantStatus: SeverityCritical,
		},
		{
			name:       "inverted and mixed",
			start:      "192.168.1.1",
			end:        "8.8.8.8",
			wantIssues: []IssueType{IssueInvertedRange, IssueMixedPrivatePublic},
			wantStatus: SeverityCritical,
		},
		{
			name:       "this network block is reserved",
			start:      "0.0.0.0",
			end:        "0.255.255.255",
			wantIssues: []IssueType{IssueLargeRange, IssueContainsReserved},
			wantStatus: SeverityWarning,
		},
		{
			name:       "straddles into multicast",
			start:      "223.255.255.255",
			end:        "224.0.0.1",
			wantIssues: []IssueType{IssueContainsReserved},
			wantStatus: SeverityWarning,
		},
		{
			name:       "loopback",
			start:      "127.0.0.1",
			end:        "127.0.0.10",
			wantIssues: []IssueType{IssueContainsReserved},
			wantStatus: SeverityWarning,
		},
		{
			name:       "larger than a /8",
			start:      "1.0.0.0",
			end:        "100.0.0.0",
			wantIssues: []IssueType{IssueExtremelyLargeRange},
			wantStatus: SeverityWarning,
		},
		{
			name:       "exactly a /16 is not large",
			start:      "8.8.0.0",
			end:        "8.8.255.255",
			wantIssues: []IssueType{},
			wantStatus: SeverityValid,
		},
		{
			name:       "one more than a /16 is large",
			start:      "8.8.0.0",
			end:        "8.9.0.0",
			wantIssues: []IssueType{IssueLargeRange},
			wantStatus: SeverityInfo,
		},
		{
			name:       "crosses into private space",
			start:      "9.255.255.0",
			end:        "10.0.0.10",
			wantIssues: []IssueType{IssueMixedPrivatePublic},
			wantStatus: SeverityWarning,
		},
		{
			name:       "two private blocks with public space between",
			start:      "10.0.0.5",
			end:        "192.168.1.1",
			wantIssues: []IssueType{IssueExtremelyLargeRange, IssueContainsReserved},
			wantStatus: SeverityWarning,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := v.ValidateAll([]Range{{Name: "r", Start: tt.start, End: tt.end}})
			if len(results) != 1 {
				t.Fatalf("Expected 1 result, got %d", len(results))
			}

			got := issueTypes(results[0].Issues)
			if !reflect.DeepEqual(got, tt.wantIssues) {
				t.Errorf("Expected issues %v, got %v", tt.wantIssues, got)
			}
			if results[0].Status != tt.wantStatus {
				t.Errorf("Expected status %s, got %s", tt.wantStatus, results[0].Status)
			}
		})
	}
}

func TestValidator_InvalidShortCircuits(t *testing.T) {
	results := Default().ValidateAll([]Range{{Start: "256.1.1.1", End: "1.1.1.1"}})

	issues := results[0].Issues
	if len(issues) != 1 {
		t.Fatalf("Expected exactly 1 issue, got %d", len(issues))
	}
	if issues[0].Severity != SeverityCritical {
		t.Errorf("Expected critical severity, got %s", issues[0].Severity)
	}
	if results[0].Size != 0 {
		t.Errorf("Expected size 0 for invalid range, got %d", results[0].Size)
	}
}

func TestValidator_Overlaps(t *testing.T) {
	v := Default()
	ranges := []Range{
		{Name: "A", Start: "192.168.1.0", End: "192.168.1.100"},
		{Name: "B", Start: "192.168.1.50", End: "192.168.1.150"},
	}

	results := v.ValidateAll(ranges)

	for i, other := range []int{1, 0} {
		got := issueTypes(results[i].Issues)
		want := []IssueType{IssuePrivateIPRange, IssueOverlappingRanges}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("Range %d: expected issues %v, got %v", i, want, got)
		}

		overlaps := results[i].Issues[1].Overlaps
		if len(overlaps) != 1 {
			t.Fatalf("Range %d: expected 1 overlap, got %d", i, len(overlaps))
		}
		if overlaps[0].Index != other || overlaps[0].Name != ranges[other].Name {
			t.Errorf("Range %d: expected overlap with %d (%s), got %+v", i, other, ranges[other].Name, overlaps[0])
		}
		if overlaps[0].Start != ranges[other].Start || overlaps[0].End != ranges[other].End {
			t.Errorf("Range %d: overlap bounds mismatch: %+v", i, overlaps[0])
		}
	}

	summary := Summarize(results)
	if summary.IssueBreakdown[IssueOverlappingRanges] != 2 {
		t.Errorf("Expected 2 overlapping_ranges issues, got %d", summary.IssueBreakdown[IssueOverlappingRanges])
	}
}

func TestValidator_OverlapEdges(t *testing.T) {
	v := Default()

	t.Run("touching bounds overlap", func(t *testing.T) {
		results := v.ValidateAll([]Range{
			{Name: "A", Start: "8.8.8.0", End: "8.8.8.10"},
			{Name: "B", Start: "8.8.8.10", End: "8.8.8.20"},
		})
		if results[0].Status != SeverityWarning || results[1].Status != SeverityWarning {
			t.Errorf("Expected both ranges to overlap, got %s and %s", results[0].Status, results[1].Status)
		}
	})

	t.Run("adjacent ranges do not overlap", func(t *testing.T) {
		results := v.ValidateAll([]Range{
			{Name: "A", Start: "8.8.8.0", End: "8.8.8.10"},
			{Name: "B", Start: "8.8.8.11", End: "8.8.8.20"},
		})
		for i, r := range results {
			if len(r.Issues) != 0 {
				t.Errorf("Range %d: expected no issues, got %v", i, issueTypes(r.Issues))
			}
		}
	})

	t.Run("duplicates flag each other", func(t *testing.T) {
		results := v.ValidateAll([]Range{
			{Start: "8.8.8.0", End: "8.8.8.10"},
			{Start: "8.8.8.0", End: "8.8.8.10"},
		})
		for i, r := range results {
			if len(r.Issues) != 1 || r.Issues[0].Type != IssueOverlappingRanges {
				t.Fatalf("Range %d: expected a single overlap issue, got %v", i, issueTypes(r.Issues))
			}
		}
		if got := results[0].Issues[0].Overlaps[0].Name; got != "Range #2" {
			t.Errorf("Expected default name Range #2, got %s", got)
		}
		if got := results[1].Issues[0].Overlaps[0].Name; got != "Range #1" {
			t.Errorf("Expected default name Range #1, got %s", got)
		}
	})

	t.Run("invalid ranges are ignored", func(t *testing.T) {
		results := v.ValidateAll([]Range{
			{Name: "A", Start: "8.8.8.0", End: "8.8.8.10"},
			{Name: "B", Start: "8.8.8.5", End: "garbage"},
		})
		if len(results[0].Issues) != 0 {
			t.Errorf("Expected no issues on valid range, got %v", issueTypes(results[0].Issues))
		}
		if got := issueTypes(results[1].Issues); !reflect.DeepEqual(got, []IssueType{IssueInvalidIP}) {
			t.Errorf("Expected only invalid_ip, got %v", got)
		}
	})

	t.Run("overlaps follow input order", func(t *testing.T) {
		results := v.ValidateAll([]Range{
			{Name: "wide", Start: "8.8.0.0", End: "8.8.255.255"},
			{Name: "first", Start: "8.8.1.0", End: "8.8.1.255"},
			{Name: "second", Start: "8.8.2.0", End: "8.8.2.255"},
		})
		overlaps := results[0].Issues[0].Overlaps
		if len(overlaps) != 2 || overlaps[0].Index != 1 || overlaps[1].Index != 2 {
			t.Errorf("Expected overlaps [1 2] in order, got %+v", overlaps)
		}
	})
}

func TestValidator_InvertedSize(t *testing.T) {
	results := Default().ValidateAll([]Range{{Start: "192.168.1.1", End: "8.8.8.8"}})
	if results[0].Size >= 0 {
		t.Errorf("Expected negative size for inverted range, got %d", results[0].Size)
	}
	if want := int64(134744072) - int64(3232235777) + 1; results[0].Size != want {
		t.Errorf("Expected size %d, got %d", want, results[0].Size)
	}
}

func TestValidator_Check(t *testing.T) {
	existing := []Range{
		{Name: "office", Start: "8.8.8.0", End: "8.8.8.255"},
		{Name: "warehouse", Start: "9.9.9.0", End: "9.9.9.255"},
	}

	result := Default().Check(Range{Name: "new", Start: "9.9.9.128", End: "9.9.10.10"}, existing)

	if result.Range.Name != "new" {
		t.Errorf("Expected candidate result, got %s", result.Range.Name)
	}
	if len(result.Issues) != 1 || result.Issues[0].Type != IssueOverlappingRanges {
		t.Fatalf("Expected overlap issue, got %v", issueTypes(result.Issues))
	}
	overlaps := result.Issues[0].Overlaps
	if len(overlaps) != 1 || overlaps[0].Index != 1 || overlaps[0].Name != "warehouse" {
		t.Errorf("Expected overlap with warehouse at index 1, got %+v", overlaps)
	}
}

func TestStatus(t *testing.T) {
	info := Issue{Severity: SeverityInfo}
	warning := Issue{Severity: SeverityWarning}
	critical := Issue{Severity: SeverityCritical}

	tests := []struct {
		name   string
		issues []Issue
		want   Severity
	}{
		{"no issues", nil, SeverityValid},
		{"info only", []Issue{info}, SeverityInfo},
		{"warning beats info", []Issue{info, warning}, SeverityWarning},
		{"critical beats everything", []Issue{warning, critical, info}, SeverityCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Status(tt.issues); got != tt.want {
				t.Errorf("Status() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestShouldNotify(t *testing.T) {
	tests := []struct {
		status Severity
		want   bool
	}{
		{SeverityValid, false},
		{SeverityInfo, false},
		{SeverityWarning, true},
		{SeverityCritical, true},
	}

	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			if got := ShouldNotify(Result{Status: tt.status}); got != tt.want {
				t.Errorf("ShouldNotify(%s) = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestSeverity_Text(t *testing.T) {
	for _, s := range []Severity{SeverityValid, SeverityInfo, SeverityWarning, SeverityCritical} {
		text, err := s.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%d) failed: %v", s, err)
		}
		var back Severity
		if err := back.UnmarshalText(text); err != nil {
			t.Fatalf("UnmarshalText(%s) failed: %v", text, err)
		}
		if back != s {
			t.Errorf("Expected %s, got %s", s, back)
		}
	}

	var s Severity
	if err := s.UnmarshalText([]byte("fatal")); err == nil {
		t.Error("Expected error for unknown severity")
	}
}

// Both endpoints are RFC 1918, so the range is neither inverted nor mixed even
// though it spans most of the public address space.
func TestValidator_PrivateEndpointsInDifferentBlocks(t *testing.T) {
	result := Default().ValidateAll([]Range{{Name: "wide", Start: "10.0.0.5", End: "192.168.1.1"}})[0]

	want := []IssueType{IssueExtremelyLargeRange, IssueContainsReserved}
	if got := issueTypes(result.Issues); !reflect.DeepEqual(got, want) {
		t.Fatalf("Expected issues %v, got %v", want, got)
	}
	if result.Status != SeverityWarning {
		t.Errorf("Expected warning status, got %s", result.Status)
	}
	if result.Size != 3064463613 {
		t.Errorf("Expected size 3064463613, got %d", result.Size)
	}
	if msg := result.Issues[1].Message; msg != "Range includes reserved IP addresses: loopback, link-local" {
		t.Errorf("Unexpected reserved message %q", msg)
	}
}
