package iprange

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// IssueType identifies a detected condition on a range
type IssueType string

const (
	IssueInvalidIP           IssueType = "invalid_ip"
	IssueInvertedRange       IssueType = "inverted_range"
	IssueExtremelyLargeRange IssueType = "extremely_large_range"
	IssueLargeRange          IssueType = "large_range"
	IssueMixedPrivatePublic  IssueType = "mixed_private_public"
	IssueContainsReserved    IssueType = "contains_reserved"
	IssuePrivateIPRange      IssueType = "private_ip_range"
	IssueOverlappingRanges   IssueType = "overlapping_ranges"
	IssueSingleIPAsRange     IssueType = "single_ip_as_range"
)

// Issue is a single classified finding for a range. Overlaps is only ever
// populated on IssueOverlappingRanges issues.
type Issue struct {
	Type     IssueType `json:"type"`
	Severity Severity  `json:"severity"`
	Message  string    `json:"message"`
	Overlaps []Overlap `json:"overlapping_ranges,omitempty"`
}

// Overlap points at another range in the same batch. ID is left empty by
// the validator; callers validating stored ranges fill it in.
type Overlap struct {
	Index int    `json:"index"`
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Start string `json:"start"`
	End   string `json:"end"`
}

func invalidIPIssue(r Range) Issue {
	return Issue{
		Type:     IssueInvalidIP,
		Severity: SeverityCritical,
		Message:  fmt.Sprintf("Invalid IPv4 address in range (start: %q, end: %q)", r.Start, r.End),
	}
}

func invertedRangeIssue(r Range) Issue {
	return Issue{
		Type:     IssueInvertedRange,
		Severity: SeverityCritical,
		Message:  fmt.Sprintf("Start IP %s is greater than end IP %s", r.startText(), r.endText()),
	}
}

func extremelyLargeRangeIssue(size, threshold int64) Issue {
	return Issue{
		Type:     IssueExtremelyLargeRange,
		Severity: SeverityWarning,
		Message:  fmt.Sprintf("Range contains %s IP addresses, more than %s",
			humanize.Comma(size), humanize.Comma(threshold)),
	}
}

func largeRangeIssue(size, threshold int64) Issue {
	return Issue{
		Type:     IssueLargeRange,
		Severity: SeverityInfo,
		Message:  fmt.Sprintf("Range contains %s IP addresses, more than %s",
			humanize.Comma(size), humanize.Comma(threshold)),
	}
}

func mixedPrivatePublicIssue() Issue {
	return Issue{
		Type:     IssueMixedPrivatePublic,
		Severity: SeverityWarning,
		Message:  "Range spans both private and public IP addresses",
	}
}

func containsReservedIssue(blocks []string) Issue {
	return Issue{
		Type:     IssueContainsReserved,
		Severity: SeverityWarning,
		Message:  "Range includes reserved IP addresses: " + strings.Join(blocks, ", "),
	}
}

func privateIPRangeIssue() Issue {
	return Issue{
		Type:     IssuePrivateIPRange,
		Severity: SeverityWarning,
		Message:  "Range contains only private (RFC 1918) IP addresses",
	}
}

func overlappingRangesIssue(overlaps []Overlap) Issue {
	return Issue{
		Type:     IssueOverlappingRanges,
		Severity: SeverityWarning,
		Message:  fmt.Sprintf("Range overlaps with %d other range(s)", len(overlaps)),
		Overlaps: overlaps,
	}
}

func singleIPAsRangeIssue(r Range) Issue {
	return Issue{
		Type:     IssueSingleIPAsRange,
		Severity: SeverityInfo,
		Message:  fmt.Sprintf("Single IP address %s configured as a range", r.startText()),
	}
}
