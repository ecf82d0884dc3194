package iprange

// Summary aggregates a batch of results
type Summary struct {
	TotalRanges        int               `json:"total_ranges"`
	TotalIPAddresses   int64             `json:"total_ip_addresses"`
	ValidRanges        int               `json:"valid_ranges"`
	RangesWithInfo     int               `json:"ranges_with_info"`
	RangesWithWarnings int               `json:"ranges_with_warnings"`
	RangesWithErrors   int               `json:"ranges_with_errors"`
	TotalIssues        int               `json:"total_issues"`
	IssueBreakdown     map[IssueType]int `json:"issue_breakdown"`
}

// Summarize tallies results in a single pass. Range sizes are summed as
// computed, so an inverted range lowers TotalIPAddresses.
func Summarize(results []Result) Summary {
	s := Summary{
		TotalRanges:    len(results),
		IssueBreakdown: make(map[IssueType]int),
	}

	for _, r := range results {
		s.TotalIPAddresses += r.Size

		switch r.Status {
		case SeverityCritical:
			s.RangesWithErrors++
		case SeverityWarning:
			s.RangesWithWarnings++
		case SeverityInfo:
			s.RangesWithInfo++
		default:
			s.ValidRanges++
		}

		for _, issue := range r.Issues {
			s.IssueBreakdown[issue.Type]++
			s.TotalIssues++
		}
	}

	return s
}
