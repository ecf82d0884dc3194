package iprange

import "fmt"

// Severity orders issue levels. The zero value is used as the status of a
// range without issues and renders as "valid".
type Severity uint8

const (
	SeverityValid Severity = iota
	SeverityInfo
	SeverityWarning
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityCritical:
		return "critical"
	default:
		return "valid"
	}
}

// MarshalText implements encoding.TextMarshaler
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *Severity) UnmarshalText(text []byte) error {
	switch string(text) {
	case "valid", "":
		*s = SeverityValid
	case "info":
		*s = SeverityInfo
	case "warning":
		*s = SeverityWarning
	case "critical":
		*s = SeverityCritical
	default:
		return fmt.Errorf("unknown severity %q", string(text))
	}
	return nil
}

// Status returns the highest severity among issues, or SeverityValid when
// there are none.
func Status(issues []Issue) Severity {
	status := SeverityValid
	for _, issue := range issues {
		if issue.Severity > status {
			status = issue.Severity
		}
	}
	return status
}

// ShouldNotify reports whether a result is worth alerting on.
func ShouldNotify(result Result) bool {
	return result.Status >= SeverityWarning
}
