package storage

import (
	"encoding/json"
	"net/netip"
	"slices"
	"strings"
)

// encodeTags stores tags as a JSON array in a single column
func encodeTags(tags []string) (string, error) {
	if len(tags) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeTags(s string) ([]string, error) {
	if s == "" {
		return nil, nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(s), &tags); err != nil {
		return nil, err
	}
	if len(tags) == 0 {
		return nil, nil
	}
	return tags, nil
}

// compareStart orders start addresses numerically. Unparsable addresses sort
// after every valid one, then by text.
func compareStart(a, b string) int {
	aa, errA := netip.ParseAddr(strings.TrimSpace(a))
	bb, errB := netip.ParseAddr(strings.TrimSpace(b))
	switch {
	case errA == nil && errB == nil:
		return aa.Compare(bb)
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	default:
		return strings.Compare(a, b)
	}
}

func hasAnyTag(tags, want []string) bool {
	return slices.ContainsFunc(want, func(w string) bool {
		return slices.ContainsFunc(tags, func(t string) bool {
			return strings.EqualFold(t, w)
		})
	})
}
