package iprange

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

var (
	ErrMissingField  = errors.New("missing required field")
	ErrInvalidFormat = errors.New("invalid range file format")
)

// record accepts both the short and the *_ip field names
type record struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Start       *string `json:"start"`
	End         *string `json:"end"`
	StartIP     *string `json:"start_ip"`
	EndIP       *string `json:"end_ip"`
}

type envelope struct {
	IPRanges []record `json:"ip_ranges"`
	Ranges   []record `json:"ranges"`
}

// Decode reads a range file: either a JSON array of records or an object
// with an "ip_ranges" (or "ranges") array. Records without a start or end
// field are rejected.
func Decode(r io.Reader) ([]Range, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading range file: %w", err)
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrInvalidFormat)
	}

	var records []record
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidFormat, err)
		}
	case '{':
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidFormat, err)
		}
		records = env.IPRanges
		if records == nil {
			records = env.Ranges
		}
		if records == nil {
			return nil, fmt.Errorf("%w: expected an \"ip_ranges\" array", ErrInvalidFormat)
		}
	default:
		return nil, fmt.Errorf("%w: expected a JSON array or object", ErrInvalidFormat)
	}

	ranges := make([]Range, 0, len(records))
	for i, rec := range records {
		start := firstSet(rec.Start, rec.StartIP)
		end := firstSet(rec.End, rec.EndIP)
		if start == nil {
			return nil, fmt.Errorf("record %d: %w: start", i, ErrMissingField)
		}
		if end == nil {
			return nil, fmt.Errorf("record %d: %w: end", i, ErrMissingField)
		}
		ranges = append(ranges, Range{
			Name:        rec.Name,
			Description: rec.Description,
			Start:       *start,
			End:         *end,
		})
	}

	return ranges, nil
}

func firstSet(values ...*string) *string {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
