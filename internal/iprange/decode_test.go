package iprange

import (
	"errors"
	"strings"
	"testing"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []Range
		wantErr error
	}{
		{
			name:  "bare array",
			input: `[{"name": "HQ", "start": "8.8.8.0", "end": "8.8.8.255", "description": "head office"}]`,
			want:  []Range{{Name: "HQ", Description: "head office", Start: "8.8.8.0", End: "8.8.8.255"}},
		},
		{
			name:  "ip_ranges envelope with start_ip aliases",
			input: `{"ip_ranges": [{"name": "DC", "start_ip": "10.0.0.1", "end_ip": "10.0.0.9"}]}`,
			want:  []Range{{Name: "DC", Start: "10.0.0.1", End: "10.0.0.9"}},
		},
		{
			name:  "ranges envelope",
			input: `{"ranges": [{"start": "1.1.1.1", "end": "1.1.1.1"}]}`,
			want:  []Range{{Start: "1.1.1.1", End: "1.1.1.1"}},
		},
		{
			name:  "malformed addresses still decode",
			input: `[{"start": "not-an-ip", "end": "1.1.1.1"}]`,
			want:  []Range{{Start: "not-an-ip", End: "1.1.1.1"}},
		},
		{
			name:  "empty array",
			input: `[]`,
			want:  []Range{},
		},
		{
			name:    "missing end",
			input:   `[{"start": "1.1.1.1"}]`,
			wantErr: ErrMissingField,
		},
		{
			name:    "missing start",
			input:   `{"ip_ranges": [{"end": "1.1.1.1"}]}`,
			wantErr: ErrMissingField,
		},
		{
			name:    "object without ranges",
			input:   `{"foo": []}`,
			wantErr: ErrInvalidFormat,
		},
		{
			name:    "scalar",
			input:   `"1.1.1.1"`,
			wantErr: ErrInvalidFormat,
		},
		{
			name:    "empty input",
			input:   "  ",
			wantErr: ErrInvalidFormat,
		},
		{
			name:    "broken json",
			input:   `[{"start": }]`,
			wantErr: ErrInvalidFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(strings.NewReader(tt.input))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Expected error %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Expected %d ranges, got %d", len(tt.want), len(got))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Range %d: expected %+v, got %+v", i, tt.want[i], got[i])
				}
			}
		})
	}
}

func TestDecode_ErrorNamesRecord(t *testing.T) {
	_, err := Decode(strings.NewReader(`[{"start": "1.1.1.1", "end": "1.1.1.2"}, {"start": "2.2.2.2"}]`))
	if err == nil || !strings.Contains(err.Error(), "record 1") {
		t.Errorf("Expected error naming record 1, got %v", err)
	}
}
