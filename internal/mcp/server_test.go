package mcp

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/martinsuchenak/geotoolkit/internal/inventory"
	"github.com/martinsuchenak/geotoolkit/internal/iprange"
	"github.com/martinsuchenak/geotoolkit/internal/model"
	"github.com/martinsuchenak/geotoolkit/internal/storage"
)

func setupServer(t *testing.T, token string) *Server {
	t.Helper()
	store, err := storage.NewSQLiteStorage(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewServer(inventory.NewService(store, nil), token)
}

func TestServer_ToolsRegistered(t *testing.T) {
	s := setupServer(t, "")

	want := map[string]bool{
		"ip_range_validate": false,
		"ip_range_list":     false,
		"ip_range_get":      false,
		"ip_range_save":     false,
		"ip_range_delete":   false,
		"ip_range_audit":    false,
	}
	for _, tool := range s.mcpServer.ListTools() {
		if _, ok := want[tool.Name]; ok {
			want[tool.Name] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("Expected tool %s to be registered", name)
		}
	}
}

func TestServer_HandleRequest_Auth(t *testing.T) {
	s := setupServer(t, "mcp-secret")

	tests := []struct {
		name       string
		authHeader string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic mcp-secret"},
		{"wrong token", "Bearer nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/mcp", strings.NewReader(`{}`))
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			w := httptest.NewRecorder()

			s.HandleRequest(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Errorf("Expected status 401, got %d", w.Code)
			}
		})
	}
}

func TestParseRanges(t *testing.T) {
	ranges, err := parseRanges([]map[string]any{
		{"name": "A", "start": "1.1.1.1", "end": "1.1.1.9", "description": "first"},
		{"start": "2.2.2.2", "end": "2.2.2.2"},
	})
	if err != nil {
		t.Fatalf("parseRanges() error = %v", err)
	}
	if len(ranges) != 2 {
		t.Fatalf("Expected 2 ranges, got %d", len(ranges))
	}
	if ranges[0].Name != "A" || ranges[0].Description != "first" || ranges[1].Name != "" {
		t.Errorf("Unexpected ranges: %+v", ranges)
	}

	if _, err := parseRanges([]map[string]any{{"start": "1.1.1.1"}}); err == nil {
		t.Error("Expected error for missing end")
	}
	if _, err := parseRanges([]map[string]any{{"start": 5, "end": "1.1.1.1"}}); err == nil {
		t.Error("Expected error for non-string start")
	}
}

func TestFormatResult(t *testing.T) {
	results := iprange.Default().ValidateAll([]iprange.Range{
		{Name: "A", Start: "8.8.8.0", End: "8.8.8.255"},
		{Name: "B", Start: "8.8.8.128", End: "8.8.9.0"},
	})

	out := formatResult("A", results[0])

	for _, want := range []string{"A (8.8.8.0 - 8.8.8.255): warning", "[warning] overlapping_ranges", "overlaps B (8.8.8.128 - 8.8.9.0)"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output:\n%s", want, out)
		}
	}
}

func TestFormatSummary(t *testing.T) {
	sum := iprange.Summary{
		TotalRanges:      2,
		TotalIPAddresses: 16777217,
		ValidRanges:      1,
		RangesWithErrors: 1,
		TotalIssues:      1,
	}

	out := formatSummary(sum)

	if !strings.Contains(out, "16,777,217 addresses") {
		t.Errorf("Expected comma-grouped address count, got:\n%s", out)
	}
	if !strings.Contains(out, "Errors: 1") {
		t.Errorf("Expected error count, got:\n%s", out)
	}
}

func TestFormatKnownRange(t *testing.T) {
	out := formatKnownRange(&model.KnownRange{
		ID: "r1", Name: "Office", StartIP: "1.1.1.0", EndIP: "1.1.1.255", Tags: []string{"a", "b"},
	})
	if !strings.Contains(out, "Range: 1.1.1.0 - 1.1.1.255") || !strings.Contains(out, "Tags: a, b") {
		t.Errorf("Unexpected output:\n%s", out)
	}
	if strings.Contains(out, "Description") {
		t.Errorf("Empty description should be omitted:\n%s", out)
	}
}
