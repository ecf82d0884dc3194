package mcp

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/martinsuchenak/geotoolkit/internal/inventory"
	"github.com/martinsuchenak/geotoolkit/internal/iprange"
	"github.com/martinsuchenak/geotoolkit/internal/log"
	"github.com/martinsuchenak/geotoolkit/internal/model"
	"github.com/martinsuchenak/geotoolkit/internal/storage"
	"github.com/paularlott/mcp"
)

const serverVersion = "1.0.0"

// Server wraps the MCP server with the range inventory
type Server struct {
	mcpServer   *mcp.Server
	service     *inventory.Service
	bearerToken string
}

// NewServer creates a new MCP server for range validation and inventory
func NewServer(service *inventory.Service, bearerToken string) *Server {
	s := &Server{
		mcpServer:   mcp.NewServer("geotoolkit", serverVersion),
		service:     service,
		bearerToken: bearerToken,
	}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	s.mcpServer.RegisterTool(
		mcp.NewTool("ip_range_validate", "Validate a batch of IPv4 ranges: per-range issues, overlaps within the batch, a status per range and a summary. Nothing is stored.",
			mcp.ObjectArray("ranges", "IPv4 ranges to validate",
				mcp.String("name", "Range name"),
				mcp.String("description", "Range description"),
				mcp.String("start", "First address, dotted quad", mcp.Required()),
				mcp.String("end", "Last address, dotted quad", mcp.Required()),
			),
			mcp.String("format", "Response format: text (default) or json"),
		),
		s.handleValidate,
	)

	s.mcpServer.RegisterTool(
		mcp.NewTool("ip_range_list", "List known IPv4 ranges, optionally filtered by name or tags",
			mcp.String("name", "Filter by name (partial match)"),
			mcp.StringArray("tags", "Filter by tags (returns ranges matching any tag)"),
		),
		s.handleList,
	)

	s.mcpServer.RegisterTool(
		mcp.NewTool("ip_range_get", "Get a known IPv4 range by ID or name",
			mcp.String("id", "Range ID or name", mcp.Required()),
		),
		s.handleGet,
	)

	s.mcpServer.RegisterTool(
		mcp.NewTool("ip_range_save", "Create a known IPv4 range or update an existing one. The range is validated against the inventory first; ranges with critical issues are refused unless force is \"true\".",
			mcp.String("id", "Range ID (if updating an existing range)"),
			mcp.String("name", "Range name", mcp.Required()),
			mcp.String("description", "Range description"),
			mcp.String("start_ip", "First address, dotted quad", mcp.Required()),
			mcp.String("end_ip", "Last address, dotted quad", mcp.Required()),
			mcp.StringArray("tags", "Tags for categorization"),
			mcp.String("force", "Set to \"true\" to store a range with critical issues"),
		),
		s.handleSave,
	)

	s.mcpServer.RegisterTool(
		mcp.NewTool("ip_range_delete", "Delete a known IPv4 range",
			mcp.String("id", "Range ID", mcp.Required()),
		),
		s.handleDelete,
	)

	s.mcpServer.RegisterTool(
		mcp.NewTool("ip_range_audit", "Validate every known IPv4 range as one batch and report issues"),
		s.handleAudit,
	)
}

// HandleRequest handles MCP HTTP requests with optional bearer token authentication
func (s *Server) HandleRequest(w http.ResponseWriter, r *http.Request) {
	log.Debug("MCP request received", "method", r.Method, "path", r.URL.Path, "remote_addr", r.RemoteAddr)

	if s.bearerToken != "" {
		auth := r.Header.Get("Authorization")
		if auth == "" {
			log.Warn("MCP request missing Authorization header", "remote_addr", r.RemoteAddr)
			http.Error(w, "Unauthorized: Missing Authorization header", http.StatusUnauthorized)
			return
		}
		token, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok {
			log.Warn("MCP request invalid Authorization format", "remote_addr", r.RemoteAddr)
			http.Error(w, "Unauthorized: Invalid Authorization format", http.StatusUnauthorized)
			return
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.bearerToken)) != 1 {
			log.Warn("MCP request invalid token", "remote_addr", r.RemoteAddr)
			http.Error(w, "Unauthorized: Invalid token", http.StatusUnauthorized)
			return
		}
	}

	s.mcpServer.HandleRequest(w, r)
}

func (s *Server) handleValidate(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	objects, err := req.ObjectSlice("ranges")
	if err != nil {
		return nil, mcp.NewToolErrorInvalidParams("ranges is required: " + err.Error())
	}

	ranges, err := parseRanges(objects)
	if err != nil {
		return nil, mcp.NewToolErrorInvalidParams(err.Error())
	}

	report := s.service.Validate(ranges)
	log.Info("MCP ranges validated", "count", len(ranges), "issues", report.Summary.TotalIssues)

	if strings.EqualFold(req.StringOr("format", "text"), "json") {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return nil, mcp.NewToolErrorInternal("failed to encode report: " + err.Error())
		}
		return mcp.NewToolResponseText(string(data)), nil
	}

	var result strings.Builder
	result.WriteString(formatSummary(report.Summary))
	result.WriteString("\n")
	for i, res := range report.Results {
		result.WriteString(formatResult(res.Range.DisplayName(i), res))
		result.WriteString("\n")
	}
	return mcp.NewToolResponseText(result.String()), nil
}

func (s *Server) handleList(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	name := req.StringOr("name", "")
	tags, _ := req.StringSlice("tags")

	ranges, err := s.service.List(&model.KnownRangeFilter{Name: name, Tags: tags})
	if err != nil {
		log.Error("MCP range list failed", "error", err)
		return nil, mcp.NewToolErrorInternal("failed to list ranges: " + err.Error())
	}

	if len(ranges) == 0 {
		return mcp.NewToolResponseText("No IP ranges found"), nil
	}

	var result strings.Builder
	fmt.Fprintf(&result, "Found %d IP ranges:\n\n", len(ranges))
	for i := range ranges {
		result.WriteString(formatKnownRange(&ranges[i]))
		result.WriteString("\n")
	}
	return mcp.NewToolResponseText(result.String()), nil
}

func (s *Server) handleGet(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	id, err := req.String("id")
	if err != nil {
		return nil, mcp.NewToolErrorInvalidParams("id is required: " + err.Error())
	}

	known, err := s.service.Get(id)
	if err != nil {
		if errors.Is(err, storage.ErrRangeNotFound) {
			return nil, mcp.NewToolErrorInvalidParams("ip range not found: " + id)
		}
		return nil, mcp.NewToolErrorInternal("failed to get range: " + err.Error())
	}

	return mcp.NewToolResponseText(formatKnownRange(known)), nil
}

func (s *Server) handleSave(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	name, err := req.String("name")
	if err != nil {
		return nil, mcp.NewToolErrorInvalidParams("name is required: " + err.Error())
	}
	startIP, err := req.String("start_ip")
	if err != nil {
		return nil, mcp.NewToolErrorInvalidParams("start_ip is required: " + err.Error())
	}
	endIP, err := req.String("end_ip")
	if err != nil {
		return nil, mcp.NewToolErrorInvalidParams("end_ip is required: " + err.Error())
	}
	tags, _ := req.StringSlice("tags")
	force, _ := strconv.ParseBool(req.StringOr("force", "false"))

	known := &model.KnownRange{
		ID:          req.StringOr("id", ""),
		Name:        name,
		Description: req.StringOr("description", ""),
		StartIP:     startIP,
		EndIP:       endIP,
		Tags:        tags,
	}

	isUpdate := false
	if known.ID != "" {
		if _, err := s.service.Get(known.ID); err == nil {
			isUpdate = true
		}
	}

	var result iprange.Result
	if isUpdate {
		result, err = s.service.Update(known, force)
	} else {
		result, err = s.service.Create(known, force)
	}
	if err != nil {
		if errors.Is(err, inventory.ErrRejected) {
			return mcp.NewToolResponseText("Range not saved, it has critical issues:\n\n" +
				formatResult(name, result)), nil
		}
		log.Error("MCP range save failed", "error", err, "name", name)
		return nil, mcp.NewToolErrorInternal("failed to save range: " + err.Error())
	}

	action := "created"
	if isUpdate {
		action = "updated"
	}
	log.Info("MCP range saved", "action", action, "id", known.ID, "name", known.Name)

	return mcp.NewToolResponseText(fmt.Sprintf("Range %s: %s (ID: %s)\n\n%s",
		action, known.Name, known.ID, formatResult(known.Name, result))), nil
}

func (s *Server) handleDelete(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	id, err := req.String("id")
	if err != nil {
		return nil, mcp.NewToolErrorInvalidParams("id is required: " + err.Error())
	}

	if err := s.service.Delete(id); err != nil {
		if errors.Is(err, storage.ErrRangeNotFound) {
			return nil, mcp.NewToolErrorInvalidParams("ip range not found: " + id)
		}
		log.Error("MCP range deletion failed", "error", err, "id", id)
		return nil, mcp.NewToolErrorInternal("failed to delete range: " + err.Error())
	}

	log.Info("MCP range deleted", "id", id)
	return mcp.NewToolResponseText("IP range deleted successfully"), nil
}

func (s *Server) handleAudit(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	report, err := s.service.Audit()
	if err != nil {
		log.Error("MCP audit failed", "error", err)
		return nil, mcp.NewToolErrorInternal("failed to audit ranges: " + err.Error())
	}

	var result strings.Builder
	result.WriteString(formatSummary(report.Summary))

	notable := report.Notable()
	if len(notable) == 0 {
		result.WriteString("\nNo ranges need attention.\n")
		return mcp.NewToolResponseText(result.String()), nil
	}

	fmt.Fprintf(&result, "\n%d ranges need attention:\n\n", len(notable))
	for _, e := range notable {
		fmt.Fprintf(&result, "ID: %s\n", e.ID)
		result.WriteString(formatResult(e.Range.Name, e.Result))
		result.WriteString("\n")
	}
	return mcp.NewToolResponseText(result.String()), nil
}

// GetHTTPHandler returns the HTTP handler for the MCP server
func (s *Server) GetHTTPHandler() http.HandlerFunc {
	return s.HandleRequest
}

// LogStartup logs MCP server startup information
func (s *Server) LogStartup() {
	log.Info("MCP Server initialized", "version", serverVersion)
	if s.bearerToken != "" {
		log.Info("MCP authentication enabled", "type", "Bearer token")
	} else {
		log.Info("MCP authentication disabled")
	}
	tools := s.mcpServer.ListTools()
	log.Info("MCP tools registered", "count", len(tools))
	for _, tool := range tools {
		log.Debug("MCP tool registered", "name", tool.Name, "description", tool.Description)
	}
}

// parseRanges converts tool arguments to validator input
func parseRanges(objects []map[string]any) ([]iprange.Range, error) {
	ranges := make([]iprange.Range, 0, len(objects))
	for i, obj := range objects {
		start, ok := obj["start"].(string)
		if !ok {
			return nil, fmt.Errorf("ranges[%d]: missing start", i)
		}
		end, ok := obj["end"].(string)
		if !ok {
			return nil, fmt.Errorf("ranges[%d]: missing end", i)
		}
		r := iprange.Range{Start: start, End: end}
		r.Name, _ = obj["name"].(string)
		r.Description, _ = obj["description"].(string)
		ranges = append(ranges, r)
	}
	return ranges, nil
}

func formatSummary(sum iprange.Summary) string {
	var result strings.Builder
	fmt.Fprintf(&result, "Ranges: %d (%s addresses)\n", sum.TotalRanges, humanize.Comma(sum.TotalIPAddresses))
	fmt.Fprintf(&result, "Valid: %d, Info: %d, Warnings: %d, Errors: %d\n",
		sum.ValidRanges, sum.RangesWithInfo, sum.RangesWithWarnings, sum.RangesWithErrors)
	fmt.Fprintf(&result, "Issues: %d\n", sum.TotalIssues)
	return result.String()
}

func formatResult(name string, res iprange.Result) string {
	var result strings.Builder
	fmt.Fprintf(&result, "%s (%s - %s): %s\n", name, res.Range.Start, res.Range.End, res.Status)
	for _, issue := range res.Issues {
		fmt.Fprintf(&result, "  - [%s] %s: %s\n", issue.Severity, issue.Type, issue.Message)
		for _, o := range issue.Overlaps {
			fmt.Fprintf(&result, "      overlaps %s (%s - %s)\n", o.Name, o.Start, o.End)
		}
	}
	return result.String()
}

func formatKnownRange(k *model.KnownRange) string {
	var result strings.Builder
	fmt.Fprintf(&result, "Name: %s\n", k.Name)
	fmt.Fprintf(&result, "ID: %s\n", k.ID)
	fmt.Fprintf(&result, "Range: %s - %s\n", k.StartIP, k.EndIP)
	if k.Description != "" {
		fmt.Fprintf(&result, "Description: %s\n", k.Description)
	}
	if len(k.Tags) > 0 {
		fmt.Fprintf(&result, "Tags: %s\n", strings.Join(k.Tags, ", "))
	}
	return result.String()
}
