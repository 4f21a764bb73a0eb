package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	pherrors "github.com/a3tai/pdf-placeholder/internal/errors"
	"github.com/a3tai/pdf-placeholder/internal/fontkit"
	"github.com/a3tai/pdf-placeholder/internal/geometry"
	"github.com/a3tai/pdf-placeholder/internal/mutator"
	"github.com/a3tai/pdf-placeholder/internal/placeholder"
	"github.com/a3tai/pdf-placeholder/internal/session"
	"github.com/a3tai/pdf-placeholder/internal/textfit"
)

// jsonResult renders a one-line summary followed by v as indented JSON
func jsonResult(summary string, v any) *mcp.CallToolResult {
	body, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err))
	}
	return mcp.NewToolResultText(summary + "\n\n" + string(body))
}

func (s *Server) lookup(request mcp.CallToolRequest) (*session.Session, *mcp.CallToolResult) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return nil, mcp.NewToolResultError(err.Error())
	}
	sess, err := s.sessions.Get(id)
	if err != nil {
		return nil, mcp.NewToolResultError(err.Error())
	}
	return sess, nil
}

func optionalFloat(request mcp.CallToolRequest, key string) *float64 {
	if _, ok := request.GetArguments()[key]; !ok {
		return nil
	}
	v := request.GetFloat(key, 0)
	return &v
}

// parseValues reads the "values" argument. Keys may be written as "3" or "(3)".
func parseValues(request mcp.CallToolRequest) (map[int]string, error) {
	raw, ok := request.GetArguments()["values"]
	if !ok {
		return nil, fmt.Errorf("required argument \"values\" not found")
	}

	entries := make(map[string]any)
	switch v := raw.(type) {
	case map[string]any:
		entries = v
	case map[string]string:
		for k, text := range v {
			entries[k] = text
		}
	default:
		return nil, fmt.Errorf("argument \"values\" must be an object")
	}

	values := make(map[int]string, len(entries))
	for key, value := range entries {
		index, err := strconv.Atoi(strings.Trim(strings.TrimSpace(key), "()"))
		if err != nil || index < 1 {
			return nil, fmt.Errorf("invalid position index %q", key)
		}
		switch text := value.(type) {
		case string:
			values[index] = text
		case float64:
			values[index] = strconv.FormatFloat(text, 'f', -1, 64)
		case nil:
			return nil, fmt.Errorf("value for position index %d is null", index)
		default:
			values[index] = fmt.Sprint(text)
		}
	}
	return values, nil
}

func (s *Server) handleOpenDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	sess, err := s.sessions.Open(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	surfaces := sess.Surfaces()
	return jsonResult(
		fmt.Sprintf("Opened %s (%d pages) as session %s", sess.Name(), len(surfaces), sess.ID()),
		map[string]any{
			"session_id": sess.ID(),
			"name":       sess.Name(),
			"surfaces":   surfaces,
		},
	), nil
}

func (s *Server) handleCloseDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.sessions.Close(id); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.releasePreviews(id)
	return mcp.NewToolResultText(fmt.Sprintf("Closed session %s", id)), nil
}

func (s *Server) handleUpdateSurface(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, res := s.lookup(request)
	if res != nil {
		return res, nil
	}
	page, err := request.RequireInt("page")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if !request.GetBool("mounted", true) {
		sess.UnmountSurface(page)
		return mcp.NewToolResultText(fmt.Sprintf("Page %d unmounted", page)), nil
	}

	left := request.GetFloat("left", 0)
	top := request.GetFloat("top", 0)
	scale := request.GetFloat("display_scale", 1)
	if err := sess.UpdateSurface(page, left, top, scale); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Page %d mounted at (%g, %g) scale %g", page, left, top, scale)), nil
}

func (s *Server) handleSetPlacementMode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, res := s.lookup(request)
	if res != nil {
		return res, nil
	}
	active, err := request.RequireBool("active")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sess.SetPlacementMode(active)
	if active {
		return mcp.NewToolResultText("Placement mode on"), nil
	}
	return mcp.NewToolResultText("Placement mode off"), nil
}

func (s *Server) handlePointerEvent(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, res := s.lookup(request)
	if res != nil {
		return res, nil
	}
	kind, err := request.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	x, err := request.RequireFloat("x")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	y, err := request.RequireFloat("y")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	screen := geometry.Point{X: x, Y: y}
	scroll := geometry.Point{X: request.GetFloat("scroll_x", 0), Y: request.GetFloat("scroll_y", 0)}

	var state session.SelectionView
	switch kind {
	case "down":
		page, perr := request.RequireInt("page")
		if perr != nil {
			return mcp.NewToolResultError(perr.Error()), nil
		}
		st, derr := sess.PointerDown(page, screen, scroll)
		state, err = session.View(st), derr
	case "move":
		st, merr := sess.PointerMove(screen, scroll)
		state, err = session.View(st), merr
	case "up":
		st, uerr := sess.PointerUp(screen, scroll)
		state, err = session.View(st), uerr
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown pointer event type %q", kind)), nil
	}

	response := map[string]any{"selection": state}
	if err != nil {
		// a selection below the minimum size is a warning, not a failed call
		if pherrors.TypeOf(err) != pherrors.ErrorTypeRegionTooSmall {
			return mcp.NewToolResultError(err.Error()), nil
		}
		response["warning"] = pherrors.As(err)
	}
	return jsonResult(fmt.Sprintf("Selection is %s", state.Phase), response), nil
}

func (s *Server) handleAssignIndex(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, res := s.lookup(request)
	if res != nil {
		return res, nil
	}
	index, err := request.RequireInt("position_index")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	region, err := sess.AssignIndex(index)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(fmt.Sprintf("Created region %d on page %d", region.PositionIndex, region.Page), region), nil
}

func (s *Server) handleCancelSelection(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, res := s.lookup(request)
	if res != nil {
		return res, nil
	}
	sess.CancelSelection()
	return mcp.NewToolResultText("Selection cancelled"), nil
}

func (s *Server) handleListRegions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, res := s.lookup(request)
	if res != nil {
		return res, nil
	}

	var regions []placeholder.Region
	if _, ok := request.GetArguments()["page"]; ok {
		regions = sess.RegionsOnPage(request.GetInt("page", 0))
	} else {
		regions = sess.Regions()
	}
	if regions == nil {
		regions = []placeholder.Region{}
	}
	return jsonResult(fmt.Sprintf("%d region(s)", len(regions)), regions), nil
}

func (s *Server) handleUpdateRegion(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, res := s.lookup(request)
	if res != nil {
		return res, nil
	}
	id, err := request.RequireString("region_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	patch := placeholder.Patch{
		X:      optionalFloat(request, "x"),
		Y:      optionalFloat(request, "y"),
		Width:  optionalFloat(request, "width"),
		Height: optionalFloat(request, "height"),
	}
	if _, ok := request.GetArguments()["position_index"]; ok {
		index := request.GetInt("position_index", 0)
		patch.PositionIndex = &index
	}

	region, err := sess.UpdateRegion(id, patch)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(fmt.Sprintf("Updated region %d", region.PositionIndex), region), nil
}

func (s *Server) handleRemoveRegion(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, res := s.lookup(request)
	if res != nil {
		return res, nil
	}
	id, err := request.RequireString("region_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sess.RemoveRegion(id)
	return mcp.NewToolResultText(fmt.Sprintf("Removed region %s", id)), nil
}

func (s *Server) handleDetectPlaceholders(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, res := s.lookup(request)
	if res != nil {
		return res, nil
	}
	report, err := sess.Detect()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(
		fmt.Sprintf("Detected %d placeholder(s), skipped %d", len(report.Added), len(report.Skipped)),
		report,
	), nil
}

// planView is the per-region part of plan and fill responses
type planView struct {
	Page          int              `json:"page"`
	PositionIndex int              `json:"position_index"`
	Strategy      textfit.Strategy `json:"strategy"`
	RenderedText  string           `json:"rendered_text"`
	FontSize      float64          `json:"font_size"`
	Fits          bool             `json:"fits"`
	Warning       string           `json:"warning,omitempty"`
}

func planViews(result *mutator.Result) []planView {
	views := make([]planView, 0, len(result.Applied))
	for _, a := range result.Applied {
		views = append(views, planView{
			Page:          a.Page,
			PositionIndex: a.PositionIndex,
			Strategy:      a.Plan.Strategy,
			RenderedText:  a.Plan.RenderedText,
			FontSize:      a.Plan.EffectiveFontSize,
			Fits:          a.Plan.FitsWithinRegion,
			Warning:       a.Plan.Warning,
		})
	}
	sort.Slice(views, func(i, j int) bool { return views[i].PositionIndex < views[j].PositionIndex })
	return views
}

func warningsOrEmpty(w []*pherrors.Error) []*pherrors.Error {
	if w == nil {
		return []*pherrors.Error{}
	}
	return w
}

func (s *Server) handlePlanReplacement(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, res := s.lookup(request)
	if res != nil {
		return res, nil
	}
	values, err := parseValues(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := sess.Plan(ctx, values)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(
		fmt.Sprintf("Planned %d replacement(s) with %d warning(s)", len(result.Applied), len(result.Warnings)),
		map[string]any{
			"font_kind": result.FontKind,
			"plans":     planViews(result),
			"warnings":  warningsOrEmpty(result.Warnings),
		},
	), nil
}

func (s *Server) handleFillDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, res := s.lookup(request)
	if res != nil {
		return res, nil
	}
	values, err := parseValues(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := sess.Fill(ctx, values)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	response := map[string]any{
		"font_kind": result.FontKind,
		"plans":     planViews(result),
		"warnings":  warningsOrEmpty(result.Warnings),
	}

	var summary string
	if request.GetBool("preview", false) {
		preview, err := s.exporter.CreatePreviewHandle(result.Bytes)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		s.rememberPreview(sess.ID(), preview)
		response["preview"] = preview
		summary = fmt.Sprintf("Preview ready at %s", preview.URL)
	} else {
		filename := request.GetString("filename", "")
		if filename == "" {
			filename = defaultFilename(sess.Name())
		}
		file, err := s.exporter.ExportAsFile(result.Bytes, filename)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		response["file"] = file
		summary = fmt.Sprintf("Exported %s (%d bytes)", file.Path, file.Size)
	}

	summary += fmt.Sprintf(", %d field(s) filled, %d warning(s)", len(result.Applied), len(result.Warnings))
	return jsonResult(summary, response), nil
}

func defaultFilename(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	if base == "" {
		base = "document"
	}
	return base + "-filled.pdf"
}

// ServerInfo is the pdf_server_info response
type ServerInfo struct {
	ServerName        string         `json:"server_name"`
	Version           string         `json:"version"`
	DocumentDirectory string         `json:"document_directory"`
	OutputDirectory   string         `json:"output_directory"`
	MaxFileSize       int64          `json:"max_file_size"`
	MinRegionWidth    float64        `json:"min_region_width"`
	MinRegionHeight   float64        `json:"min_region_height"`
	Font              FontInfo       `json:"font"`
	Sessions          []session.Info `json:"sessions"`
	Tools             []ToolInfo     `json:"tools"`
}

// FontInfo describes the configured embedded font
type FontInfo struct {
	Source string         `json:"source"`
	Loaded bool           `json:"loaded"`
	Kinds  []fontkit.Kind `json:"capabilities"`
}

// ToolInfo names one registered tool
type ToolInfo struct {
	Name    string `json:"name"`
	Summary string `json:"summary"`
}

func (s *Server) info() ServerInfo {
	font := FontInfo{
		Source: "bundled Go Regular",
		Kinds:  []fontkit.Kind{fontkit.KindAdvanced, fontkit.KindBasic, fontkit.KindBuiltin},
	}
	switch {
	case s.config.FontPath != "":
		font.Source = s.config.FontPath
	case s.config.FontURL != "":
		font.Source = s.config.FontURL
	}
	if s.fonts != nil {
		font.Loaded = s.fonts.Loaded()
	}

	tools := make([]ToolInfo, 0, len(s.tools))
	for _, tool := range s.tools {
		summary, _, _ := strings.Cut(tool.Description, "\n")
		tools = append(tools, ToolInfo{Name: tool.Name, Summary: summary})
	}

	return ServerInfo{
		ServerName:        s.config.ServerName,
		Version:           s.config.Version,
		DocumentDirectory: s.sessions.Directory(),
		OutputDirectory:   s.exporter.OutputDir(),
		MaxFileSize:       s.config.MaxFileSize,
		MinRegionWidth:    s.config.MinRegionWidth,
		MinRegionHeight:   s.config.MinRegionHeight,
		Font:              font,
		Sessions:          s.sessions.List(),
		Tools:             tools,
	}
}

func (s *Server) handleServerInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	info := s.info()
	return jsonResult(fmt.Sprintf("%s v%s, %d open session(s)", info.ServerName, info.Version, len(info.Sessions)), info), nil
}
