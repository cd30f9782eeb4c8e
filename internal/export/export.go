package export

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sensing-garden/backend/internal/domain"
	"github.com/sensing-garden/backend/internal/pkg/logger"
)

// Querier is the record source the exporter paginates over.
type Querier interface {
	Query(ctx context.Context, table domain.TableType, p domain.QueryParams) (domain.QueryPage, error)
}

// Limits bound one export run. PageLimit is the per-call item cap handed to
// the Querier; MaxPages caps the pagination loop so a token that never
// drains cannot spin forever.
type Limits struct {
	PageLimit int
	MaxPages  int
}

// DefaultLimits matches the platform defaults: 5000 items per page, 50
// pages per export.
var DefaultLimits = Limits{PageLimit: 5000, MaxPages: 50}

// Exporter runs the full CSV export flow: validate, paginate, render,
// shape the response. It holds no per-request state and is safe for
// concurrent use.
type Exporter struct {
	querier Querier
	limits  Limits
}

// NewExporter builds an Exporter over q. Zero or negative limit fields
// fall back to DefaultLimits.
func NewExporter(q Querier, limits Limits) *Exporter {
	if limits.PageLimit <= 0 {
		limits.PageLimit = DefaultLimits.PageLimit
	}
	if limits.MaxPages <= 0 {
		limits.MaxPages = DefaultLimits.MaxPages
	}
	return &Exporter{querier: q, limits: limits}
}

// Request carries the raw export parameters exactly as received, before
// any validation.
type Request struct {
	Table     string
	DeviceID  string
	ModelID   string
	StartTime string
	EndTime   string
	SortBy    string
	SortDesc  bool
	Filename  string
}

// Response is a transport-neutral HTTP result. The handler layer copies
// status, headers, and body out verbatim.
type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       string
}

const (
	errTableRequired = "table parameter is required"
	errTimesRequired = "Both start_time and end_time parameters are required"
	errBadDate       = "Invalid date format. Please use ISO 8601 format (e.g., 2023-07-15T10:30:00Z)"
)

// Export validates req, drains the query collaborator page by page, and
// renders the result as a downloadable CSV. Validation failures return 400
// without touching storage; query and render failures return 500. All
// failures use the {"error": message} JSON envelope.
func (e *Exporter) Export(ctx context.Context, req Request) Response {
	if req.Table == "" {
		return errorResponse(400, errTableRequired)
	}
	table, ok := domain.ParseTableParam(req.Table)
	if !ok {
		return errorResponse(400, fmt.Sprintf(
			"Invalid table parameter. Must be one of: %s",
			strings.Join(domain.TableParams, ", ")))
	}
	if req.StartTime == "" || req.EndTime == "" {
		return errorResponse(400, errTimesRequired)
	}
	if !ValidISOTime(req.StartTime) || !ValidISOTime(req.EndTime) {
		return errorResponse(400, errBadDate)
	}

	items, err := e.collect(ctx, table, req)
	if err != nil {
		return errorResponse(500, err.Error())
	}

	if len(items) == 0 {
		body := fmt.Sprintf("# No data found for table '%s' between %s and %s\n",
			req.Table, req.StartTime, req.EndTime)
		return Response{
			StatusCode: 200,
			Headers: map[string]string{
				"Content-Type":                "text/csv",
				"Access-Control-Allow-Origin": "*",
			},
			Body: body,
		}
	}

	content, err := RenderComplete(items, table)
	if err != nil {
		return errorResponse(500, fmt.Sprintf("Failed to generate CSV: %s", err))
	}

	filename := req.Filename
	if filename == "" {
		filename = DefaultFilename(table, time.Now())
	} else {
		filename = SanitizeFilename(filename)
	}

	return Response{
		StatusCode: 200,
		Headers: map[string]string{
			"Content-Type":                "text/csv",
			"Content-Disposition":         fmt.Sprintf("attachment; filename=%q", filename),
			"Access-Control-Allow-Origin": "*",
		},
		Body: content,
	}
}

// collect drains pages from the querier until the token runs out or the
// page cap is hit. A capped export proceeds with whatever accumulated.
func (e *Exporter) collect(ctx context.Context, table domain.TableType, req Request) ([]domain.Record, error) {
	var items []domain.Record
	token := ""
	for page := 0; page < e.limits.MaxPages; page++ {
		result, err := e.querier.Query(ctx, table, domain.QueryParams{
			DeviceID:  req.DeviceID,
			ModelID:   req.ModelID,
			StartTime: req.StartTime,
			EndTime:   req.EndTime,
			Limit:     e.limits.PageLimit,
			NextToken: token,
			SortBy:    req.SortBy,
			SortDesc:  req.SortDesc,
		})
		if err != nil {
			return nil, err
		}
		items = append(items, result.Items...)
		token = result.NextToken
		if token == "" {
			return items, nil
		}
	}
	logger.Warn("export pagination capped",
		"table", string(table),
		"pages", e.limits.MaxPages,
		"items", len(items))
	return items, nil
}

var isoTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// ValidISOTime accepts ISO-8601 timestamps with Z, an explicit offset, or
// no offset, with or without fractional seconds. Date-only strings and
// slash-separated forms are rejected.
func ValidISOTime(s string) bool {
	for _, layout := range isoTimeLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

func errorResponse(status int, msg string) Response {
	body, _ := json.Marshal(map[string]string{"error": msg})
	return Response{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":                "application/json",
			"Access-Control-Allow-Origin": "*",
		},
		Body: string(body),
	}
}
