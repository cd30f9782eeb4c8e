package sgclient

import (
	"net/url"
	"strconv"
)

// ListParams filters and pages list and count requests. Zero values are
// omitted from the query string.
type ListParams struct {
	DeviceID  string
	ModelID   string
	StartTime string // ISO-8601
	EndTime   string // ISO-8601
	Limit     int
	NextToken string
	SortBy    string
	// SortDesc is only sent alongside SortBy; on its own it has nothing
	// to sort.
	SortDesc bool
}

func (p ListParams) values() url.Values {
	q := url.Values{}
	setNonEmpty(q, "device_id", p.DeviceID)
	setNonEmpty(q, "model_id", p.ModelID)
	setNonEmpty(q, "start_time", p.StartTime)
	setNonEmpty(q, "end_time", p.EndTime)
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	setNonEmpty(q, "next_token", p.NextToken)
	if p.SortBy != "" {
		q.Set("sort_by", p.SortBy)
		q.Set("sort_desc", strconv.FormatBool(p.SortDesc))
	}
	return q
}

// CSVParams filters a per-entity CSV download. The time range is
// optional; each bound is validated server-side when present.
type CSVParams struct {
	DeviceID  string
	ModelID   string
	StartTime string
	EndTime   string
	SortBy    string
	SortDesc  bool
	// Filename overrides the server-generated attachment filename.
	Filename string
}

func (p CSVParams) values() url.Values {
	q := url.Values{}
	setNonEmpty(q, "device_id", p.DeviceID)
	setNonEmpty(q, "model_id", p.ModelID)
	setNonEmpty(q, "start_time", p.StartTime)
	setNonEmpty(q, "end_time", p.EndTime)
	if p.SortBy != "" {
		q.Set("sort_by", p.SortBy)
		q.Set("sort_desc", strconv.FormatBool(p.SortDesc))
	}
	setNonEmpty(q, "filename", p.Filename)
	return q
}

// ExportParams drives the unified /export download. Table is required
// and uses the API's plural spellings (detections, classifications,
// models, videos, environment, devices); StartTime and EndTime are both
// required by the server.
type ExportParams struct {
	Table     string
	DeviceID  string
	ModelID   string
	StartTime string
	EndTime   string
	SortBy    string
	SortDesc  bool
	Filename  string
}

func (p ExportParams) values() url.Values {
	q := url.Values{}
	setNonEmpty(q, "table", p.Table)
	setNonEmpty(q, "device_id", p.DeviceID)
	setNonEmpty(q, "model_id", p.ModelID)
	setNonEmpty(q, "start_time", p.StartTime)
	setNonEmpty(q, "end_time", p.EndTime)
	if p.SortBy != "" {
		q.Set("sort_by", p.SortBy)
		q.Set("sort_desc", strconv.FormatBool(p.SortDesc))
	}
	setNonEmpty(q, "filename", p.Filename)
	return q
}

func setNonEmpty(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}
