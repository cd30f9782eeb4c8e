package api

import (
	"fmt"
	"net/http"

	"github.com/sensing-garden/backend/internal/domain"
	"github.com/sensing-garden/backend/internal/export"
	"github.com/sensing-garden/backend/internal/pkg/httputil"
	"github.com/sensing-garden/backend/internal/pkg/logger"
)

// GET /detections
func (h *Handlers) GetDetections(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, domain.TableDetection)
}

// GET /classifications
func (h *Handlers) GetClassifications(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, domain.TableClassification)
}

// GET /models
func (h *Handlers) GetModels(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, domain.TableModel)
}

// GET /videos
func (h *Handlers) GetVideos(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, domain.TableVideo)
}

// GET /environment
func (h *Handlers) GetEnvironmental(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, domain.TableEnvironmental)
}

// GET /devices
func (h *Handlers) GetDevices(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, domain.TableDevice)
}

// list serves one page of records. Detection and classification items gain
// an image_url, video items a presigned_url, pointing at their S3 object.
func (h *Handlers) list(w http.ResponseWriter, r *http.Request, table domain.TableType) {
	p, err := parseListParams(r, h.queryLimit)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	page, err := h.store.Query(r.Context(), table, p)
	if err != nil {
		logger.Error("querying records", "table", string(table), "error", err.Error())
		httputil.InternalError(w, err)
		return
	}
	items := page.Items
	if items == nil {
		items = []domain.Record{}
	}
	h.attachMediaURLs(r, table, items)

	resp := map[string]any{"items": items}
	if page.NextToken != "" {
		resp["next_token"] = page.NextToken
	}
	httputil.OK(w, resp)
}

// attachMediaURLs injects presigned GET URLs next to the stored S3
// pointers. A presign failure leaves the URL null rather than failing the
// whole read.
func (h *Handlers) attachMediaURLs(r *http.Request, table domain.TableType, items []domain.Record) {
	if h.media == nil {
		return
	}

	keyField, bucketField, urlField := "", "", ""
	switch table {
	case domain.TableDetection, domain.TableClassification:
		keyField, bucketField, urlField = "image_key", "image_bucket", "image_url"
	case domain.TableVideo:
		keyField, bucketField, urlField = "video_key", "video_bucket", "presigned_url"
	default:
		return
	}

	for _, item := range items {
		if !item.Has(keyField) || !item.Has(bucketField) {
			continue
		}
		url, err := h.media.PresignGet(r.Context(), item.GetString(bucketField), item.GetString(keyField))
		if err != nil {
			logger.Warn("presigning object", "bucket", item.GetString(bucketField),
				"key", item.GetString(keyField), "error", err.Error())
			item[urlField] = domain.Null()
			continue
		}
		item[urlField] = domain.String(url)
	}
}

// GET /detections/count
func (h *Handlers) CountDetections(w http.ResponseWriter, r *http.Request) {
	h.count(w, r, domain.TableDetection)
}

// GET /classifications/count
func (h *Handlers) CountClassifications(w http.ResponseWriter, r *http.Request) {
	h.count(w, r, domain.TableClassification)
}

// GET /models/count
func (h *Handlers) CountModels(w http.ResponseWriter, r *http.Request) {
	h.count(w, r, domain.TableModel)
}

// GET /videos/count
func (h *Handlers) CountVideos(w http.ResponseWriter, r *http.Request) {
	h.count(w, r, domain.TableVideo)
}

// GET /environment/count
func (h *Handlers) CountEnvironmental(w http.ResponseWriter, r *http.Request) {
	h.count(w, r, domain.TableEnvironmental)
}

// GET /devices/count
func (h *Handlers) CountDevices(w http.ResponseWriter, r *http.Request) {
	h.count(w, r, domain.TableDevice)
}

func (h *Handlers) count(w http.ResponseWriter, r *http.Request, table domain.TableType) {
	p, err := parseListParams(r, h.queryLimit)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	n, err := h.store.Count(r.Context(), table, p)
	if err != nil {
		logger.Error("counting records", "table", string(table), "error", err.Error())
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]any{"count": n})
}

// GET /detections/csv
func (h *Handlers) DetectionsCSV(w http.ResponseWriter, r *http.Request) {
	h.tableCSV(w, r, domain.TableDetection)
}

// GET /classifications/csv
func (h *Handlers) ClassificationsCSV(w http.ResponseWriter, r *http.Request) {
	h.tableCSV(w, r, domain.TableClassification)
}

// GET /models/csv
func (h *Handlers) ModelsCSV(w http.ResponseWriter, r *http.Request) {
	h.tableCSV(w, r, domain.TableModel)
}

// GET /videos/csv
func (h *Handlers) VideosCSV(w http.ResponseWriter, r *http.Request) {
	h.tableCSV(w, r, domain.TableVideo)
}

// GET /environment/csv
func (h *Handlers) EnvironmentalCSV(w http.ResponseWriter, r *http.Request) {
	h.tableCSV(w, r, domain.TableEnvironmental)
}

// GET /devices/csv
func (h *Handlers) DevicesCSV(w http.ResponseWriter, r *http.Request) {
	h.tableCSV(w, r, domain.TableDevice)
}

// tableCSV downloads one page of a table as CSV. Unlike /export this takes
// a single query page (capped by limit), accepts an open time range, and
// answers an empty result with an empty 200 body.
func (h *Handlers) tableCSV(w http.ResponseWriter, r *http.Request, table domain.TableType) {
	p, err := parseListParams(r, h.queryLimit)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	for _, ts := range []string{p.StartTime, p.EndTime} {
		if ts != "" && !export.ValidISOTime(ts) {
			httputil.BadRequest(w, "Invalid date format. Please use ISO 8601 format (e.g., 2023-07-15T10:30:00Z)")
			return
		}
	}

	page, err := h.store.Query(r.Context(), table, p)
	if err != nil {
		logger.Error("querying records for csv", "table", string(table), "error", err.Error())
		httputil.InternalError(w, err)
		return
	}
	content, err := export.RenderComplete(page.Items, table)
	if err != nil {
		httputil.Error(w, http.StatusInternalServerError, fmt.Sprintf("Failed to generate CSV: %s", err))
		return
	}

	filename := r.URL.Query().Get("filename")
	if filename == "" {
		filename = export.DefaultFilename(table, h.now())
	} else {
		filename = export.SanitizeFilename(filename)
	}
	httputil.CSVAttachment(w, filename, content)
}
