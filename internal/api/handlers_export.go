package api

import (
	"io"
	"net/http"
	"strings"

	"github.com/sensing-garden/backend/internal/export"
)

// ExportCSV runs the full multi-page CSV export. The exporter owns
// validation, pagination, and response shaping; its result is copied out
// verbatim.
//
//	GET /export
func (h *Handlers) ExportCSV(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resp := h.exporter.Export(r.Context(), export.Request{
		Table:     q.Get("table"),
		DeviceID:  q.Get("device_id"),
		ModelID:   q.Get("model_id"),
		StartTime: q.Get("start_time"),
		EndTime:   q.Get("end_time"),
		SortBy:    q.Get("sort_by"),
		SortDesc:  strings.EqualFold(q.Get("sort_desc"), "true"),
		Filename:  q.Get("filename"),
	})

	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}
	w.WriteHeader(resp.StatusCode)
	io.WriteString(w, resp.Body)
}
