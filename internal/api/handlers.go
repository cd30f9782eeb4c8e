package api

import (
	"context"
	"net/http"
	"time"

	"github.com/sensing-garden/backend/internal/domain"
	"github.com/sensing-garden/backend/internal/export"
	"github.com/sensing-garden/backend/internal/pkg/httputil"
	"github.com/sensing-garden/backend/internal/pkg/logger"
)

// StoreAPI is the slice of the record store the handlers use.
type StoreAPI interface {
	Query(ctx context.Context, table domain.TableType, p domain.QueryParams) (domain.QueryPage, error)
	Count(ctx context.Context, table domain.TableType, p domain.QueryParams) (int, error)
	Put(ctx context.Context, table domain.TableType, rec domain.Record) error
	DeleteByDevice(ctx context.Context, table domain.TableType, deviceID string) (int, error)
	UpdateDevice(ctx context.Context, deviceID string, fields domain.Record) (domain.Record, error)
}

// MediaAPI is the slice of the media store the handlers use. A nil MediaAPI
// disables presigned URL injection; upload endpoints then reject with 500.
type MediaAPI interface {
	UploadImage(ctx context.Context, dataType, deviceID string, data []byte, ts time.Time) (string, error)
	UploadVideo(ctx context.Context, deviceID string, data []byte, contentType string, ts time.Time) (string, error)
	PresignGet(ctx context.Context, bucket, key string) (string, error)
	ImageBucket() string
	VideoBucket() string
}

// Handlers contains all HTTP handlers.
type Handlers struct {
	store      StoreAPI
	media      MediaAPI
	exporter   *export.Exporter
	queryLimit int
	now        func() time.Time
}

// NewHandlers creates a new Handlers instance. queryLimit is the page size
// list endpoints fall back to when the request carries no limit parameter.
func NewHandlers(store StoreAPI, media MediaAPI, exporter *export.Exporter, queryLimit int) *Handlers {
	if queryLimit <= 0 {
		queryLimit = 100
	}
	return &Handlers{
		store:      store,
		media:      media,
		exporter:   exporter,
		queryLimit: queryLimit,
		now:        time.Now,
	}
}

// isoNow renders the current time the way device firmware and the field
// tooling write stored timestamps: ISO-8601 in UTC, microsecond precision,
// no zone suffix.
func (h *Handlers) isoNow() string {
	return h.now().UTC().Format("2006-01-02T15:04:05.000000")
}

var storedMessages = map[domain.TableType]string{
	domain.TableDetection:      "Detection data stored successfully",
	domain.TableClassification: "Classification data stored successfully",
	domain.TableModel:          "Model data stored successfully",
	domain.TableVideo:          "Video data stored successfully",
	domain.TableEnvironmental:  "Environmental data stored successfully",
	domain.TableDevice:         "Device data stored successfully",
}

// finishIngest defaults the time attribute, writes the record, and sends
// the stored-successfully envelope echoing the record as persisted.
func (h *Handlers) finishIngest(w http.ResponseWriter, r *http.Request, table domain.TableType, rec domain.Record) {
	attr := table.RangeAttribute()
	if attr == "" {
		attr = "timestamp"
	}
	if !rec.Has(attr) {
		rec.Set(attr, h.isoNow())
	}
	if err := h.store.Put(r.Context(), table, rec); err != nil {
		logger.Error("storing record", "table", string(table), "error", err.Error())
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]any{
		"message": storedMessages[table],
		"data":    rec,
	})
}
