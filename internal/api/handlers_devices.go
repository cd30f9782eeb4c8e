package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/sensing-garden/backend/internal/domain"
	"github.com/sensing-garden/backend/internal/pkg/httputil"
	"github.com/sensing-garden/backend/internal/pkg/logger"
	"github.com/sensing-garden/backend/internal/storage"
)

// cascadeTables are the time-series tables swept by a cascading device
// delete, keyed by the spelling used in the deletion summary.
var cascadeTables = []struct {
	name  string
	table domain.TableType
}{
	{"detections", domain.TableDetection},
	{"classifications", domain.TableClassification},
	{"environment", domain.TableEnvironmental},
	{"videos", domain.TableVideo},
}

// PostDevice registers a device. created defaults to now; any extra
// fields (name, location, notes) are stored as-is.
//
//	POST /devices
func (h *Handlers) PostDevice(w http.ResponseWriter, r *http.Request) {
	rec, ok := httputil.DecodeRecord(w, r)
	if !ok {
		return
	}
	if err := validateIngest(rec, []string{"device_id"}); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if !rec.Has("created") {
		rec.Set("created", h.isoNow())
	}
	if err := h.store.Put(r.Context(), domain.TableDevice, rec); err != nil {
		logger.Error("storing device", "device_id", rec.GetString("device_id"), "error", err.Error())
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]any{"message": "Device added", "device": rec})
}

// UpdateDevice merges the body fields into the most recent device row.
// device_id and created never change.
//
//	PUT /devices
func (h *Handlers) UpdateDevice(w http.ResponseWriter, r *http.Request) {
	rec, ok := httputil.DecodeRecord(w, r)
	if !ok {
		return
	}
	if err := validateIngest(rec, []string{"device_id"}); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	updated, err := h.store.UpdateDevice(r.Context(), rec.GetString("device_id"), rec)
	if errors.Is(err, storage.ErrNotFound) {
		httputil.NotFound(w, "Device not found")
		return
	}
	if err != nil {
		logger.Error("updating device", "device_id", rec.GetString("device_id"), "error", err.Error())
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]any{"message": "Device updated", "device": updated})
}

// DeleteDevice removes a device, optionally cascading over everything it
// recorded. The target comes from a JSON body {"device_id": ...,
// "cascade": ...}; older clients pass device_id as a query parameter
// instead. Deleting an unknown device succeeds with zero counts.
//
//	DELETE /devices
func (h *Handlers) DeleteDevice(w http.ResponseWriter, r *http.Request) {
	deviceID, cascade, err := deleteTarget(r)
	if err != nil {
		httputil.BadRequest(w, "invalid JSON: "+err.Error())
		return
	}
	if deviceID == "" {
		httputil.BadRequest(w, "Missing required fields: device_id")
		return
	}

	deleted := map[string]int{}
	if cascade {
		for _, ct := range cascadeTables {
			n, err := h.store.DeleteByDevice(r.Context(), ct.table, deviceID)
			if err != nil {
				logger.Error("cascade delete", "table", ct.name, "device_id", deviceID, "error", err.Error())
				httputil.InternalError(w, err)
				return
			}
			deleted[ct.name] = n
		}
	}

	rows, err := h.store.DeleteByDevice(r.Context(), domain.TableDevice, deviceID)
	if err != nil {
		logger.Error("deleting device", "device_id", deviceID, "error", err.Error())
		httputil.InternalError(w, err)
		return
	}

	logger.Info("device deleted", "device_id", deviceID, "cascade", cascade, "device_rows", rows)
	httputil.OK(w, map[string]any{
		"message": "Device deleted",
		"summary": map[string]any{
			"device_deleted": rows > 0,
			"cascade":        cascade,
			"deleted_counts": deleted,
		},
	})
}

// deleteTarget extracts device_id and the cascade flag from the request
// body, falling back to the device_id query parameter for legacy callers.
func deleteTarget(r *http.Request) (deviceID string, cascade bool, err error) {
	body, readErr := io.ReadAll(r.Body)
	if readErr == nil && len(body) > 0 {
		rec, decErr := domain.RecordFromJSON(body)
		if decErr != nil {
			return "", false, decErr
		}
		deviceID = rec.GetString("device_id")
		cascade, _ = rec["cascade"].AsBool()
	}
	if deviceID == "" {
		deviceID = r.URL.Query().Get("device_id")
	}
	return deviceID, cascade, nil
}
