package api

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/sensing-garden/backend/internal/domain"
	"github.com/sensing-garden/backend/internal/pkg/httputil"
	"github.com/sensing-garden/backend/internal/pkg/logger"
)

// ingestStringFields lists the schema fields that must arrive as JSON
// strings when present. Everything else passes through untyped.
var ingestStringFields = map[string]bool{
	"device_id":    true,
	"model_id":     true,
	"id":           true,
	"timestamp":    true,
	"image":        true,
	"video":        true,
	"video_key":    true,
	"video_bucket": true,
	"content_type": true,
	"family":       true,
	"genus":        true,
	"species":      true,
	"track_id":     true,
	"name":         true,
	"description":  true,
	"version":      true,
}

// validateIngest checks required-field presence and the string typing of
// known fields. Confidence fields are normalized to numbers and bounded to
// [0, 1]. Error text is client-facing and goes into the response verbatim.
func validateIngest(rec domain.Record, required []string) error {
	var missing []string
	for _, field := range required {
		if !rec.Has(field) {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("Missing required fields: %s", strings.Join(missing, ", "))
	}

	for field, v := range rec {
		if ingestStringFields[field] && v.Kind() != domain.KindString {
			return fmt.Errorf("Field %s should be a string", field)
		}
	}

	return normalizeConfidences(rec)
}

// normalizeConfidences converts scalar confidence fields given as numeric
// strings into numbers and rejects values outside [0, 1]. Confidence
// arrays are stored untouched.
func normalizeConfidences(rec domain.Record) error {
	for field, v := range rec {
		if !strings.HasSuffix(field, "confidence") {
			continue
		}
		var f float64
		switch v.Kind() {
		case domain.KindNumber:
			f, _ = v.Float64()
		case domain.KindString:
			s, _ := v.AsString()
			parsed, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return fmt.Errorf("Field %s should be a number", field)
			}
			rec[field] = domain.Number(s)
			f = parsed
		default:
			return fmt.Errorf("Field %s should be a number", field)
		}
		if f < 0 || f > 1 {
			return fmt.Errorf("Field %s should be a number between 0 and 1", field)
		}
	}
	return nil
}

// PostDetection stores one detection: validate, upload the image, write
// the record with its S3 pointer.
//
//	POST /detections
func (h *Handlers) PostDetection(w http.ResponseWriter, r *http.Request) {
	h.ingestWithImage(w, r, domain.TableDetection,
		[]string{"device_id", "model_id", "image"})
}

// PostClassification stores one taxonomic classification. The three
// scalar confidences are required; ranked confidence arrays and tracking
// metadata ride along as-is.
//
//	POST /classifications
func (h *Handlers) PostClassification(w http.ResponseWriter, r *http.Request) {
	h.ingestWithImage(w, r, domain.TableClassification,
		[]string{"device_id", "model_id", "image", "family", "genus", "species",
			"family_confidence", "genus_confidence", "species_confidence"})
}

func (h *Handlers) ingestWithImage(w http.ResponseWriter, r *http.Request, table domain.TableType, required []string) {
	rec, ok := httputil.DecodeRecord(w, r)
	if !ok {
		return
	}
	if err := validateIngest(rec, required); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	img, err := base64.StdEncoding.DecodeString(rec.GetString("image"))
	if err != nil {
		httputil.BadRequest(w, "Field image should be base64 encoded")
		return
	}
	if h.media == nil {
		httputil.InternalError(w, errors.New("media storage not configured"))
		return
	}
	key, err := h.media.UploadImage(r.Context(), string(table), rec.GetString("device_id"), img, h.now())
	if err != nil {
		logger.Error("uploading image", "table", string(table), "error", err.Error())
		httputil.InternalError(w, err)
		return
	}

	stored := rec.Clone()
	delete(stored, "image")
	stored.Set("image_key", key).Set("image_bucket", h.media.ImageBucket())
	h.finishIngest(w, r, table, stored)
}

// PostModel registers a model version. Accepts either id or model_id as
// the identifier; model_id is mirrored into id so the record lands under
// the models hash key.
//
//	POST /models
func (h *Handlers) PostModel(w http.ResponseWriter, r *http.Request) {
	rec, ok := httputil.DecodeRecord(w, r)
	if !ok {
		return
	}
	if !rec.Has("id") && rec.Has("model_id") {
		rec["id"] = rec["model_id"]
	}
	if err := validateIngest(rec, []string{"id", "version"}); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	h.finishIngest(w, r, domain.TableModel, rec)
}

// PostVideo stores a base64 video payload. The payload is uploaded to the
// video bucket and replaced in the record by its object pointer; larger
// files should go to S3 directly and register via /videos/register.
//
//	POST /videos
func (h *Handlers) PostVideo(w http.ResponseWriter, r *http.Request) {
	rec, ok := httputil.DecodeRecord(w, r)
	if !ok {
		return
	}
	if err := validateIngest(rec, []string{"device_id", "video"}); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	data, err := base64.StdEncoding.DecodeString(rec.GetString("video"))
	if err != nil {
		httputil.BadRequest(w, "Field video should be base64 encoded")
		return
	}
	if h.media == nil {
		httputil.InternalError(w, errors.New("media storage not configured"))
		return
	}
	key, err := h.media.UploadVideo(r.Context(), rec.GetString("device_id"), data, rec.GetString("content_type"), h.now())
	if err != nil {
		logger.Error("uploading video", "error", err.Error())
		httputil.InternalError(w, err)
		return
	}

	stored := rec.Clone()
	delete(stored, "video")
	stored.Set("video_key", key).Set("video_bucket", h.media.VideoBucket())
	h.finishIngest(w, r, domain.TableVideo, stored)
}

// RegisterVideo records metadata for an object that was uploaded to S3 out
// of band (the client SDK does multipart uploads itself for large files).
//
//	POST /videos/register
func (h *Handlers) RegisterVideo(w http.ResponseWriter, r *http.Request) {
	rec, ok := httputil.DecodeRecord(w, r)
	if !ok {
		return
	}
	if err := validateIngest(rec, []string{"device_id", "video_key", "video_bucket"}); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	h.finishIngest(w, r, domain.TableVideo, rec)
}

// PostEnvironmental stores one environmental reading. Sensor payloads vary
// by hardware revision, so everything past device_id is free-form.
//
//	POST /environment
func (h *Handlers) PostEnvironmental(w http.ResponseWriter, r *http.Request) {
	rec, ok := httputil.DecodeRecord(w, r)
	if !ok {
		return
	}
	if err := validateIngest(rec, []string{"device_id"}); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	h.finishIngest(w, r, domain.TableEnvironmental, rec)
}
