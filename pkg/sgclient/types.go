package sgclient

import "encoding/base64"

// Stored is the server's acknowledgement for a successful write. Data
// echoes the record exactly as persisted, server-side defaults included.
type Stored struct {
	Message string         `json:"message"`
	Data    map[string]any `json:"data"`
}

// ListPage is one page of list results. A non-empty NextToken means more
// data; feed it back via ListParams.NextToken.
type ListPage struct {
	Items     []map[string]any `json:"items"`
	NextToken string           `json:"next_token"`
}

// DeviceResult is the server's acknowledgement for device add and
// update operations.
type DeviceResult struct {
	Message string         `json:"message"`
	Device  map[string]any `json:"device"`
}

// DeleteSummary reports what a device deletion removed. DeletedCounts is
// keyed by data table (detections, classifications, environment, videos)
// and only populated for cascade deletions.
type DeleteSummary struct {
	DeviceDeleted bool           `json:"device_deleted"`
	Cascade       bool           `json:"cascade"`
	DeletedCounts map[string]int `json:"deleted_counts"`
}

// Detection is one insect detection to ingest. DeviceID, ModelID, and
// Image are required; Image travels base64-encoded. A missing Timestamp
// gets the server's receive time.
type Detection struct {
	DeviceID    string
	ModelID     string
	Image       []byte
	Timestamp   string
	BoundingBox []float64
	TrackID     string
	Metadata    map[string]any
}

func (d Detection) payload() map[string]any {
	p := map[string]any{
		"device_id": d.DeviceID,
		"model_id":  d.ModelID,
		"image":     base64.StdEncoding.EncodeToString(d.Image),
	}
	setIf(p, "timestamp", d.Timestamp)
	if d.BoundingBox != nil {
		p["bounding_box"] = d.BoundingBox
	}
	setIf(p, "track_id", d.TrackID)
	if d.Metadata != nil {
		p["metadata"] = d.Metadata
	}
	return p
}

// Classification is one taxonomic classification to ingest. The three
// taxon names and their confidences are required alongside DeviceID,
// ModelID, and Image; confidences must fall in [0, 1].
type Classification struct {
	DeviceID           string
	ModelID            string
	Image              []byte
	Family             string
	Genus              string
	Species            string
	FamilyConfidence   float64
	GenusConfidence    float64
	SpeciesConfidence  float64
	Timestamp          string
	TrackID            string
	BoundingBox        []float64
	ClassificationData map[string]any
	Metadata           map[string]any
}

func (c Classification) payload() map[string]any {
	p := map[string]any{
		"device_id":          c.DeviceID,
		"model_id":           c.ModelID,
		"image":              base64.StdEncoding.EncodeToString(c.Image),
		"family":             c.Family,
		"genus":              c.Genus,
		"species":            c.Species,
		"family_confidence":  c.FamilyConfidence,
		"genus_confidence":   c.GenusConfidence,
		"species_confidence": c.SpeciesConfidence,
	}
	setIf(p, "timestamp", c.Timestamp)
	setIf(p, "track_id", c.TrackID)
	if c.BoundingBox != nil {
		p["bounding_box"] = c.BoundingBox
	}
	if c.ClassificationData != nil {
		p["classification_data"] = c.ClassificationData
	}
	if c.Metadata != nil {
		p["metadata"] = c.Metadata
	}
	return p
}

// Model describes an inference model revision. ModelID and Version are
// required; ModelID becomes the stored record's id.
type Model struct {
	ModelID     string
	Version     string
	Name        string
	Description string
	Type        string
	Timestamp   string
}

func (m Model) payload() map[string]any {
	p := map[string]any{
		"model_id": m.ModelID,
		"version":  m.Version,
	}
	setIf(p, "name", m.Name)
	setIf(p, "description", m.Description)
	setIf(p, "type", m.Type)
	setIf(p, "timestamp", m.Timestamp)
	return p
}

// Video is one video to upload inline. DeviceID and Video are required;
// Video travels base64-encoded, so uploads are bounded by the server's
// request size limit. ContentType defaults server-side to video/mp4.
type Video struct {
	DeviceID    string
	Video       []byte
	ContentType string
	Timestamp   string
	Description string
	Metadata    map[string]any
}

func (v Video) payload() map[string]any {
	p := map[string]any{
		"device_id": v.DeviceID,
		"video":     base64.StdEncoding.EncodeToString(v.Video),
	}
	setIf(p, "content_type", v.ContentType)
	setIf(p, "timestamp", v.Timestamp)
	setIf(p, "description", v.Description)
	if v.Metadata != nil {
		p["metadata"] = v.Metadata
	}
	return p
}

// VideoRegistration records a video that already lives in object
// storage, typically after an out-of-band multipart upload. DeviceID,
// VideoKey, and VideoBucket are required.
type VideoRegistration struct {
	DeviceID    string
	VideoKey    string
	VideoBucket string
	ContentType string
	Timestamp   string
	Metadata    map[string]any
}

func (v VideoRegistration) payload() map[string]any {
	p := map[string]any{
		"device_id":    v.DeviceID,
		"video_key":    v.VideoKey,
		"video_bucket": v.VideoBucket,
	}
	setIf(p, "content_type", v.ContentType)
	setIf(p, "timestamp", v.Timestamp)
	if v.Metadata != nil {
		p["metadata"] = v.Metadata
	}
	return p
}

// EnvironmentalReading is one sensor sample. Only DeviceID is required;
// Data holds the sensor fields (pm2p5, temperature, humidity, and so
// on) and is merged into the record's top level.
type EnvironmentalReading struct {
	DeviceID  string
	Timestamp string
	Data      map[string]any
}

func (e EnvironmentalReading) payload() map[string]any {
	p := map[string]any{"device_id": e.DeviceID}
	setIf(p, "timestamp", e.Timestamp)
	for k, v := range e.Data {
		if k == "device_id" || k == "timestamp" {
			continue
		}
		p[k] = v
	}
	return p
}

// Device registers a device. Only DeviceID is required; Fields holds
// any extra attributes (name, location label, firmware version) and is
// merged into the record's top level. A missing Created gets the
// server's receive time.
type Device struct {
	DeviceID string
	Created  string
	Fields   map[string]any
}

func (d Device) payload() map[string]any {
	p := map[string]any{"device_id": d.DeviceID}
	setIf(p, "created", d.Created)
	for k, v := range d.Fields {
		if k == "device_id" || k == "created" {
			continue
		}
		p[k] = v
	}
	return p
}

func setIf(p map[string]any, key, value string) {
	if value != "" {
		p[key] = value
	}
}
