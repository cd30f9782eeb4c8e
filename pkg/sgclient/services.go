package sgclient

import (
	"context"
	"net/http"
)

// service carries the operations every entity shares: List, Count, and
// the per-entity CSV download.
type service struct {
	client *Client
	base   string
	// noDeviceFilter drops the device_id parameter; models are not
	// keyed by device.
	noDeviceFilter bool
}

// List fetches one page of records.
func (s *service) List(ctx context.Context, p ListParams) (*ListPage, error) {
	if s.noDeviceFilter {
		p.DeviceID = ""
	}
	var page ListPage
	if err := s.client.getJSON(ctx, s.base, p.values(), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Count returns the number of records matching p. Paging fields in p
// are ignored.
func (s *service) Count(ctx context.Context, p ListParams) (int, error) {
	if s.noDeviceFilter {
		p.DeviceID = ""
	}
	var out struct {
		Count int `json:"count"`
	}
	if err := s.client.getJSON(ctx, s.base+"/count", p.values(), &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

// ExportCSV downloads this entity's single-page CSV. It returns the CSV
// bytes and the attachment filename ("" when the result was empty). For
// large ranges use Client.Export, which paginates.
func (s *service) ExportCSV(ctx context.Context, p CSVParams) ([]byte, string, error) {
	if s.noDeviceFilter {
		p.DeviceID = ""
	}
	body, header, err := s.client.do(ctx, http.MethodGet, s.base+"/csv", p.values(), nil)
	if err != nil {
		return nil, "", err
	}
	return body, attachmentFilename(header), nil
}

// DetectionsService operates on insect detections.
type DetectionsService struct{ service }

// Add ingests one detection.
func (s *DetectionsService) Add(ctx context.Context, d Detection) (*Stored, error) {
	var stored Stored
	if err := s.client.writeJSON(ctx, http.MethodPost, s.base, d.payload(), &stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

// ClassificationsService operates on taxonomic classifications.
type ClassificationsService struct{ service }

// Add ingests one classification.
func (s *ClassificationsService) Add(ctx context.Context, c Classification) (*Stored, error) {
	var stored Stored
	if err := s.client.writeJSON(ctx, http.MethodPost, s.base, c.payload(), &stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

// ModelsService operates on inference model records.
type ModelsService struct{ service }

// Add registers one model revision.
func (s *ModelsService) Add(ctx context.Context, m Model) (*Stored, error) {
	var stored Stored
	if err := s.client.writeJSON(ctx, http.MethodPost, s.base, m.payload(), &stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

// VideosService operates on video records.
type VideosService struct{ service }

// Upload ingests one video inline (base64 over JSON).
func (s *VideosService) Upload(ctx context.Context, v Video) (*Stored, error) {
	var stored Stored
	if err := s.client.writeJSON(ctx, http.MethodPost, s.base, v.payload(), &stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

// Register records a video already present in object storage, without
// moving any bytes.
func (s *VideosService) Register(ctx context.Context, reg VideoRegistration) (*Stored, error) {
	var stored Stored
	if err := s.client.writeJSON(ctx, http.MethodPost, s.base+"/register", reg.payload(), &stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

// EnvironmentService operates on environmental sensor readings.
type EnvironmentService struct{ service }

// Add ingests one sensor reading.
func (s *EnvironmentService) Add(ctx context.Context, r EnvironmentalReading) (*Stored, error) {
	var stored Stored
	if err := s.client.writeJSON(ctx, http.MethodPost, s.base, r.payload(), &stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

// DevicesService operates on device registrations.
type DevicesService struct{ service }

// Add registers a device.
func (s *DevicesService) Add(ctx context.Context, d Device) (*DeviceResult, error) {
	var result DeviceResult
	if err := s.client.writeJSON(ctx, http.MethodPost, s.base, d.payload(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Update merges fields into an existing device record and returns the
// merged record. The device's identity and creation time cannot change.
func (s *DevicesService) Update(ctx context.Context, deviceID string, fields map[string]any) (*DeviceResult, error) {
	payload := map[string]any{"device_id": deviceID}
	for k, v := range fields {
		if k == "device_id" {
			continue
		}
		payload[k] = v
	}
	var result DeviceResult
	if err := s.client.writeJSON(ctx, http.MethodPut, s.base, payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Delete removes a device registration. With cascade, the device's
// detections, classifications, environmental readings, and video
// records go too. Deleting an unknown device is not an error; the
// summary reports DeviceDeleted false.
func (s *DevicesService) Delete(ctx context.Context, deviceID string, cascade bool) (*DeleteSummary, error) {
	payload := map[string]any{
		"device_id": deviceID,
		"cascade":   cascade,
	}
	var result struct {
		Message string        `json:"message"`
		Summary DeleteSummary `json:"summary"`
	}
	if err := s.client.writeJSON(ctx, http.MethodDelete, s.base, payload, &result); err != nil {
		return nil, err
	}
	return &result.Summary, nil
}
