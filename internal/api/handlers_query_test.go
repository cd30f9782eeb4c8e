package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sensing-garden/backend/internal/domain"
)

func doGet(h http.HandlerFunc, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", target, nil)
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

func TestGetDetectionsListsItemsWithImageURL(t *testing.T) {
	store := &fakeStore{
		pages: map[domain.TableType]domain.QueryPage{
			domain.TableDetection: {
				Items: []domain.Record{
					{
						"device_id":    domain.String("dev-1"),
						"timestamp":    domain.String("2025-06-01T08:00:00Z"),
						"image_key":    domain.String("detection/dev-1/a.jpg"),
						"image_bucket": domain.String("garden-images"),
					},
				},
				NextToken: "tok-1",
			},
		},
	}
	h := newTestHandlers(store, &fakeMedia{})

	w := doGet(h.GetDetections, "/detections?device_id=dev-1&limit=25&sort_by=timestamp&sort_desc=true")

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "tok-1", body["next_token"])

	items := body["items"].([]any)
	require.Len(t, items, 1)
	item := items[0].(map[string]any)
	assert.Equal(t, "https://signed.example/garden-images/detection/dev-1/a.jpg", item["image_url"])

	assert.Equal(t, domain.TableDetection, store.lastTable)
	assert.Equal(t, "dev-1", store.lastParams.DeviceID)
	assert.Equal(t, 25, store.lastParams.Limit)
	assert.Equal(t, "timestamp", store.lastParams.SortBy)
	assert.True(t, store.lastParams.SortDesc)
}

func TestGetDetectionsDefaultsLimit(t *testing.T) {
	store := &fakeStore{}
	h := newTestHandlers(store, nil)

	w := doGet(h.GetDetections, "/detections")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 100, store.lastParams.Limit)
	assert.False(t, store.lastParams.SortDesc)
}

func TestGetDetectionsRejectsBadLimit(t *testing.T) {
	h := newTestHandlers(&fakeStore{}, nil)

	w := doGet(h.GetDetections, "/detections?limit=lots")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error": "Invalid limit value: lots"}`, w.Body.String())
}

func TestGetDetectionsEmptyRendersArray(t *testing.T) {
	h := newTestHandlers(&fakeStore{}, nil)

	w := doGet(h.GetDetections, "/detections")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"items": []}`, w.Body.String())
}

func TestGetDetectionsQueryFailure(t *testing.T) {
	h := newTestHandlers(&fakeStore{queryErr: errors.New("table missing")}, nil)

	w := doGet(h.GetDetections, "/detections")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error": "table missing"}`, w.Body.String())
}

func TestGetVideosAttachesPresignedURL(t *testing.T) {
	store := &fakeStore{
		pages: map[domain.TableType]domain.QueryPage{
			domain.TableVideo: {
				Items: []domain.Record{
					{
						"device_id":    domain.String("dev-1"),
						"video_key":    domain.String("videos/dev-1/clip.mp4"),
						"video_bucket": domain.String("garden-videos"),
						"duration":     domain.Number("300"),
					},
				},
			},
		},
	}
	h := newTestHandlers(store, &fakeMedia{})

	w := doGet(h.GetVideos, "/videos?device_id=dev-1")

	require.Equal(t, http.StatusOK, w.Code)
	items := decodeBody(t, w)["items"].([]any)
	item := items[0].(map[string]any)
	assert.Equal(t, "https://signed.example/garden-videos/videos/dev-1/clip.mp4", item["presigned_url"])
	assert.Equal(t, float64(300), item["duration"])
}

func TestGetModelsSkipsMediaInjection(t *testing.T) {
	store := &fakeStore{
		pages: map[domain.TableType]domain.QueryPage{
			domain.TableModel: {
				Items: []domain.Record{
					{"id": domain.String("m-1"), "version": domain.String("1.0")},
				},
			},
		},
	}
	media := &fakeMedia{}
	h := newTestHandlers(store, media)

	w := doGet(h.GetModels, "/models")

	require.Equal(t, http.StatusOK, w.Code)
	items := decodeBody(t, w)["items"].([]any)
	item := items[0].(map[string]any)
	assert.NotContains(t, item, "image_url")
	assert.Zero(t, media.presignCalls)
}

func TestGetDetectionsPresignFailureLeavesNullURL(t *testing.T) {
	store := &fakeStore{
		pages: map[domain.TableType]domain.QueryPage{
			domain.TableDetection: {
				Items: []domain.Record{
					{
						"image_key":    domain.String("detection/dev-1/a.jpg"),
						"image_bucket": domain.String("garden-images"),
					},
				},
			},
		},
	}
	h := newTestHandlers(store, &fakeMedia{presignErr: errors.New("denied")})

	w := doGet(h.GetDetections, "/detections")

	require.Equal(t, http.StatusOK, w.Code)
	items := decodeBody(t, w)["items"].([]any)
	item := items[0].(map[string]any)
	url, present := item["image_url"]
	assert.True(t, present)
	assert.Nil(t, url)
}

func TestGetDetectionsSkipsItemsWithoutImagePointer(t *testing.T) {
	store := &fakeStore{
		pages: map[domain.TableType]domain.QueryPage{
			domain.TableDetection: {
				Items: []domain.Record{
					{"device_id": domain.String("dev-1")},
				},
			},
		},
	}
	media := &fakeMedia{}
	h := newTestHandlers(store, media)

	w := doGet(h.GetDetections, "/detections")

	require.Equal(t, http.StatusOK, w.Code)
	items := decodeBody(t, w)["items"].([]any)
	assert.NotContains(t, items[0].(map[string]any), "image_url")
	assert.Zero(t, media.presignCalls)
}

func TestCountDetections(t *testing.T) {
	store := &fakeStore{counts: map[domain.TableType]int{domain.TableDetection: 7}}
	h := newTestHandlers(store, nil)

	w := doGet(h.CountDetections, "/detections/count?device_id=dev-1")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"count": 7}`, w.Body.String())
	assert.Equal(t, "dev-1", store.lastParams.DeviceID)
}

func TestCountFailure(t *testing.T) {
	h := newTestHandlers(&fakeStore{countErr: errors.New("backend gone")}, nil)

	w := doGet(h.CountVideos, "/videos/count")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error": "backend gone"}`, w.Body.String())
}

func TestTableCSVRendersAttachment(t *testing.T) {
	store := &fakeStore{
		pages: map[domain.TableType]domain.QueryPage{
			domain.TableDetection: {
				Items: []domain.Record{
					{
						"device_id": domain.String("dev-1"),
						"timestamp": domain.String("2025-06-01T08:00:00Z"),
						"model_id":  domain.String("yolov8n"),
					},
					{
						"device_id": domain.String("dev-1"),
						"timestamp": domain.String("2025-06-01T09:00:00Z"),
						"model_id":  domain.String("yolov8n"),
					},
				},
			},
		},
	}
	h := newTestHandlers(store, nil)

	w := doGet(h.DetectionsCSV, "/detections/csv?device_id=dev-1&filename=my%20export.csv")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "my_export.csv")

	lines := strings.Split(w.Body.String(), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "device_id")
	assert.Contains(t, lines[1], "2025-06-01T08:00:00Z")
}

func TestTableCSVDefaultFilename(t *testing.T) {
	store := &fakeStore{
		pages: map[domain.TableType]domain.QueryPage{
			domain.TableDetection: {
				Items: []domain.Record{{"device_id": domain.String("dev-1")}},
			},
		},
	}
	h := newTestHandlers(store, nil)

	w := doGet(h.DetectionsCSV, "/detections/csv")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"),
		"sensing_garden_detections_20250601_103000.csv")
}

func TestTableCSVEmptyReturnsEmptyBody(t *testing.T) {
	h := newTestHandlers(&fakeStore{}, nil)

	w := doGet(h.DetectionsCSV, "/detections/csv")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Empty(t, w.Body.String())
}

func TestTableCSVRejectsBadDate(t *testing.T) {
	h := newTestHandlers(&fakeStore{}, nil)

	w := doGet(h.DetectionsCSV, "/detections/csv?start_time=yesterday")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeBody(t, w)
	assert.Contains(t, body["error"], "Invalid date format")
}

func TestTableCSVAllowsOpenTimeRange(t *testing.T) {
	store := &fakeStore{}
	h := newTestHandlers(store, nil)

	w := doGet(h.DetectionsCSV, "/detections/csv?start_time=2025-06-01T00:00:00Z")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2025-06-01T00:00:00Z", store.lastParams.StartTime)
	assert.Empty(t, store.lastParams.EndTime)
}
