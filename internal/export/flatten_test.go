package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sensing-garden/backend/internal/domain"
)

func mustRecord(t *testing.T, src string) domain.Record {
	t.Helper()
	rec, err := domain.RecordFromJSON([]byte(src))
	require.NoError(t, err)
	return rec
}

func TestFlatten_PassthroughFields(t *testing.T) {
	rec := mustRecord(t, `{
		"device_id": "dev-1",
		"timestamp": "2023-07-15T10:30:00Z",
		"model_id": "model-a",
		"family": "Nymphalidae",
		"family_confidence": 0.92,
		"track_id": "t-17"
	}`)

	flat := Flatten(rec, domain.TableDetection)

	assert.Equal(t, "dev-1", flat["device_id"])
	assert.Equal(t, "2023-07-15T10:30:00Z", flat["timestamp"])
	assert.Equal(t, "model-a", flat["model_id"])
	assert.Equal(t, "Nymphalidae", flat["family"])
	assert.Equal(t, "0.92", flat["family_confidence"])
	assert.Equal(t, "t-17", flat["track_id"])
}

func TestFlatten_BoundingBox(t *testing.T) {
	t.Run("four elements split into columns", func(t *testing.T) {
		flat := Flatten(mustRecord(t, `{"bounding_box": [10, 20, 30, 40]}`), domain.TableDetection)
		assert.Equal(t, "10", flat["bbox_xmin"])
		assert.Equal(t, "20", flat["bbox_ymin"])
		assert.Equal(t, "30", flat["bbox_xmax"])
		assert.Equal(t, "40", flat["bbox_ymax"])
	})

	t.Run("fractional coordinates stay verbatim", func(t *testing.T) {
		flat := Flatten(mustRecord(t, `{"bounding_box": [0.1, 0.25, 0.5, 0.75]}`), domain.TableDetection)
		assert.Equal(t, "0.1", flat["bbox_xmin"])
		assert.Equal(t, "0.75", flat["bbox_ymax"])
	})

	malformed := []struct {
		name string
		src  string
	}{
		{"wrong length", `{"bounding_box": [1, 2, 3]}`},
		{"too long", `{"bounding_box": [1, 2, 3, 4, 5]}`},
		{"not a list", `{"bounding_box": "10,20,30,40"}`},
		{"null", `{"bounding_box": null}`},
		{"record", `{"bounding_box": {"xmin": 1}}`},
	}
	for _, tt := range malformed {
		t.Run(tt.name+" degrades to empty columns", func(t *testing.T) {
			flat := Flatten(mustRecord(t, tt.src), domain.TableDetection)
			assert.Equal(t, "", flat["bbox_xmin"])
			assert.Equal(t, "", flat["bbox_ymin"])
			assert.Equal(t, "", flat["bbox_xmax"])
			assert.Equal(t, "", flat["bbox_ymax"])
		})
	}

	t.Run("absent key emits no columns", func(t *testing.T) {
		flat := Flatten(mustRecord(t, `{"device_id": "dev-1"}`), domain.TableDetection)
		_, present := flat["bbox_xmin"]
		assert.False(t, present)
	})
}

func TestFlatten_Location(t *testing.T) {
	t.Run("coordinates split verbatim", func(t *testing.T) {
		flat := Flatten(mustRecord(t,
			`{"location": {"lat": 40.7128, "long": -74.006, "alt": 10.5}}`), domain.TableDevice)
		assert.Equal(t, "40.7128", flat["latitude"])
		assert.Equal(t, "-74.006", flat["longitude"])
		assert.Equal(t, "10.5", flat["altitude"])
	})

	t.Run("missing sub-keys become empty", func(t *testing.T) {
		flat := Flatten(mustRecord(t, `{"location": {"lat": 1.5}}`), domain.TableDevice)
		assert.Equal(t, "1.5", flat["latitude"])
		assert.Equal(t, "", flat["longitude"])
		assert.Equal(t, "", flat["altitude"])
	})

	t.Run("non-record degrades to empty columns", func(t *testing.T) {
		flat := Flatten(mustRecord(t, `{"location": "40.7,-74.0"}`), domain.TableDevice)
		assert.Equal(t, "", flat["latitude"])
		assert.Equal(t, "", flat["longitude"])
		assert.Equal(t, "", flat["altitude"])
	})
}

func TestFlatten_ClassificationData(t *testing.T) {
	t.Run("counts all candidates but ranks only three", func(t *testing.T) {
		flat := Flatten(mustRecord(t, `{"classification_data": {"family": [
			{"name": "Nymphalidae", "confidence": 0.9},
			{"name": "Pieridae", "confidence": 0.05},
			{"name": "Lycaenidae", "confidence": 0.03},
			{"name": "Hesperiidae", "confidence": 0.02}
		]}}`), domain.TableClassification)

		assert.Equal(t, "4", flat["classification_family_count"])
		assert.Equal(t, "Nymphalidae", flat["classification_family_1_name"])
		assert.Equal(t, "0.9", flat["classification_family_1_confidence"])
		assert.Equal(t, "Pieridae", flat["classification_family_2_name"])
		assert.Equal(t, "Lycaenidae", flat["classification_family_3_name"])
		_, present := flat["classification_family_4_name"]
		assert.False(t, present, "no columns past rank 3")
	})

	t.Run("ill-formed candidate is counted but skipped", func(t *testing.T) {
		flat := Flatten(mustRecord(t, `{"classification_data": {"genus": [
			{"name": "Vanessa", "confidence": 0.8},
			"junk",
			{"name": "Pieris", "confidence": 0.1}
		]}}`), domain.TableClassification)

		assert.Equal(t, "3", flat["classification_genus_count"])
		assert.Equal(t, "Vanessa", flat["classification_genus_1_name"])
		_, present := flat["classification_genus_2_name"]
		assert.False(t, present)
		assert.Equal(t, "Pieris", flat["classification_genus_3_name"])
	})

	t.Run("candidate missing confidence is skipped", func(t *testing.T) {
		flat := Flatten(mustRecord(t,
			`{"classification_data": {"species": [{"name": "Vanessa cardui"}]}}`), domain.TableClassification)
		assert.Equal(t, "1", flat["classification_species_count"])
		_, present := flat["classification_species_1_name"]
		assert.False(t, present)
	})

	t.Run("empty candidate list keeps the count", func(t *testing.T) {
		flat := Flatten(mustRecord(t, `{"classification_data": {"family": []}}`), domain.TableClassification)
		assert.Equal(t, "0", flat["classification_family_count"])
	})

	t.Run("non-record data emits nothing", func(t *testing.T) {
		flat := Flatten(mustRecord(t, `{"classification_data": "corrupt"}`), domain.TableClassification)
		for col := range flat {
			assert.NotContains(t, col, "classification_", "unexpected column %s", col)
		}
	})

	t.Run("non-list level is skipped", func(t *testing.T) {
		flat := Flatten(mustRecord(t,
			`{"classification_data": {"family": {"name": "x"}, "genus": [{"name": "g", "confidence": 1}]}}`),
			domain.TableClassification)
		_, present := flat["classification_family_count"]
		assert.False(t, present)
		assert.Equal(t, "1", flat["classification_genus_count"])
	})
}

func TestFlatten_Metadata(t *testing.T) {
	t.Run("nested records join keys with underscores", func(t *testing.T) {
		flat := Flatten(mustRecord(t,
			`{"metadata": {"camera": {"settings": {"iso": 800}}, "note": "dawn"}}`), domain.TableDetection)
		assert.Equal(t, "800", flat["metadata_camera_settings_iso"])
		assert.Equal(t, "dawn", flat["metadata_note"])
	})

	t.Run("lists stay as one JSON column", func(t *testing.T) {
		flat := Flatten(mustRecord(t, `{"metadata": {"tags": ["a", "b"]}}`), domain.TableDetection)
		assert.Equal(t, `["a","b"]`, flat["metadata_tags"])
	})

	t.Run("scalar metadata is consumed without columns", func(t *testing.T) {
		flat := Flatten(mustRecord(t, `{"metadata": "free text"}`), domain.TableDetection)
		_, present := flat["metadata"]
		assert.False(t, present)
	})

	t.Run("empty record is consumed without columns", func(t *testing.T) {
		flat := Flatten(mustRecord(t, `{"metadata": {}}`), domain.TableDetection)
		assert.Empty(t, flat)
	})
}

func TestFlatten_DeepMetadataDegrades(t *testing.T) {
	inner := domain.Record{"leaf": domain.Number("1")}
	for i := 0; i < 80; i++ {
		inner = domain.Record{"n": domain.RecordValue(inner)}
	}
	rec := domain.Record{"metadata": domain.RecordValue(inner)}

	flat := Flatten(rec, domain.TableDetection)

	require.Len(t, flat, 1)
	for col, val := range flat {
		assert.Contains(t, col, "metadata_n")
		assert.Contains(t, val, `"leaf":1`)
	}
}

func TestFlatten_EnvironmentPanel(t *testing.T) {
	flat := Flatten(mustRecord(t, `{
		"device_id": "dev-1",
		"pm2p5": 12.5,
		"temperature": -5.25,
		"humidity": 60,
		"voc_index": 103
	}`), domain.TableEnvironmental)

	assert.Equal(t, "12.5", flat["pm2p5"])
	assert.Equal(t, "-5.25", flat["temperature"])
	assert.Equal(t, "60", flat["humidity"])
	assert.Equal(t, "103", flat["voc_index"])
}

func TestFlatten_EnvironmentPanelOnDetections(t *testing.T) {
	// Stations may attach readings inline on any record type.
	flat := Flatten(mustRecord(t,
		`{"device_id": "dev-1", "model_id": "m", "temperature": 21.5}`), domain.TableDetection)
	assert.Equal(t, "21.5", flat["temperature"])
}

func TestFlatten_CatchAll(t *testing.T) {
	t.Run("unknown scalars pass through", func(t *testing.T) {
		flat := Flatten(mustRecord(t, `{"firmware": "v2.1", "battery_ok": true, "rssi": -67}`), domain.TableDevice)
		assert.Equal(t, "v2.1", flat["firmware"])
		assert.Equal(t, "true", flat["battery_ok"])
		assert.Equal(t, "-67", flat["rssi"])
	})

	t.Run("unknown compound values become JSON columns", func(t *testing.T) {
		flat := Flatten(mustRecord(t, `{"calibration": {"offset": 0.5}, "channels": [1, 2]}`), domain.TableDevice)
		assert.Equal(t, `{"offset":0.5}`, flat["calibration"])
		assert.Equal(t, `[1,2]`, flat["channels"])
	})

	t.Run("environment record flattens one level", func(t *testing.T) {
		flat := Flatten(mustRecord(t,
			`{"environment": {"temperature": 21.5, "sensor": {"kind": "sht45"}}}`), domain.TableDetection)
		assert.Equal(t, "21.5", flat["environment_temperature"])
		assert.Equal(t, `{"kind":"sht45"}`, flat["environment_sensor"])
		_, present := flat["environment"]
		assert.False(t, present)
	})

	t.Run("environment list is dropped", func(t *testing.T) {
		flat := Flatten(mustRecord(t, `{"environment": [1, 2]}`), domain.TableDetection)
		assert.Empty(t, flat)
	})

	t.Run("environment scalar passes through", func(t *testing.T) {
		flat := Flatten(mustRecord(t, `{"environment": "greenhouse"}`), domain.TableDetection)
		assert.Equal(t, "greenhouse", flat["environment"])
	})
}

func TestFlatten_NullsAndBools(t *testing.T) {
	flat := Flatten(mustRecord(t, `{"name": null, "active": true, "muted": false}`), domain.TableDevice)
	assert.Equal(t, "", flat["name"])
	assert.Equal(t, "true", flat["active"])
	assert.Equal(t, "false", flat["muted"])
}

func TestFlatten_Deterministic(t *testing.T) {
	rec := mustRecord(t, `{
		"device_id": "dev-1",
		"bounding_box": [1, 2, 3, 4],
		"metadata": {"a": {"b": 1}},
		"environment": {"temperature": 20}
	}`)

	first := Flatten(rec, domain.TableDetection)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Flatten(rec, domain.TableDetection))
	}
}
