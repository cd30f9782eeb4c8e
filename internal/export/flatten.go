package export

import (
	"encoding/json"
	"strconv"

	"github.com/sensing-garden/backend/internal/domain"
)

// passthroughFields are top-level scalars copied straight into columns of
// the same name when present.
var passthroughFields = []string{
	"device_id", "timestamp", "model_id", "id", "name", "description",
	"version", "type", "image_key", "image_bucket", "video_key",
	"video_bucket", "family", "genus", "species", "family_confidence",
	"genus_confidence", "species_confidence", "track_id", "created",
}

// environmentFields is the sensor panel recognized at the top level of any
// record, not just environmental readings. Detections from stations that
// attach readings inline get the same columns.
var environmentFields = []string{
	"pm1p0", "pm2p5", "pm4p0", "pm10p0",
	"temperature", "humidity", "ambient_temperature", "ambient_humidity",
	"light_level", "pressure", "soil_moisture",
	"wind_speed", "wind_direction", "uv_index", "voc_index", "nox_index",
}

// classificationLevels are the taxonomy levels carried by candidate lists.
var classificationLevels = []string{"family", "genus", "species"}

// maxNestingDepth bounds metadata recursion. Structure deeper than this
// degrades to a single JSON column at the boundary.
const maxNestingDepth = 64

// Flatten projects one record onto a flat column-to-string mapping. It is
// total: malformed substructure degrades to empty or JSON-string columns,
// never an error, so one bad record cannot sink an export.
func Flatten(rec domain.Record, table domain.TableType) map[string]string {
	flat := make(map[string]string, len(rec))
	handled := make(map[string]bool, len(rec))

	for _, field := range passthroughFields {
		if v, ok := rec[field]; ok {
			flat[field] = safeStringify(v)
			handled[field] = true
		}
	}

	if v, ok := rec["bounding_box"]; ok {
		flattenBoundingBox(v, flat)
		handled["bounding_box"] = true
	}
	if v, ok := rec["location"]; ok {
		flattenLocation(v, flat)
		handled["location"] = true
	}
	if v, ok := rec["classification_data"]; ok {
		flattenClassificationData(v, flat)
		handled["classification_data"] = true
	}
	if v, ok := rec["metadata"]; ok {
		flattenNested(v, "metadata", 0, flat)
		handled["metadata"] = true
	}

	for _, field := range environmentFields {
		if v, ok := rec[field]; ok {
			flat[field] = safeStringify(v)
			handled[field] = true
		}
	}

	for key, v := range rec {
		if handled[key] {
			continue
		}
		switch v.Kind() {
		case domain.KindRecord:
			if key == "environment" {
				env, _ := v.AsRecord()
				for sub, sv := range env {
					flat["environment_"+sub] = safeStringify(sv)
				}
				continue
			}
			flat[key] = safeStringify(v)
		case domain.KindList:
			// An "environment" list has no column mapping and is dropped.
			if key == "environment" {
				continue
			}
			flat[key] = safeStringify(v)
		default:
			flat[key] = safeStringify(v)
		}
	}

	return flat
}

// flattenBoundingBox splits a four-element box into min/max columns.
// Anything that is not exactly four elements yields empty columns so the
// row keeps its shape.
func flattenBoundingBox(v domain.Value, flat map[string]string) {
	elems, ok := v.AsList()
	if !ok || len(elems) != 4 {
		flat["bbox_xmin"] = ""
		flat["bbox_ymin"] = ""
		flat["bbox_xmax"] = ""
		flat["bbox_ymax"] = ""
		return
	}
	flat["bbox_xmin"] = safeStringify(elems[0])
	flat["bbox_ymin"] = safeStringify(elems[1])
	flat["bbox_xmax"] = safeStringify(elems[2])
	flat["bbox_ymax"] = safeStringify(elems[3])
}

// flattenLocation splits a {lat, long, alt} record into coordinate columns.
func flattenLocation(v domain.Value, flat map[string]string) {
	loc, ok := v.AsRecord()
	if !ok {
		flat["latitude"] = ""
		flat["longitude"] = ""
		flat["altitude"] = ""
		return
	}
	get := func(key string) string {
		sv, present := loc[key]
		if !present {
			return ""
		}
		return safeStringify(sv)
	}
	flat["latitude"] = get("lat")
	flat["longitude"] = get("long")
	flat["altitude"] = get("alt")
}

// flattenClassificationData emits, per taxonomy level holding a candidate
// list, the candidate count plus name and confidence for the top three
// ranks. A candidate missing name or confidence is skipped but still
// counted.
func flattenClassificationData(v domain.Value, flat map[string]string) {
	data, ok := v.AsRecord()
	if !ok {
		return
	}
	for _, level := range classificationLevels {
		candidates, isList := data[level].AsList()
		if !isList {
			continue
		}
		flat["classification_"+level+"_count"] = strconv.Itoa(len(candidates))
		for i, cand := range candidates {
			if i >= 3 {
				break
			}
			c, isRec := cand.AsRecord()
			if !isRec {
				continue
			}
			name, hasName := c["name"]
			conf, hasConf := c["confidence"]
			if !hasName || !hasConf {
				continue
			}
			rank := strconv.Itoa(i + 1)
			flat["classification_"+level+"_"+rank+"_name"] = safeStringify(name)
			flat["classification_"+level+"_"+rank+"_confidence"] = safeStringify(conf)
		}
	}
}

// flattenNested walks a metadata record, joining keys with underscores.
// Lists stay as single JSON columns; scalars stringify in place.
func flattenNested(v domain.Value, prefix string, depth int, flat map[string]string) {
	rec, ok := v.AsRecord()
	if !ok || len(rec) == 0 {
		return
	}
	if depth >= maxNestingDepth {
		flat[prefix] = safeStringify(v)
		return
	}
	for key, sv := range rec {
		nested := prefix + "_" + key
		if sv.Kind() == domain.KindRecord {
			flattenNested(sv, nested, depth+1, flat)
			continue
		}
		flat[nested] = safeStringify(sv)
	}
}

// safeStringify renders any Value as CSV cell text: null becomes empty,
// bools lowercase, numbers keep their verbatim decimal text, and compound
// values serialize to compact JSON. Total by construction.
func safeStringify(v domain.Value) string {
	switch v.Kind() {
	case domain.KindNull:
		return ""
	case domain.KindBool:
		b, _ := v.AsBool()
		if b {
			return "true"
		}
		return "false"
	case domain.KindNumber:
		text, _ := v.NumberText()
		return text
	case domain.KindString:
		s, _ := v.AsString()
		return s
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
