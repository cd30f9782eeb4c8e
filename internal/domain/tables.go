package domain

// TableType identifies one of the platform's record families. Values are
// the singular spellings used in export filenames and storage routing.
type TableType string

const (
	TableDetection      TableType = "detection"
	TableClassification TableType = "classification"
	TableModel          TableType = "model"
	TableVideo          TableType = "video"
	TableEnvironmental  TableType = "environmental_reading"
	TableDevice         TableType = "device"
)

// TableParams lists the accepted values of the HTTP table parameter, in
// the order they are reported to clients.
var TableParams = []string{"detections", "classifications", "models", "videos", "environment", "devices"}

var paramToTable = map[string]TableType{
	"detections":      TableDetection,
	"classifications": TableClassification,
	"models":          TableModel,
	"videos":          TableVideo,
	"environment":     TableEnvironmental,
	"devices":         TableDevice,
}

// ParseTableParam maps a request table parameter (plural spelling, with
// the legacy "environment" alias) to its TableType.
func ParseTableParam(s string) (TableType, bool) {
	t, ok := paramToTable[s]
	return t, ok
}

// KeyAttribute returns the hash key attribute name for the table.
func (t TableType) KeyAttribute() string {
	if t == TableModel {
		return "id"
	}
	return "device_id"
}

// RangeAttribute returns the range key attribute name, or "" for tables
// keyed by hash only.
func (t TableType) RangeAttribute() string {
	switch t {
	case TableModel:
		return ""
	case TableDevice:
		return "created"
	default:
		return "timestamp"
	}
}
