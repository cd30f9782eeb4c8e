package export

import "sort"

// priorityColumns fixes the left-to-right order of well-known columns.
// Columns outside this list sort lexicographically after it. Consumers
// depend on identity and time landing first.
var priorityColumns = []string{
	"device_id", "timestamp", "model_id", "id", "name", "type",
	"family", "genus", "species",
	"family_confidence", "genus_confidence", "species_confidence",
	"bbox_xmin", "bbox_ymin", "bbox_xmax", "bbox_ymax",
	"latitude", "longitude", "altitude",
	"image_key", "image_bucket", "video_key", "video_bucket",
	"track_id", "created", "description", "version",
}

// orderColumns returns the deterministic header order for the given column
// set: priority columns that are present, in priority order, then the rest
// sorted. The result depends only on set membership, so any permutation of
// the input records produces the same header.
func orderColumns(present map[string]bool) []string {
	ordered := make([]string, 0, len(present))
	seen := make(map[string]bool, len(present))
	for _, col := range priorityColumns {
		if present[col] {
			ordered = append(ordered, col)
			seen[col] = true
		}
	}
	rest := make([]string, 0, len(present))
	for col := range present {
		if !seen[col] {
			rest = append(rest, col)
		}
	}
	sort.Strings(rest)
	return append(ordered, rest...)
}
