package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/sensing-garden/backend/internal/domain"
)

// parseListParams reads the shared read-endpoint query parameters. Unknown
// parameters are ignored; a limit that does not parse as an integer is the
// only rejection. sort_desc follows the client convention of a lowercase
// "true", anything else reads as ascending.
func parseListParams(r *http.Request, defaultLimit int) (domain.QueryParams, error) {
	q := r.URL.Query()

	p := domain.QueryParams{
		DeviceID:  q.Get("device_id"),
		ModelID:   q.Get("model_id"),
		StartTime: q.Get("start_time"),
		EndTime:   q.Get("end_time"),
		NextToken: q.Get("next_token"),
		SortBy:    q.Get("sort_by"),
		SortDesc:  strings.EqualFold(q.Get("sort_desc"), "true"),
		Limit:     defaultLimit,
	}

	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return domain.QueryParams{}, fmt.Errorf("Invalid limit value: %s", raw)
		}
		p.Limit = n
	}

	return p, nil
}
