package logger

import "strings"

// RedactCoordinate truncates a coordinate to two decimal places for safe
// logging, masking the rest.
// "40.730610" → "40.73***"
// Values with two or fewer decimals pass through unchanged.
func RedactCoordinate(coord string) string {
	i := strings.IndexByte(coord, '.')
	if i < 0 {
		return coord
	}
	frac := coord[i+1:]
	if len(frac) <= 2 {
		return coord
	}
	end := i + 3
	if end > len(coord) {
		end = len(coord)
	}
	return coord[:end] + "***"
}
