// Package httputil provides shared HTTP response and request helpers.
//
// Handlers use these instead of writing raw http.ResponseWriter calls,
// keeping the JSON error envelope, CSV attachment headers, and body
// decoding consistent across all endpoints.
package httputil
