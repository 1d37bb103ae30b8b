package catalog

import (
	"fmt"
	"net/http"
)

// CatalogError reports a failed IGDB request: either a non-200 response
// (StatusCode and Body set) or a transport/decoding failure (Err set).
type CatalogError struct {
	Op         string // Operation that failed (e.g., "request", "decode response")
	Endpoint   string // IGDB endpoint, e.g. "games"
	StatusCode int    // HTTP status, 0 when no response was received
	Body       string // Raw response body for non-200 responses
	Err        error  // Underlying error
}

func (e *CatalogError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("igdb api: %s %s: %v", e.Op, e.Endpoint, e.Err)
	}
	return fmt.Sprintf("igdb api: %s %s: status %d: %s", e.Op, e.Endpoint, e.StatusCode, e.Body)
}

func (e *CatalogError) Unwrap() error {
	return e.Err
}

// Unauthorized reports whether IGDB rejected the bearer token.
func (e *CatalogError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}
