package gitbook

import (
	"fmt"
	"net/http"

	"github.com/gitbook-qa/gitbook-qa/internal/core/domain"
)

// HTTPError is a non-2xx response.
type HTTPError struct {
	StatusCode int
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("gitbook: %s returned %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Unwrap lets callers match the failure with errors.Is(err, domain.ErrFetch).
func (e *HTTPError) Unwrap() error {
	return domain.ErrFetch
}
