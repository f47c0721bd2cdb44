package pandascore

import (
	"fmt"

	crerr "github.com/cockroachdb/errors"
)

var errPandaScoreTransient = crerr.New("pandascore transient failure")

// APIError is a non-2xx provider response.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("pandascore status=%d body=%s", e.Status, e.Body)
}
