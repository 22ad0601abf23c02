package sheets

import (
	"errors"
	"fmt"
)

var (
	ErrNoAPIKey     = errors.New("google api key not configured")
	ErrNotFound     = errors.New("spreadsheet not found")
	ErrNotPublished = errors.New("spreadsheet is not public")
	ErrRateLimited  = errors.New("google api rate limit exceeded")
)

type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("google sheets api status %d: %s", e.Status, e.Body)
}
