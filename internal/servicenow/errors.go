// Copyright (c) 2024 Netskope, Inc. All rights reserved.

package servicenow

import (
	"errors"
	"fmt"
)

// ErrBadResult is returned when the response body has no usable "result"
// array. Match with errors.Is.
var ErrBadResult = errors.New("'result' in response body is either missing or is not an array")

// APIError represents a non-success Table API response. The status code and
// response body are preserved for the caller; failed requests are never
// retried.
type APIError struct {
	StatusCode int
	Status     string
	Body       string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("table API request failed: %s", e.Status)
	}
	return fmt.Sprintf("table API request failed: %s: %s", e.Status, e.Body)
}
