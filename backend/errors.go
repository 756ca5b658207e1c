// Copyright 2026 The Event Control Authors
// SPDX-License-Identifier: Apache-2.0

package backend

import "fmt"

// Error is a failed request to the hosted backend's HTTP API.
type Error struct {
	// StatusCode is the HTTP status of the failed request.
	StatusCode int

	// Message is the backend's error message, when it sent one.
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("backend: HTTP %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether the error is a 404. Note that row-level
// "no rows matched" is NOT an error in this API — it returns an empty
// result set. A 404 means the table or endpoint itself is wrong.
func (e *Error) IsNotFound() bool {
	return e.StatusCode == 404
}
