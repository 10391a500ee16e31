package api

import "fmt"

// Error is a non-2xx backend response. Detail carries the backend's JSON
// "detail" field when present, otherwise the raw response text.
type Error struct {
	Status int
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("backend returned status %d", e.Status)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.Status, e.Detail)
}

// MalformedResponseError marks a 2xx response whose body did not match the
// expected shape.
type MalformedResponseError struct {
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("unexpected response shape: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}
