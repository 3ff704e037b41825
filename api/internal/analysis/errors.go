package analysis

import "fmt"

// InputError is a request the client must fix. It maps to 400.
type InputError struct {
	Title  string
	Detail string
}

func (e *InputError) Error() string { return e.Title + ": " + e.Detail }

// UpstreamError is a failed model call. It maps to 502.
type UpstreamError struct {
	Title string
	Err   error
}

func (e *UpstreamError) Error() string { return fmt.Sprintf("%s: %v", e.Title, e.Err) }

func (e *UpstreamError) Unwrap() error { return e.Err }
