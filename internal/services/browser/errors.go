package browser

import (
	"errors"
	"fmt"
)

var (
	// ErrElementNotFound means a form field or control never became visible
	ErrElementNotFound = errors.New("element not found")

	// ErrSessionStart means Chrome could not be launched
	ErrSessionStart = errors.New("browser session failed to start")

	// ErrSessionClosed is returned by operations on a closed session
	ErrSessionClosed = errors.New("browser session closed")
)

// ExcerptLength is how much page source an ElementError carries
const ExcerptLength = 1000

// ElementError describes a failed element lookup together with the start
// of the page source at the time of the failure.
type ElementError struct {
	Selector string
	URL      string
	Excerpt  string
	Err      error
}

func (e *ElementError) Error() string {
	return fmt.Sprintf("%s: %s on %s: %v", ErrElementNotFound, e.Selector, e.URL, e.Err)
}

// Unwrap matches both ErrElementNotFound and the underlying chromedp error
func (e *ElementError) Unwrap() []error {
	return []error{ErrElementNotFound, e.Err}
}
