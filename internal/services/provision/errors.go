package provision

import (
	"errors"
	"fmt"
)

var (
	// ErrProvisioning wraps every failure to create a test account
	ErrProvisioning = errors.New("account provisioning failed")

	// ErrInvalidAccount means the generated account breaks the signup rules
	ErrInvalidAccount = errors.New("invalid test account")
)

// ProvisionError is returned when the signup endpoint answers with anything
// other than 201 Created.
type ProvisionError struct {
	StatusCode int
	Body       string
	URL        string
}

func (e *ProvisionError) Error() string {
	return fmt.Sprintf("%s: %s returned status %d: %s", ErrProvisioning, e.URL, e.StatusCode, e.Body)
}

// Unwrap lets errors.Is(err, ErrProvisioning) match
func (e *ProvisionError) Unwrap() error {
	return ErrProvisioning
}
