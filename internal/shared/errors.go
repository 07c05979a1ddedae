package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrTenantMisconfigured indicates incomplete tenant provisioning data.
	ErrTenantMisconfigured = errors.New("tenant misconfigured")
)
