package avatar

import "errors"

var (
	// ErrInvalidInput is returned when an identity has no usable address.
	ErrInvalidInput = errors.New("invalid contact address")

	// ErrNotFound is returned when a contact has no photo locator, or the
	// locator cannot be opened.
	ErrNotFound = errors.New("contact photo not found")

	// ErrDecode is returned when photo bytes are corrupt or in an
	// unsupported format.
	ErrDecode = errors.New("contact photo cannot be decoded")

	// ErrDispatchRejected is returned when the background worker pool
	// refuses a fetch because it is saturated or stopped.
	ErrDispatchRejected = errors.New("fetch dispatch rejected")
)
