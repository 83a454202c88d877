package scheduling

import "errors"

// ErrValidation marks a booking request rejected for missing required fields.
// It shapes the tool reply; it never ends a call.
var ErrValidation = errors.New("validation failed")
