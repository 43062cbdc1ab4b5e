package authform

import "errors"

// ErrSubmitInProgress is returned by Submit and OAuth while another
// submission of the same form is in flight.
var ErrSubmitInProgress = errors.New("authform: submission already in progress")
