package starter

import "errors"

// ErrInvalidConfiguration is returned when parameters or policies supplied at
// setup cannot start a run.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// ErrNumericDivergence is returned when a step produces a non-finite
// quantity. The step is rejected and the previous state remains valid, so
// the condition is recoverable.
var ErrNumericDivergence = errors.New("numeric divergence")
