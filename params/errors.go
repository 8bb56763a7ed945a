package params

import "errors"

var (
	errRequired       = errors.New("missing required parameter")
	errCannotBeNil    = errors.New("parameter cannot be nil")
	errExpectSequence = errors.New("expected a sequence of values")
	errArityMismatch  = errors.New("unexpected number of values")
)
