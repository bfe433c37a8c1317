package meter

import "errors"

// ErrInvalidConfiguration indicates a configuration mutation that would leave
// the meter in an unusable state (inverted bounds, noise floor equal to the
// scale maximum, non-finite values). Raised at configuration time, never
// during frame updates.
var ErrInvalidConfiguration = errors.New("invalid meter configuration")

// ErrInvalidSample indicates a non-numeric raw input. Negative infinity is
// explicitly allowed as the silence sentinel and does not trigger this error.
var ErrInvalidSample = errors.New("invalid sample")
