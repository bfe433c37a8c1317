package meter

// clipDetector edge-detects the needle crossing the clip threshold. It keeps
// no timing state: one enter per rising edge, one exit per falling edge,
// always judged against the threshold in force at evaluation time.
type clipDetector struct {
	clipping bool
}

// update evaluates the current needle position and reports edge transitions.
func (c *clipDetector) update(value, threshold float64) (entered, exited bool) {
	now := value > threshold
	switch {
	case now && !c.clipping:
		entered = true
	case !now && c.clipping:
		exited = true
	}
	c.clipping = now
	return entered, exited
}

// active reports whether the signal is currently clipping.
func (c *clipDetector) active() bool { return c.clipping }
