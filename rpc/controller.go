// Package rpc holds the transport-agnostic core: the per-call controller,
// the in-process service registry, and the dispatcher that ties a parsed
// frame to a registered method.
package rpc

// Controller carries per-call state: the caller's deadline going in, and
// the failed flag plus error text coming out. It is created fresh by the
// caller for each call and is not safe to share across concurrent calls —
// at most one call uses a given controller at a time.
type Controller struct {
	failed    bool
	errText   string
	timeoutMs int
}

// defaultTimeoutMs is the deadline a freshly constructed controller
// carries until SetTimeout overrides it.
const defaultTimeoutMs = 5000

// NewController returns a controller with the default 5 second timeout.
func NewController() *Controller {
	return &Controller{timeoutMs: defaultTimeoutMs}
}

// Reset clears the failed flag and error text, leaving the timeout as-is.
func (c *Controller) Reset() {
	c.failed = false
	c.errText = ""
}

// Failed reports whether the call this controller was passed to failed.
func (c *Controller) Failed() bool {
	return c.failed
}

// ErrorText is the reason the call failed, or "" if it did not.
func (c *Controller) ErrorText() string {
	return c.errText
}

// SetFailed marks the call failed with the given reason.
func (c *Controller) SetFailed(reason string) {
	c.failed = true
	c.errText = reason
}

// SetTimeout sets the receive deadline, in milliseconds, for the next call.
func (c *Controller) SetTimeout(ms int) {
	c.timeoutMs = ms
}

// GetTimeout returns the current receive deadline in milliseconds.
func (c *Controller) GetTimeout() int {
	return c.timeoutMs
}

// StartCancel is permanently inert: this framework never cancels a call
// in flight.
func (c *Controller) StartCancel() {}

// IsCanceled always reports false, for the same reason StartCancel is a
// no-op.
func (c *Controller) IsCanceled() bool {
	return false
}
