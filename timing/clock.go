// Package timing owns the notion of simulation time for a harness run.
//
// Time advances in half-clock-edge steps. One full clock period therefore spans
// two steps: the step that drives the clock high (the rising edge) and the step
// that drives it low again.
package timing

// VTimeInStep is the simulation time, counted in half-clock-edge steps since the
// start of a run.
type VTimeInStep uint64

// TimeTeller exposes the current simulation time.
type TimeTeller interface {
	CurrentTime() VTimeInStep
}

// A Clock is the logical clock of one harness. It keeps the monotonic step
// counter and the level of the clock line. Each harness owns its own Clock, so
// several harnesses can run side by side.
type Clock struct {
	now   VTimeInStep
	level bool
}

// NewClock creates a clock at time 0 with the clock line low.
func NewClock() *Clock {
	return &Clock{}
}

// CurrentTime returns the timestamp of the step that has not been taken yet.
func (c *Clock) CurrentTime() VTimeInStep {
	return c.now
}

// Level returns the current level of the clock line.
func (c *Clock) Level() bool {
	return c.level
}

// Toggle flips the clock line and returns the new level. A true return value
// means the toggle produced a rising edge.
func (c *Clock) Toggle() bool {
	c.level = !c.level
	return c.level
}

// Advance moves the simulation time forward by exactly one step and returns
// the new time.
func (c *Clock) Advance() VTimeInStep {
	c.now++
	return c.now
}

// Cycle returns the number of full clock periods that have elapsed.
func (c *Clock) Cycle() uint64 {
	return uint64(c.now) / 2
}

var _ TimeTeller = (*Clock)(nil)
