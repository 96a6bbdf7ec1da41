// Package harness drives a unit through reset, a drive program and a run
// loop, one half clock edge at a time.
//
// A run goes through the phases INIT, RESETTING, DRIVING, RUNNING and DONE.
// Every step toggles the clock, evaluates the unit, records all signals in the
// trace sink at the current time and then advances the time. Writeback
// announcements are sampled on every step that completes a rising edge and
// are handed to hooks as Observations.
package harness

import (
	"github.com/pkg/errors"

	"github.com/sarchlab/backendtb/hooking"
	"github.com/sarchlab/backendtb/timing"
	"github.com/sarchlab/backendtb/trace"
	"github.com/sarchlab/backendtb/unit"
	"github.com/sarchlab/backendtb/uop"
)

// Errors reported by the harness.
var (
	ErrInvalidPulseWidth = errors.New("harness: reset pulse width must be at least 1 step")
	ErrInvalidBudget     = errors.New("harness: run budget must not be negative")
	ErrNotReset          = errors.New("harness: stimulus applied before reset completed")
	ErrNotStarted        = errors.New("harness: not started")
	ErrAlreadyStarted    = errors.New("harness: already started")
	ErrDone              = errors.New("harness: run is already done")
)

// Hook positions raised by the harness.
var (
	// HookPosBeforeStep fires before the clock toggles. Item is the time of
	// the step.
	HookPosBeforeStep = &hooking.HookPos{Name: "Before Step"}

	// HookPosAfterStep fires after the step is recorded. Item is the time of
	// the step.
	HookPosAfterStep = &hooking.HookPos{Name: "After Step"}

	// HookPosPhaseChange fires when a phase is entered. Item is the Phase and
	// Detail the phase that was left.
	HookPosPhaseChange = &hooking.HookPos{Name: "Phase Change"}

	// HookPosWriteback fires for every valid writeback. Item is the
	// Observation.
	HookPosWriteback = &hooking.HookPos{Name: "Writeback"}
)

// Observation is a valid writeback sampled from the unit.
type Observation struct {
	unit.Writeback

	Time  timing.VTimeInStep
	Cycle uint64
	Phase Phase
}

// Result summarizes a finished run.
type Result struct {
	Outcome      Outcome
	Steps        uint64
	RunSteps     int
	EndTime      timing.VTimeInStep
	Observations []Observation
}

// Harness is the stimulus sequencer. It is not safe for concurrent use.
type Harness struct {
	*hooking.HookableBase

	name       string
	clock      *timing.Clock
	adapter    *unit.Adapter
	encoder    uop.Encoder
	sink       trace.Sink
	traceDest  string
	resetWidth int
	budget     int
	program    []uop.Entry

	phase        Phase
	started      bool
	sinkClosed   bool
	resetDone    bool
	steps        uint64
	runSteps     int
	observations []Observation
}

// Name returns the name of the harness.
func (h *Harness) Name() string {
	return h.name
}

// Phase returns the current phase.
func (h *Harness) Phase() Phase {
	return h.phase
}

// CurrentTime returns the time of the next step.
func (h *Harness) CurrentTime() timing.VTimeInStep {
	return h.clock.CurrentTime()
}

// Adapter returns the adapter of the driven unit.
func (h *Harness) Adapter() *unit.Adapter {
	return h.adapter
}

// Encoder returns the instruction encoder.
func (h *Harness) Encoder() uop.Encoder {
	return h.encoder
}

// Budget returns the run loop budget used by Run.
func (h *Harness) Budget() int {
	return h.budget
}

// Steps returns how many steps have been taken.
func (h *Harness) Steps() uint64 {
	return h.steps
}

// Observations returns a copy of the valid writebacks seen so far.
func (h *Harness) Observations() []Observation {
	return append([]Observation(nil), h.observations...)
}

func (h *Harness) enter(p Phase) {
	prev := h.phase
	h.phase = p
	h.InvokeHook(hooking.HookCtx{
		Domain: h,
		Pos:    HookPosPhaseChange,
		Item:   p,
		Detail: prev,
	})
}

// Start opens the trace sink and drives the startup values: clock low and
// reset held.
func (h *Harness) Start() error {
	if h.started {
		return ErrAlreadyStarted
	}

	if err := h.sink.Open(h.traceDest); err != nil {
		return errors.Wrap(err, "opening trace")
	}

	h.started = true
	h.enter(PhaseInit)

	if err := h.adapter.SetInput(uop.PortClock, 0); err != nil {
		return err
	}

	return h.adapter.SetInput(uop.PortReset, 0)
}

// Step advances the simulation by one half clock edge.
func (h *Harness) Step() error {
	if !h.started {
		return ErrNotStarted
	}

	if h.phase == PhaseDone {
		return ErrDone
	}

	now := h.clock.CurrentTime()
	h.InvokeHook(hooking.HookCtx{Domain: h, Pos: HookPosBeforeStep, Item: now})

	rising := h.clock.Toggle()

	if err := h.adapter.SetInput(uop.PortClock, boolToU64(rising)); err != nil {
		return errors.Wrapf(err, "step at time %d", now)
	}

	if err := h.adapter.EvalStep(); err != nil {
		return errors.Wrapf(err, "step at time %d", now)
	}

	if err := h.sink.RecordAll(now); err != nil {
		return errors.Wrapf(err, "recording time %d", now)
	}

	if rising && (h.phase == PhaseDriving || h.phase == PhaseRunning) {
		if err := h.sampleWriteback(now); err != nil {
			return err
		}
	}

	h.clock.Advance()
	h.steps++

	h.InvokeHook(hooking.HookCtx{Domain: h, Pos: HookPosAfterStep, Item: now})

	return nil
}

func (h *Harness) sampleWriteback(now timing.VTimeInStep) error {
	wb, err := h.adapter.Writeback()
	if err != nil {
		return errors.Wrapf(err, "sampling writeback at time %d", now)
	}

	if !wb.Valid {
		return nil
	}

	o := Observation{
		Writeback: wb,
		Time:      now,
		Cycle:     h.clock.Cycle(),
		Phase:     h.phase,
	}
	h.observations = append(h.observations, o)

	h.InvokeHook(hooking.HookCtx{Domain: h, Pos: HookPosWriteback, Item: o})

	return nil
}

// Reset holds the reset line low for width steps and then releases it.
func (h *Harness) Reset(width int) error {
	if width < 1 {
		return errors.Wrapf(ErrInvalidPulseWidth, "got %d", width)
	}

	if !h.started {
		return ErrNotStarted
	}

	h.enter(PhaseResetting)
	h.resetDone = false

	if err := h.adapter.SetInput(uop.PortReset, 0); err != nil {
		return err
	}

	for i := 0; i < width; i++ {
		if err := h.Step(); err != nil {
			return errors.Wrap(err, "reset")
		}
	}

	if err := h.adapter.SetInput(uop.PortReset, 1); err != nil {
		return err
	}

	h.resetDone = true

	return nil
}

// Drive presents each entry of the program in order and holds it for the
// encoder's settle latency.
func (h *Harness) Drive(program []uop.Entry) error {
	if !h.resetDone {
		return ErrNotReset
	}

	h.enter(PhaseDriving)

	for i, entry := range program {
		assignments, err := h.encoder.Encode(entry)
		if err != nil {
			return errors.Wrapf(err, "encoding entry %d (%s)", i, entry)
		}

		if err := h.adapter.Apply(assignments); err != nil {
			return errors.Wrapf(err, "driving entry %d (%s)", i, entry)
		}

		for s := 0; s < h.encoder.SettleLatency(); s++ {
			if err := h.Step(); err != nil {
				return errors.Wrapf(err, "driving entry %d (%s)", i, entry)
			}
		}
	}

	return nil
}

// RunLoop removes the last instruction from the inputs and steps until the
// unit finishes or budget steps have been taken.
func (h *Harness) RunLoop(budget int) (Outcome, error) {
	if budget < 0 {
		return OutcomeNone, errors.Wrapf(ErrInvalidBudget, "got %d", budget)
	}

	if !h.resetDone {
		return OutcomeNone, ErrNotReset
	}

	h.enter(PhaseRunning)

	if err := h.adapter.Apply(h.encoder.Idle()); err != nil {
		return OutcomeNone, errors.Wrap(err, "clearing instruction inputs")
	}

	h.runSteps = 0

	for {
		if h.adapter.IsFinished() {
			return OutcomeFinished, nil
		}

		if h.runSteps >= budget {
			return OutcomeBudgetExhausted, nil
		}

		if err := h.Step(); err != nil {
			return OutcomeNone, errors.Wrap(err, "run loop")
		}

		h.runSteps++
	}
}

// Finish enters DONE and closes the trace sink. Only the first call closes
// the sink.
func (h *Harness) Finish() error {
	if h.phase != PhaseDone {
		h.enter(PhaseDone)
	}

	if h.sinkClosed || !h.started {
		return nil
	}

	h.sinkClosed = true

	return errors.Wrap(h.sink.Close(), "closing trace")
}

// Run performs a whole run with the configured reset width, program and
// budget. The trace sink is closed on every path out of Run.
func (h *Harness) Run() (res Result, err error) {
	defer func() {
		closeErr := h.Finish()
		if err == nil {
			err = closeErr
		}

		res.Steps = h.steps
		res.RunSteps = h.runSteps
		res.EndTime = h.clock.CurrentTime()
		res.Observations = h.Observations()
	}()

	if err = h.Start(); err != nil {
		return res, err
	}

	if err = h.Reset(h.resetWidth); err != nil {
		return res, err
	}

	if err = h.Drive(h.program); err != nil {
		return res, err
	}

	res.Outcome, err = h.RunLoop(h.budget)

	return res, err
}

func boolToU64(b bool) uint64 {
	if b {
		return 1
	}

	return 0
}
