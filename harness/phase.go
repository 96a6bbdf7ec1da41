package harness

// Phase is a state of the stimulus sequencer.
type Phase int

// Phases in the order a run goes through them.
const (
	PhaseInit Phase = iota
	PhaseResetting
	PhaseDriving
	PhaseRunning
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "INIT"
	case PhaseResetting:
		return "RESETTING"
	case PhaseDriving:
		return "DRIVING"
	case PhaseRunning:
		return "RUNNING"
	case PhaseDone:
		return "DONE"
	default:
		return "UNKNOWN"
	}
}

// Outcome tells how the run loop ended.
type Outcome int

// Run loop outcomes.
const (
	OutcomeNone Outcome = iota
	OutcomeFinished
	OutcomeBudgetExhausted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFinished:
		return "finished"
	case OutcomeBudgetExhausted:
		return "budget exhausted"
	default:
		return "none"
	}
}
