package pipeline

import "github.com/ManuGH/rgbweaver/internal/pipeline/fsm"

// State is the lifecycle of one pipeline run.
type State string

const (
	StateStart              State = "start"
	StateMetadataExtracted  State = "metadata_extracted"
	StateOutputTypeResolved State = "output_type_resolved"
	StateStageExecuting     State = "stage_executing"
	StateDone               State = "done"
	StateFailed             State = "failed"
)

// IsTerminal returns true if the state is a final state.
func (s State) IsTerminal() bool {
	return s == StateDone || s == StateFailed
}

type event string

const (
	eventExtracted event = "extracted"
	eventResolved  event = "resolved"
	eventExecute   event = "execute"
	eventComplete  event = "complete"
	eventFail      event = "fail"
)

var runTransitions = []fsm.Transition[State, event]{
	{From: StateStart, Event: eventExtracted, To: StateMetadataExtracted},
	{From: StateMetadataExtracted, Event: eventResolved, To: StateOutputTypeResolved},
	{From: StateOutputTypeResolved, Event: eventExecute, To: StateStageExecuting},
	{From: StateStageExecuting, Event: eventComplete, To: StateDone},

	{From: StateStart, Event: eventFail, To: StateFailed},
	{From: StateMetadataExtracted, Event: eventFail, To: StateFailed},
	{From: StateOutputTypeResolved, Event: eventFail, To: StateFailed},
	{From: StateStageExecuting, Event: eventFail, To: StateFailed},
}

func newRunMachine() *fsm.Machine[State, event] {
	return fsm.MustNew(StateStart, runTransitions)
}
