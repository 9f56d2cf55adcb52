package composer

// State is a pipeline state.
type State string

const (
	StateNotStarted State = "not_started"
	StateCompiling  State = "compiling"
	StateMerging    State = "merging"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// Observer is notified of every state transition of a pipeline run.
type Observer func(from, to State)
