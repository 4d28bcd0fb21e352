package agent

import "time"

type StepType int

const (
	// StepThinking carries a fragment of model text as it streams.
	StepThinking StepType = iota
	StepToolCall
	StepObservation
	StepToolError
	StepWarning
)

func (t StepType) String() string {
	switch t {
	case StepThinking:
		return "thinking"
	case StepToolCall:
		return "tool_call"
	case StepObservation:
		return "observation"
	case StepToolError:
		return "tool_error"
	case StepWarning:
		return "warning"
	default:
		return "unknown"
	}
}

// StepEvent is one unit of visible progress emitted before the final answer.
type StepEvent struct {
	Type      StepType
	Tool      string
	SQL       string
	Detail    string
	Iteration int
	At        time.Time
}
