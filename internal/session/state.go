package session

import "pixelpress/internal/imaging"

// StateKind identifies a workflow state.
type StateKind string

const (
	StateIdle       StateKind = "idle"
	StateSelecting  StateKind = "selecting"
	StateConverting StateKind = "converting"
	StateCompleted  StateKind = "completed"
	StateFailed     StateKind = "failed"
)

// FailureCode classifies why a session entered the Failed state. Two
// Failed states are equal iff their codes match; message text never
// participates in equality.
type FailureCode string

const (
	FailureUnsupportedInput FailureCode = "unsupported_input"
	FailureEncodingFailed   FailureCode = "encoding_failed"
	FailureEncodeTimeout    FailureCode = "encode_timeout"
	FailurePersistence      FailureCode = "persistence_failed"
)

// State is the tagged workflow state. Failure is set only when Kind is
// StateFailed. State values are comparable; == implements the equality
// the workflow needs.
type State struct {
	Kind    StateKind
	Failure FailureCode
}

// Snapshot is a read-only view of the session taken by the owner loop.
// Byte slices are copies; callers may retain them freely.
type Snapshot struct {
	State          State
	HasImage       bool
	Format         imaging.Format
	FormatChosen   bool
	Quality        float64
	QualityChosen  bool
	ConvertedBytes []byte
	EncodedFormat  imaging.Format
	Fallback       bool
	JobID          string
}

// Step projects the workflow state onto the 0..4 screen index used by
// presentation layers. It is derived, never stored.
func (s Snapshot) Step() int {
	switch s.State.Kind {
	case StateIdle:
		return 0
	case StateSelecting:
		if s.FormatChosen {
			return 2
		}
		return 1
	case StateConverting, StateFailed:
		return 3
	case StateCompleted:
		return 4
	default:
		return 0
	}
}
