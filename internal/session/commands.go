package session

import (
	"errors"
	"fmt"

	"pixelpress/internal/imaging"
)

// ErrRejected marks an event the current state does not accept. The
// session state is unchanged when it is returned.
var ErrRejected = errors.New("event rejected")

// ErrClosed is returned by all operations after Close.
var ErrClosed = errors.New("session closed")

func rejectf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrRejected, fmt.Sprintf(format, args...))
}

type command interface{ isCommand() }

type loadPhotoCmd struct {
	raw   []byte
	reply chan error
}

type chooseFormatCmd struct {
	format imaging.Format
	reply  chan error
}

type chooseQualityCmd struct {
	quality float64
	reply   chan error
}

type startConversionCmd struct {
	reply chan error
}

type resetCmd struct {
	reply chan error
}

type snapshotCmd struct {
	reply chan Snapshot
}

type exportCmd struct {
	dir   string
	reply chan exportReply
}

type exportReply struct {
	path string
	err  error
}

// encodeDoneMsg is the explicit handoff from the encode worker back to
// the owner loop. gen ties it to the encode attempt that produced it.
type encodeDoneMsg struct {
	gen      uint64
	result   imaging.Result
	archival []byte
	err      error
}

func (loadPhotoCmd) isCommand()       {}
func (chooseFormatCmd) isCommand()    {}
func (chooseQualityCmd) isCommand()   {}
func (startConversionCmd) isCommand() {}
func (resetCmd) isCommand()           {}
func (snapshotCmd) isCommand()        {}
func (exportCmd) isCommand()          {}
func (encodeDoneMsg) isCommand()      {}
