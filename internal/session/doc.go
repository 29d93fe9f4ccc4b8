// Package session implements the conversion workflow state machine.
//
// A Session owns all workflow state on a single goroutine: public methods
// post commands into that loop and wait for the reply, and the encode
// worker reports completion the same way. No state is ever touched from
// another goroutine, so there is no locking on the data itself.
//
// The machine moves Idle -> Selecting -> Converting -> Completed, with
// Failed reachable from Converting and Reset returning to Idle from any
// terminal state. At most one encode is in flight; Reset while converting
// cancels it, and a late completion from a cancelled encode is discarded.
package session
