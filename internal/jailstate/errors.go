package jailstate

import "errors"

// ErrIllegalTransition is returned when a transition isn't in the legal
// table for the jail's current state.
var ErrIllegalTransition = errors.New("illegal state transition")
