package mashing

import "errors"

var (
	// ErrNotReady indicates Start was called before Init bound the
	// sensor, heater and buttons.
	ErrNotReady = errors.New("mashing: not ready, call Init first")

	// ErrAlreadyActive indicates Start was called while a run is in
	// progress.
	ErrAlreadyActive = errors.New("mashing: a run is already active")

	// ErrIllegalRestState indicates a rest state transition that skips
	// or regresses the lifecycle ladder. This is a programming fault,
	// not an operational condition.
	ErrIllegalRestState = errors.New("mashing: illegal rest state transition")
)
