// hybrid_errors.go - Error values raised by the hybrid execution bridge

package main

import "golang.org/x/xerrors"

type bridgeError string

func (e bridgeError) Error() string { return string(e) }

// Faults: the instruction stream or the hand-off state can no longer be
// trusted and the session must end.
var (
	ErrImageOverflow     = bridgeError("hybrid: program image capacity exceeded")
	ErrNotHolding        = bridgeError("hybrid: assembler used while the emulator holds the CPU")
	ErrProtocolViolation = bridgeError("hybrid: yield from a context that does not hold the CPU")
	ErrHandoffTimeout    = bridgeError("hybrid: hand-off not answered in time")
)

var (
	ErrBridgeClosed     = bridgeError("hybrid: bridge closed")
	ErrStateUnsupported = bridgeError("hybrid: cannot restore state while native logic is attached")
	ErrBadSnapshot      = bridgeError("hybrid: malformed snapshot")
)

func isFault(err error) bool {
	return xerrors.Is(err, ErrImageOverflow) ||
		xerrors.Is(err, ErrNotHolding) ||
		xerrors.Is(err, ErrProtocolViolation) ||
		xerrors.Is(err, ErrHandoffTimeout)
}
