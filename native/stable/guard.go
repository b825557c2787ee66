package stable

import (
	"errors"
	"sync/atomic"
)

// ErrEnginePaused is returned when an operator has halted engine flows.
var ErrEnginePaused = errors.New("stable engine: paused")

// PauseView lets an operator halt engine flows without touching engine state.
type PauseView interface {
	IsPaused(module string) bool
}

const moduleName = "stable"

func pauseGuard(p PauseView) error {
	if p == nil {
		return nil
	}
	if p.IsPaused(moduleName) {
		return ErrEnginePaused
	}
	return nil
}

// entryGuard rejects any nested or concurrent entry into the engine's public
// surface. Every operation runs to completion before the next may start;
// overlap fails closed with ErrReentrantCall rather than queueing, so a token
// ledger that calls back into the engine cannot observe transient state.
type entryGuard struct {
	inFlight atomic.Bool
}

func (g *entryGuard) enter() error {
	if !g.inFlight.CompareAndSwap(false, true) {
		return ErrReentrantCall
	}
	return nil
}

func (g *entryGuard) exit() {
	g.inFlight.Store(false)
}
