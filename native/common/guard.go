package common

import "errors"

var ErrModulePaused = errors.New("module paused")

// PauseView reports whether a native module is administratively halted.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard rejects state-changing calls while the owning module is paused. A nil
// view means pausing is not configured and the call proceeds.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}
