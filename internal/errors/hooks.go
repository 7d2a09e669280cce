// Package errors - reporting hooks
package errors

import (
	"sync"
	"sync/atomic"
)

// ErrorHook receives every enhanced error built while reporting is active.
// Hooks let embedding applications forward errors to their own telemetry
// without this library carrying a transport. Hooks must not block.
type ErrorHook func(ee *EnhancedError)

var (
	hookMutex  sync.RWMutex
	errorHooks []ErrorHook

	// hasActiveReporting gates the expensive component/category detection
	// in Build; it is only set while at least one hook is registered.
	hasActiveReporting atomic.Bool
)

// AddErrorHook registers a hook invoked for every error built afterwards.
func AddErrorHook(hook ErrorHook) {
	if hook == nil {
		return
	}
	hookMutex.Lock()
	defer hookMutex.Unlock()
	errorHooks = append(errorHooks, hook)
	hasActiveReporting.Store(true)
}

// ClearErrorHooks removes all registered hooks.
func ClearErrorHooks() {
	hookMutex.Lock()
	defer hookMutex.Unlock()
	errorHooks = nil
	hasActiveReporting.Store(false)
}

// notifyHooks hands the error to every registered hook exactly once.
func notifyHooks(ee *EnhancedError) {
	if ee.IsReported() {
		return
	}

	hookMutex.RLock()
	hooks := errorHooks
	hookMutex.RUnlock()

	if len(hooks) == 0 {
		return
	}

	for _, hook := range hooks {
		hook(ee)
	}
	ee.MarkReported()
}
