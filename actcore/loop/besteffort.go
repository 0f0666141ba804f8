package loop

import (
	"fmt"
	"runtime/debug"
)

// =============================================================================
// BEST-EFFORT EXECUTION
// =============================================================================
//
// Every non-essential side operation of the loop (telemetry, skill-outcome
// recording, card augmentation, the iteration callback) funnels through the
// helpers below: panics become errors, errors are logged and discarded, and
// nothing reaches the loop's control flow.

// safeCall runs fn with panic recovery. A panic is logged with its stack and
// returned as an error; the caller decides how to discard it.
func safeCall[T any](logger Logger, operation string, fn func() (T, error)) (T, error) {
	var result T
	var err error

	func() {
		defer func() {
			if r := recover(); r != nil {
				if logger != nil {
					logger.Warn("panic_recovered",
						"operation", operation,
						"panic", fmt.Sprintf("%v", r),
						"stack", string(debug.Stack()),
					)
				}
				err = fmt.Errorf("panic in %s: %v", operation, r)
			}
		}()
		result, err = fn()
	}()

	return result, err
}

// runBestEffort runs a side operation whose failure must never change the
// run's outcome. Errors and panics are logged at warning level and dropped.
func runBestEffort(logger Logger, operation string, fn func() error) {
	_, err := safeCall(logger, operation, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	if err != nil && logger != nil {
		logger.Warn("best_effort_discarded", "operation", operation, "error", err.Error())
	}
}
