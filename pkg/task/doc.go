/*
Package task implements the task lifecycle and the handle-based
cancellation and result-delivery contract.

# Lifecycle

A Task moves through the states

	Pending -> Running -> Completed
	Pending -> Cancelled

Completed and Cancelled are terminal and never change once reached.

# Result delivery

Every task owns a one-shot channel of capacity one. Exactly one message is
ever sent on it: the closure's value, or ErrCancelled. If the closure panics
the channel is closed without a message and Handle.Wait reports
ErrChannelDisconnected.

# Cancellation

Handle.Cancel is cooperative. A single compare-and-swap on the state cell
decides whether the cancel or the worker's transition to Running wins:

	h := t.Handle()
	if err := h.Cancel(); errors.Is(err, types.ErrCancelAfterRunning) {
		// the closure will run to completion
	}

Closures that need to stop early must poll their own flag or context.
*/
package task
