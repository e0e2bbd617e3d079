/*
Package scheduler provides task scheduling strategies for the pool.

A scheduler implements types.Scheduler:

	Schedule(task)  never blocks, wakes one waiting worker
	NextTask()      blocks on a condition variable until work or termination
	Terminate()     wakes every worker and cancels whatever is still queued

FIFOScheduler is the default strategy. Tasks leave the queue in the order
Schedule acquired the queue lock, which is the submission order. It is
backed by a ring-buffer queue and never polls.

Workers only rely on the interface, so any ordering policy can be plugged
into worker.Config.Scheduler.
*/
package scheduler
