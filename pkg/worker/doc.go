/*
Package worker provides the fixed-size task pool and the worker loop behind it.

# Overview

A Pool owns one scheduler and a fixed set of workers created at build time.
Callers commit closures and get back a typed handle:

	pool, err := worker.NewPool(&worker.Config{NumWorkers: 8})
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	h := worker.Commit(pool, func() int { return 42 })
	v, err := h.Wait()

Commit is a function rather than a method because the result type is chosen
per call.

# Workers

Each Worker runs on its own goroutine and loops on Scheduler.NextTask until
the scheduler reports termination. With Config.PinWorkers the goroutine is
locked to an OS thread and, on Linux, to a CPU core.

A panic inside a closure ends the worker that ran it. The handle of that task
reports types.ErrChannelDisconnected, other workers keep running, and the
panic is returned as a *types.WorkerPanicError when the worker is joined.

# Shutdown

Terminate (or Close) terminates the scheduler, which cancels every task still
queued, then joins the workers one by one. Tasks already running finish
normally. Worker panics found at join time are logged as warnings, passed to
Config.ErrorHandler and returned joined together.

Committing to a terminated pool never blocks: the handle resolves as
types.ErrCancelled.

# Observability

Pools log through zap (Config.Logger, defaulting to zap.L()) and report
Prometheus metrics when Config.Metrics is set. Stats and WorkerStats give a
point-in-time snapshot without Prometheus.
*/
package worker
