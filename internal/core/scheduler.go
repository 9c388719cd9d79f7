package core

import "time"

// TaskScheduler schedules cancellable one-shot tasks keyed by id. The job
// service uses it to drive simulated processing; a real worker queue can be
// swapped in behind the same interface without changing the state-machine
// contract.
type TaskScheduler interface {
	// Schedule runs fn after delay. Scheduling an id that is already
	// pending replaces the earlier task.
	Schedule(id string, delay time.Duration, fn func())

	// Cancel stops a pending task. Returns false if the task already fired
	// or was never scheduled.
	Cancel(id string) bool

	// Stop cancels every pending task. Used at process shutdown.
	Stop()
}
