/*
Package jobs accepts thumbnail jobs and runs them one at a time.

A Dispatcher owns a Tracker, which deduplicates job ids across the pending and
processing states, and an unbounded FIFO Queue. Any number of HTTP handlers
call Submit concurrently; a single Worker drains the queue:

	Idle -> Dequeuing -> Executing -> Idle

Every job runs inside a fault boundary. Errors and panics are logged and
counted, and the job id is always released from the tracker afterwards.
Nothing is persisted or retried.
*/
package jobs
