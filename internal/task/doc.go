// Package task runs background jobs outside the HTTP process.
//
// Publishers push JSON messages onto a Redis list (the broker). A
// TaskRunner pops them into a bounded in-memory queue served by a
// WorkerPool, looks up the handler in a Registry and records the outcome
// (PENDING, STARTED, SUCCESS, FAILURE or REVOKED) in a Redis result
// backend. The Scheduler publishes periodic tasks such as reset_cache on
// cron schedules.
package task
