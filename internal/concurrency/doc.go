// Package concurrency
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Driver-owned completion executor for hioload-sp. All aio completion
// callbacks run on this pool, never on the submitting goroutine. Tasks
// are distributed across per-worker lock-free queues with a global
// channel fallback.
package concurrency
