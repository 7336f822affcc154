// Package core
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The SP driver: handle registry, completion engine, asynchronous
// operation machinery, socket and context cores, protocol behaviors,
// and connection (pipe) management. The public handle layer in package
// sp is a thin wrapper over the types exported here.
//
// Concurrency model: completion callbacks and pipe-event observers run
// on driver-owned goroutines, never on the submitting one. Operations
// submitted on a single Aio are strictly sequential; operations across
// different Aios or Contexts have no mutual ordering.
package core
