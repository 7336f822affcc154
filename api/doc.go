// Package api
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Shared contracts for the hioload-sp scalability-protocols library:
// the error taxonomy, protocol identifiers, option keys, pipe events,
// and the transport SPI. Every other package imports api; api imports
// only the message container.
package api
