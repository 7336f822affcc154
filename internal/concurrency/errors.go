// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package concurrency

import "errors"

// ErrExecutorClosed is returned by Submit on a closed or saturated executor.
var ErrExecutorClosed = errors.New("executor closed")
