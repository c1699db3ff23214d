// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package hwtimer

import (
	"errors"
)

var ErrNilSpawn = errors.New("nil spawn function")
var ErrNilTask = errors.New("nil timer task")
var ErrTickDuration = errors.New("tick duration must be greater than 0")
var ErrTicksPerWheel = errors.New("ticks per wheel out of range")
var ErrTickOverflow = errors.New("tick duration * wheel size overflows the clock range")
var ErrTimerStopped = errors.New("cannot be started once stopped")
var ErrStopFromTask = errors.New("stop called from a timer task")
var ErrTooManyTimeouts = errors.New("maximum pending timeouts reached")
