// SPDX-License-Identifier: MIT
package audio

import (
	"sync/atomic"

	"hearaid/internal/config"
)

// VolumeUp raises the master volume by one step, clamping at the top.
// When pips are enabled the new level is confirmed audibly.
func (e *Engine) VolumeUp() int {
	return e.stepVolume(1)
}

// VolumeDown lowers the master volume by one step, clamping at zero.
func (e *Engine) VolumeDown() int {
	return e.stepVolume(-1)
}

// VolumeLevel returns the current master volume step, 0..NumGainLevels-1.
func (e *Engine) VolumeLevel() int {
	return int(atomic.LoadInt32(&e.volumeLevel))
}

// SetVolumeLevel jumps directly to the given step, clamping out-of-range
// values. No pips are played.
func (e *Engine) SetVolumeLevel(level int) {
	if level < 0 {
		level = 0
	}
	if level >= config.NumGainLevels {
		level = config.NumGainLevels - 1
	}
	atomic.StoreInt32(&e.volumeLevel, int32(level))
}

func (e *Engine) stepVolume(delta int) int {
	for {
		current := atomic.LoadInt32(&e.volumeLevel)
		next := current + int32(delta)
		if next < 0 {
			next = 0
		}
		if next >= config.NumGainLevels {
			next = config.NumGainLevels - 1
		}
		if atomic.CompareAndSwapInt32(&e.volumeLevel, current, next) {
			if e.pipsEnabled && next != current {
				// One pip for level 0, up to NumGainLevels for full volume.
				atomic.StoreInt32(&e.pendingPips, next+1)
			}
			return int(next)
		}
	}
}
