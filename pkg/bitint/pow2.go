// SPDX-License-Identifier: MIT
//
// Package bitint provides power-of-2 helpers for buffer and transform
// sizing. All operations are O(1), allocation-free, and safe to call
// from the real-time audio path.
package bitint

import "math/bits"

// NextPowerOfTwo returns the next power of 2 >= size. Powers of 2 are
// returned unchanged; zero and negative inputs return 1. The size-1
// subtraction is what keeps exact powers of 2 from being doubled.
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len64(uint64(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of 2. Powers of 2
// have exactly one bit set, so n & (n-1) clears it and leaves zero.
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}
