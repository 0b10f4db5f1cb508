package core

import (
	"math"
	"sync/atomic"
)

// AtomicAddFloat adds delta to the float64 stored as raw bits at addr,
// lock-free via compare and swap
func AtomicAddFloat(addr *uint64, delta float64) {
	for {
		oldBits := atomic.LoadUint64(addr)
		newBits := math.Float64bits(math.Float64frombits(oldBits) + delta)
		if atomic.CompareAndSwapUint64(addr, oldBits, newBits) {
			return
		}
	}
}
