package bitring

import (
	"sync"
)

const (
	wordBits  = 64
	wordMask  = wordBits - 1
	wordShift = 6

	DefaultSize        = 32
	DefaultConsecutive = 3
	DefaultRate        = 0.5
)

// BitRing 按比特位记录最近 size 次调用的成败，失败记为 1。
//
// 最近 consecutive 次全部失败，或样本足够时窗口内失败率超过 rate 视为熔断。
type BitRing struct {
	mu sync.RWMutex

	words []uint64
	size  int
	next  int
	full  bool

	failures    int
	consecutive int
	rate        float64
}

// Record 记录一次调用结果。
func (r *BitRing) Record(failed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.full && r.get(r.next) {
		r.failures--
	}
	r.set(r.next, failed)
	if failed {
		r.failures++
	}

	r.next++
	if r.next == r.size {
		r.next = 0
		r.full = true
	}
}

// Tripped 是否达到熔断条件，窗口为空时返回 false。
func (r *BitRing) Tripped() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := r.len()
	// 样本数不足 consecutive 时不计算失败率
	if n < r.consecutive {
		return false
	}
	if r.tailFailed(r.consecutive) {
		return true
	}
	return float64(r.failures)/float64(n) > r.rate
}

// Reset 清空窗口。
func (r *BitRing) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	clear(r.words)
	r.next = 0
	r.full = false
	r.failures = 0
}

func (r *BitRing) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.len()
}

func (r *BitRing) Failures() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.failures
}

func (r *BitRing) len() int {
	if r.full {
		return r.size
	}
	return r.next
}

// tailFailed 最近 n 次是否全部失败。
func (r *BitRing) tailFailed(n int) bool {
	for i := 1; i <= n; i++ {
		if !r.get((r.next - i + r.size) % r.size) {
			return false
		}
	}
	return true
}

func (r *BitRing) get(i int) bool {
	return r.words[i>>wordShift]>>(uint(i)&wordMask)&1 == 1
}

func (r *BitRing) set(i int, v bool) {
	bit := uint64(1) << (uint(i) & wordMask)
	if v {
		r.words[i>>wordShift] |= bit
		return
	}
	r.words[i>>wordShift] &^= bit
}

func NewBitRing(size int, consecutive int, rate float64) *BitRing {
	if size <= 0 {
		size = DefaultSize
	}
	if consecutive <= 0 {
		consecutive = DefaultConsecutive
	}
	consecutive = min(consecutive, size)
	if rate <= 0 {
		rate = DefaultRate
	}
	rate = min(rate, 1)

	return &BitRing{
		words:       make([]uint64, (size+wordMask)/wordBits),
		size:        size,
		consecutive: consecutive,
		rate:        rate,
	}
}
