package limiter

import (
	"sync"
	"time"
)

// SlidingWindow 是基于时间戳列表的滑动窗口限流器。
// 按 key（这里是客户端地址）分别计数，进程内生效。
type SlidingWindow struct {
	mu      sync.Mutex
	window  time.Duration
	max     int
	entries map[string][]time.Time
	now     func() time.Time // 可注入时钟，便于测试
}

// NewSlidingWindow 创建限流器。window 内每个 key 最多允许 max 次。
func NewSlidingWindow(window time.Duration, max int) *SlidingWindow {
	return &SlidingWindow{
		window:  window,
		max:     max,
		entries: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// Allow 记录一次请求并返回是否放行。
// 超限的请求不计入窗口，等窗口滑过后自然恢复。
func (sw *SlidingWindow) Allow(key string) bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := sw.now()
	cutoff := now.Add(-sw.window)

	kept := sw.entries[key][:0]
	for _, t := range sw.entries[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) >= sw.max {
		sw.entries[key] = kept
		return false
	}
	sw.entries[key] = append(kept, now)
	return true
}
