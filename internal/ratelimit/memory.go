package ratelimit

import (
	"context"
	"sync"
	"time"
)

type window struct {
	count   int
	resetAt time.Time
}

// Memory is a process-local fixed-window limiter. Counters are not shared
// across instances, so it is only a fallback for single-instance deployments.
type Memory struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

func (m *Memory) Check(_ context.Context, key string, limit int, windowSize time.Duration) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	w, ok := m.windows[key]
	if !ok || now.After(w.resetAt) {
		w = &window{count: 1, resetAt: now.Add(windowSize)}
		m.windows[key] = w
		return Result{Allowed: true, Used: 1, Limit: limit, ResetAt: w.resetAt}, nil
	}

	if w.count >= limit {
		return Result{Allowed: false, Used: w.count, Limit: limit, ResetAt: w.resetAt}, nil
	}

	w.count++
	return Result{Allowed: true, Used: w.count, Limit: limit, ResetAt: w.resetAt}, nil
}
