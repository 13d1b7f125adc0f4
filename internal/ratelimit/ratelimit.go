// Package ratelimit implements fixed-window request counting keyed by
// caller-composed identifiers (e.g. "validate:"+clientIP).
package ratelimit

import (
	"context"
	"time"
)

// Result reports one window check.
type Result struct {
	Allowed bool
	Used    int
	Limit   int
	ResetAt time.Time
}

// Limiter counts requests in fixed windows. Implementations share the same
// contract so handlers can be wired to either backend.
type Limiter interface {
	Check(ctx context.Context, key string, limit int, window time.Duration) (Result, error)
}

// Preset is a named limit applied at a call site.
type Preset struct {
	Limit  int
	Window time.Duration
}

// Named limits. Call sites reference these instead of hardcoding numbers.
var (
	PresetValidate = Preset{Limit: 10, Window: time.Minute}
	PresetFreeKey  = Preset{Limit: 3, Window: time.Hour}
	PresetAuth     = Preset{Limit: 5, Window: time.Minute}
	PresetCheckout = Preset{Limit: 5, Window: time.Hour}
)
