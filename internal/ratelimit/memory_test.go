package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryAllowsUpToLimit(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		res, err := m.Check(ctx, "validate:1.2.3.4", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, i, res.Used)
	}

	res, err := m.Check(ctx, "validate:1.2.3.4", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 3, res.Used)
}

func TestMemoryKeysAreIndependent(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	res, err := m.Check(ctx, "validate:1.2.3.4", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = m.Check(ctx, "validate:5.6.7.8", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = m.Check(ctx, "validate:1.2.3.4", 1, time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
}

func TestMemoryWindowResets(t *testing.T) {
	m := NewMemory()
	now := time.Now()
	m.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := m.Check(ctx, "k", 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	}
	res, err := m.Check(ctx, "k", 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	// Advance past the window boundary: counter resets to 1.
	now = now.Add(time.Minute + time.Second)
	res, err = m.Check(ctx, "k", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 1, res.Used)
}

func TestMemoryResetAt(t *testing.T) {
	m := NewMemory()
	now := time.Now()
	m.now = func() time.Time { return now }

	res, err := m.Check(context.Background(), "k", 5, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), res.ResetAt)
}

func TestPresets(t *testing.T) {
	assert.Equal(t, Preset{Limit: 10, Window: time.Minute}, PresetValidate)
	assert.Equal(t, Preset{Limit: 3, Window: time.Hour}, PresetFreeKey)
	assert.Equal(t, Preset{Limit: 5, Window: time.Minute}, PresetAuth)
	assert.Equal(t, Preset{Limit: 5, Window: time.Hour}, PresetCheckout)
}
