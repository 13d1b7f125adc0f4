package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasActiveAccess(t *testing.T) {
	cases := []struct {
		name   string
		tier   string
		status string
		want   bool
	}{
		{"free inactive", TierFree, SubscriptionInactive, true},
		{"free cancelled", TierFree, SubscriptionCancelled, true},
		{"pro active", TierPro, SubscriptionActive, true},
		{"pro past_due", TierPro, SubscriptionPastDue, false},
		{"pro cancelled", TierPro, SubscriptionCancelled, false},
		{"pro inactive", TierPro, SubscriptionInactive, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			u := &User{Tier: tc.tier, SubscriptionStatus: tc.status}
			assert.Equal(t, tc.want, u.HasActiveAccess())
		})
	}
}
