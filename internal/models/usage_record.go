package models

import (
	"time"

	"github.com/google/uuid"
)

// UsageRecord is an append-only row written once per completed AI call.
// Rows are only ever read in aggregate (quota counts, analytics sums).
type UsageRecord struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID `gorm:"type:uuid;not null;index:idx_usage_user_created" json:"user_id"`
	PromptType      string    `gorm:"size:30" json:"prompt_type"`
	Model           string    `gorm:"size:30" json:"model"` // reasoning-level label, not the vendor model id
	TokensUsed      int       `json:"tokens_used"`
	InputTokens     int       `json:"input_tokens"`
	OutputTokens    int       `json:"output_tokens"`
	ReasoningTokens int       `json:"reasoning_tokens"`
	CachedTokens    int       `json:"cached_tokens"`
	TotalCost       float64   `json:"total_cost"` // computed once at write time
	ResponseTime    int       `json:"response_time"`
	Cached          bool      `json:"cached"`
	CreatedAt       time.Time `gorm:"index:idx_usage_user_created" json:"created_at"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}
