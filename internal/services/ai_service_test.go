package services

import (
	"context"
	"testing"
	"time"

	"github.com/captureai/backend/internal/config"
	"github.com/captureai/backend/internal/dto"
	"github.com/captureai/backend/internal/models"
	"github.com/captureai/backend/internal/validation"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateCost(t *testing.T) {
	// 800 regular input + 200 cached + 500 output at the "low" rates.
	got := CalculateCost("low", 1000, 200, 500)
	want := (800*0.05 + 200*0.005 + 500*0.40) / 1_000_000
	assert.InDelta(t, want, got, 1e-12)
}

func TestCalculateCostNoCachedTokens(t *testing.T) {
	got := CalculateCost("legacy", 1000, 0, 100)
	want := (1000*0.15 + 100*0.60) / 1_000_000
	assert.InDelta(t, want, got, 1e-12)
}

func TestCalculateCostUnknownLabel(t *testing.T) {
	assert.Zero(t, CalculateCost("gpt-nonexistent", 1000, 0, 100))
}

func TestCalculateCostCachedExceedsInput(t *testing.T) {
	// Defensive clamp: regular input never goes negative.
	got := CalculateCost("low", 100, 200, 0)
	want := (200 * 0.005) / 1_000_000
	assert.InDelta(t, want, got, 1e-12)
}

func TestDayStartUTC(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	local := time.Date(2026, time.March, 5, 3, 30, 0, 0, loc) // 2026-03-04 18:30 UTC
	got := dayStartUTC(local)
	assert.Equal(t, time.Date(2026, time.March, 4, 0, 0, 0, 0, time.UTC), got)
}

func TestNormalizePromptType(t *testing.T) {
	assert.Equal(t, PromptTypeAsk, normalizePromptType("ask"))
	assert.Equal(t, PromptTypeAutoSolve, normalizePromptType("auto_solve"))
	assert.Equal(t, PromptTypeAnswer, normalizePromptType("answer"))
	assert.Equal(t, PromptTypeAnswer, normalizePromptType(""))
	assert.Equal(t, PromptTypeAnswer, normalizePromptType("something-else"))
}

func testAIService() *AIService {
	return &AIService{cfg: &config.Config{
		AIModel:       "current-model",
		AIModelLegacy: "legacy-model",
	}}
}

func TestBuildChatPayloadReasoningLevels(t *testing.T) {
	s := testAIService()
	req := &dto.CompleteRequest{Question: "What is 2+2?"}

	t.Run("level 0 legacy", func(t *testing.T) {
		p := s.buildChatPayload(req, reasoningLevels[0])
		assert.Equal(t, "legacy-model", p.Model)
		assert.Equal(t, maxTokensDefault, p.MaxTokens)
		assert.Zero(t, p.MaxCompletionTokens)
		assert.Empty(t, p.ReasoningEffort)
	})

	t.Run("level 1 low effort", func(t *testing.T) {
		p := s.buildChatPayload(req, reasoningLevels[1])
		assert.Equal(t, "current-model", p.Model)
		assert.Equal(t, maxTokensDefault, p.MaxCompletionTokens)
		assert.Zero(t, p.MaxTokens)
		assert.Equal(t, "low", p.ReasoningEffort)
	})

	t.Run("level 2 medium effort", func(t *testing.T) {
		p := s.buildChatPayload(req, reasoningLevels[2])
		assert.Equal(t, "current-model", p.Model)
		assert.Equal(t, "medium", p.ReasoningEffort)
	})
}

func TestBuildChatPayloadAskModeBudget(t *testing.T) {
	s := testAIService()
	p := s.buildChatPayload(&dto.CompleteRequest{Question: "Explain this", PromptType: "ask"}, reasoningLevels[1])
	assert.Equal(t, maxTokensAsk, p.MaxCompletionTokens)

	p = s.buildChatPayload(&dto.CompleteRequest{Question: "Answer this"}, reasoningLevels[1])
	assert.Equal(t, maxTokensDefault, p.MaxCompletionTokens)
}

func TestBuildChatPayloadOCRAppended(t *testing.T) {
	s := testAIService()
	p := s.buildChatPayload(&dto.CompleteRequest{
		Question: "Which option is correct?",
		OCRText:  "A) 1  B) 2",
	}, reasoningLevels[1])

	require.Len(t, p.Messages, 2)
	text, ok := p.Messages[1].Content.(string)
	require.True(t, ok)
	assert.Contains(t, text, "Which option is correct?")
	assert.Contains(t, text, "Extracted text from image:\nA) 1  B) 2")
}

func TestBuildChatPayloadMultimodal(t *testing.T) {
	s := testAIService()
	p := s.buildChatPayload(&dto.CompleteRequest{
		Question:  "What does this show?",
		ImageData: "aGVsbG8=",
	}, reasoningLevels[1])

	require.Len(t, p.Messages, 2)
	parts, ok := p.Messages[1].Content.([]chatContentPart)
	require.True(t, ok)
	require.Len(t, parts, 2)
	assert.Equal(t, "text", parts[0].Type)
	assert.Equal(t, "image_url", parts[1].Type)
	assert.Equal(t, "data:image/png;base64,aGVsbG8=", parts[1].ImageURL.URL)
}

func TestBuildChatPayloadImageOnly(t *testing.T) {
	s := testAIService()
	p := s.buildChatPayload(&dto.CompleteRequest{ImageData: "data:image/jpeg;base64,xyz"}, reasoningLevels[1])

	parts, ok := p.Messages[1].Content.([]chatContentPart)
	require.True(t, ok)
	require.Len(t, parts, 1)
	assert.Equal(t, "image_url", parts[0].Type)
	assert.Equal(t, "data:image/jpeg;base64,xyz", parts[0].ImageURL.URL)
}

func TestBuildChatPayloadSystemPrompts(t *testing.T) {
	s := testAIService()

	p := s.buildChatPayload(&dto.CompleteRequest{Question: "q", PromptType: "auto_solve"}, reasoningLevels[1])
	sys, _ := p.Messages[0].Content.(string)
	assert.Contains(t, sys, "ONLY the number")

	p = s.buildChatPayload(&dto.CompleteRequest{Question: "q"}, reasoningLevels[1])
	sys, _ = p.Messages[0].Content.(string)
	assert.Contains(t, sys, "answer only")
}

func TestCompleteRequiresSomeInput(t *testing.T) {
	s := testAIService()
	user := &models.User{ID: uuid.New(), Tier: models.TierFree}

	_, err := s.Complete(context.Background(), user, &dto.CompleteRequest{})
	require.Error(t, err)
	var vErr *validation.Error
	assert.ErrorAs(t, err, &vErr)

	_, err = s.Complete(context.Background(), user, &dto.CompleteRequest{Question: "   "})
	assert.ErrorAs(t, err, &vErr)
}

func TestQuotaErrorMessages(t *testing.T) {
	daily := &QuotaError{LimitType: LimitTypePerDay, Limit: 10, Used: 10}
	assert.Equal(t, "Daily limit reached", daily.Error())

	perMin := &QuotaError{LimitType: LimitTypePerMinute, Limit: 30, Used: 30}
	assert.Contains(t, perMin.Error(), "Rate limit reached")
}

func testAIServiceWithDB(t *testing.T) *AIService {
	t.Helper()
	return &AIService{
		db:  openTestDB(t),
		cfg: &config.Config{FreeDailyLimit: 10, ProPerMinuteLimit: 30},
	}
}

func seedUsage(t *testing.T, s *AIService, userID uuid.UUID, n int, createdAt time.Time) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, s.db.Create(&models.UsageRecord{
			ID:        uuid.New(),
			UserID:    userID,
			Model:     "low",
			CreatedAt: createdAt,
		}).Error)
	}
}

func TestCheckUsageLimitFreshFreeUser(t *testing.T) {
	s := testAIServiceWithDB(t)
	user := createTestUser(t, s.db, models.TierFree, models.SubscriptionInactive)

	status, err := s.CheckUsageLimit(context.Background(), user.ID, user.Tier)
	require.NoError(t, err)
	assert.True(t, status.Allowed)
	assert.Zero(t, status.Used)
	assert.Equal(t, 10, status.Limit)
	assert.Equal(t, LimitTypePerDay, status.LimitType)
}

func TestCheckUsageLimitFreeDailyCap(t *testing.T) {
	s := testAIServiceWithDB(t)
	user := createTestUser(t, s.db, models.TierFree, models.SubscriptionInactive)
	now := time.Now().UTC()

	seedUsage(t, s, user.ID, 9, now)
	status, err := s.CheckUsageLimit(context.Background(), user.ID, user.Tier)
	require.NoError(t, err)
	assert.True(t, status.Allowed)
	assert.Equal(t, 9, status.Used)

	seedUsage(t, s, user.ID, 1, now)
	status, err = s.CheckUsageLimit(context.Background(), user.ID, user.Tier)
	require.NoError(t, err)
	assert.False(t, status.Allowed)
	assert.Equal(t, 10, status.Used)

	// Rows from before today's UTC midnight never count against the cap.
	seedUsage(t, s, user.ID, 5, now.Add(-25*time.Hour))
	status, err = s.CheckUsageLimit(context.Background(), user.ID, user.Tier)
	require.NoError(t, err)
	assert.Equal(t, 10, status.Used)
}

func TestCheckUsageLimitFreeUsersAreIndependent(t *testing.T) {
	s := testAIServiceWithDB(t)
	heavy := createTestUser(t, s.db, models.TierFree, models.SubscriptionInactive)
	light := createTestUser(t, s.db, models.TierFree, models.SubscriptionInactive)

	seedUsage(t, s, heavy.ID, 10, time.Now().UTC())

	status, err := s.CheckUsageLimit(context.Background(), light.ID, light.Tier)
	require.NoError(t, err)
	assert.True(t, status.Allowed)
	assert.Zero(t, status.Used)
}

func TestCheckUsageLimitProTrailingMinute(t *testing.T) {
	s := testAIServiceWithDB(t)
	user := createTestUser(t, s.db, models.TierPro, models.SubscriptionActive)
	now := time.Now().UTC()

	// Calls older than the trailing window are free again.
	seedUsage(t, s, user.ID, 30, now.Add(-2*time.Minute))
	status, err := s.CheckUsageLimit(context.Background(), user.ID, user.Tier)
	require.NoError(t, err)
	assert.True(t, status.Allowed)
	assert.Zero(t, status.Used)
	assert.Equal(t, 30, status.Limit)
	assert.Equal(t, LimitTypePerMinute, status.LimitType)

	seedUsage(t, s, user.ID, 30, now)
	status, err = s.CheckUsageLimit(context.Background(), user.ID, user.Tier)
	require.NoError(t, err)
	assert.False(t, status.Allowed)
	assert.Equal(t, 30, status.Used)
}
