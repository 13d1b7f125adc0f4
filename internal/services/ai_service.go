package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/captureai/backend/internal/config"
	"github.com/captureai/backend/internal/dto"
	"github.com/captureai/backend/internal/models"
	"github.com/captureai/backend/internal/validation"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Quota limit types.
const (
	LimitTypePerDay    = "per_day"
	LimitTypePerMinute = "per_minute"
)

// Prompt types.
const (
	PromptTypeAsk       = "ask"
	PromptTypeAutoSolve = "auto_solve"
	PromptTypeAnswer    = "answer"
)

const (
	maxTokensAsk     = 4000
	maxTokensDefault = 2500
)

// reasoningConfig pins a reasoning level to a model, effort setting, and the
// token-limit parameter name that model family requires. The label is what
// gets persisted and priced, never the vendor model id.
type reasoningConfig struct {
	Label        string
	Effort       string
	LegacyTokens bool // legacy family uses max_tokens instead of max_completion_tokens
}

var reasoningLevels = map[int]reasoningConfig{
	0: {Label: "legacy", LegacyTokens: true},
	1: {Label: "low", Effort: "low"},
	2: {Label: "medium", Effort: "medium"},
}

const defaultReasoningLevel = 1

// modelPricing holds per-million-token rates keyed by reasoning-level label.
// Cached input is heavily discounted; reasoning tokens bill as output.
type modelPricing struct {
	Input  float64
	Cached float64
	Output float64
}

var pricingTable = map[string]modelPricing{
	"legacy": {Input: 0.15, Cached: 0.075, Output: 0.60},
	"low":    {Input: 0.05, Cached: 0.005, Output: 0.40},
	"medium": {Input: 0.05, Cached: 0.005, Output: 0.40},
}

// CalculateCost computes the metered cost of one call. Rates are per-million
// tokens; cached input tokens are billed at the discounted rate and excluded
// from the regular input count.
func CalculateCost(label string, inputTokens, cachedTokens, outputTokens int) float64 {
	p, ok := pricingTable[label]
	if !ok {
		return 0
	}
	regular := inputTokens - cachedTokens
	if regular < 0 {
		regular = 0
	}
	return (float64(regular)*p.Input + float64(cachedTokens)*p.Cached + float64(outputTokens)*p.Output) / 1_000_000
}

type AIService struct {
	db     *gorm.DB
	cfg    *config.Config
	client *http.Client
}

func NewAIService(db *gorm.DB, cfg *config.Config) *AIService {
	return &AIService{
		db:  db,
		cfg: cfg,
		// Per-request deadlines come from context; the client timeout is a
		// backstop slightly above the configured gateway timeout.
		client: &http.Client{Timeout: cfg.AITimeout + 5*time.Second},
	}
}

// UsageStatus reports quota consumption for one user.
type UsageStatus struct {
	Allowed   bool
	Used      int
	Limit     int
	LimitType string
}

// CheckUsageLimit counts usage rows in the tier's window: free is a UTC
// calendar-day cap, pro is a trailing 60-second cap.
func (s *AIService) CheckUsageLimit(ctx context.Context, userID uuid.UUID, tier string) (*UsageStatus, error) {
	now := time.Now().UTC()

	var since time.Time
	var limit int
	var limitType string
	if tier == models.TierPro {
		since = now.Add(-60 * time.Second)
		limit = s.cfg.ProPerMinuteLimit
		limitType = LimitTypePerMinute
	} else {
		since = dayStartUTC(now)
		limit = s.cfg.FreeDailyLimit
		limitType = LimitTypePerDay
	}

	var used int64
	err := s.db.WithContext(ctx).Model(&models.UsageRecord{}).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Count(&used).Error
	if err != nil {
		return nil, fmt.Errorf("usage count failed: %w", err)
	}

	return &UsageStatus{
		Allowed:   int(used) < limit,
		Used:      int(used),
		Limit:     limit,
		LimitType: limitType,
	}, nil
}

func dayStartUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Complete runs one AI call end to end: quota, payload, gateway, metering.
// The usage write is best-effort; its failure is logged, never surfaced.
func (s *AIService) Complete(ctx context.Context, user *models.User, req *dto.CompleteRequest) (*dto.CompleteResponse, error) {
	if strings.TrimSpace(req.Question) == "" &&
		strings.TrimSpace(req.ImageData) == "" &&
		strings.TrimSpace(req.OCRText) == "" {
		return nil, &validation.Error{Message: "At least one of question, imageData, or ocrText is required", Field: "question"}
	}

	status, err := s.CheckUsageLimit(ctx, user.ID, user.Tier)
	if err != nil {
		return nil, err
	}
	if !status.Allowed {
		return nil, &QuotaError{
			Limit:     status.Limit,
			Used:      status.Used,
			LimitType: status.LimitType,
			Tier:      user.Tier,
		}
	}

	level := defaultReasoningLevel
	if req.ReasoningLevel != nil {
		if _, ok := reasoningLevels[*req.ReasoningLevel]; ok {
			level = *req.ReasoningLevel
		}
	}
	cfg := reasoningLevels[level]

	payload := s.buildChatPayload(req, cfg)

	start := time.Now()
	answer, usage, err := s.callGateway(ctx, payload)
	if err != nil {
		return nil, err
	}
	responseTime := int(time.Since(start).Milliseconds())

	record := models.UsageRecord{
		ID:              uuid.New(),
		UserID:          user.ID,
		PromptType:      normalizePromptType(req.PromptType),
		Model:           cfg.Label,
		TokensUsed:      usage.TotalTokens,
		InputTokens:     usage.InputTokens,
		OutputTokens:    usage.OutputTokens,
		ReasoningTokens: usage.ReasoningTokens,
		CachedTokens:    usage.CachedTokens,
		TotalCost:       CalculateCost(cfg.Label, usage.InputTokens, usage.CachedTokens, usage.OutputTokens),
		ResponseTime:    responseTime,
		Cached:          usage.CachedTokens > 0,
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		slog.Warn("usage record write failed", "user_id", user.ID, "error", err)
	}

	return &dto.CompleteResponse{
		Answer:       answer,
		Usage:        usage,
		Cached:       usage.CachedTokens > 0,
		ResponseTime: responseTime,
		Model:        cfg.Label,
	}, nil
}

// Usage returns current quota consumption without consuming any.
func (s *AIService) Usage(ctx context.Context, user *models.User) (*dto.UsageResponse, error) {
	status, err := s.CheckUsageLimit(ctx, user.ID, user.Tier)
	if err != nil {
		return nil, err
	}
	return &dto.UsageResponse{
		Used:      status.Used,
		Limit:     status.Limit,
		LimitType: status.LimitType,
		Tier:      user.Tier,
	}, nil
}

// Analytics aggregates usage rows over the trailing N days.
func (s *AIService) Analytics(ctx context.Context, userID uuid.UUID, days int) (*dto.AnalyticsResponse, error) {
	since := time.Now().UTC().AddDate(0, 0, -days)

	var agg struct {
		TotalRequests  int64
		TotalTokens    int64
		TotalCost      float64
		AvgResponse    float64
		CachedRequests int64
	}
	err := s.db.WithContext(ctx).Model(&models.UsageRecord{}).
		Select(`COUNT(*) AS total_requests,
			COALESCE(SUM(tokens_used), 0) AS total_tokens,
			COALESCE(SUM(total_cost), 0) AS total_cost,
			COALESCE(AVG(response_time), 0) AS avg_response,
			COUNT(*) FILTER (WHERE cached) AS cached_requests`).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Scan(&agg).Error
	if err != nil {
		return nil, fmt.Errorf("analytics query failed: %w", err)
	}

	return &dto.AnalyticsResponse{
		Days:            days,
		TotalRequests:   agg.TotalRequests,
		TotalTokens:     agg.TotalTokens,
		TotalCost:       agg.TotalCost,
		AvgResponseTime: agg.AvgResponse,
		CachedRequests:  agg.CachedRequests,
	}, nil
}

// Models returns the static capability list.
func (s *AIService) Models() []dto.ModelInfo {
	return []dto.ModelInfo{
		{ReasoningLevel: 0, Label: "legacy", Description: "Fastest, no reasoning", Vision: true},
		{ReasoningLevel: 1, Label: "low", Description: "Balanced speed and accuracy", Vision: true},
		{ReasoningLevel: 2, Label: "medium", Description: "Most thorough", Vision: true},
	}
}

// ---------------------------------------------------------------------------
// Gateway payload
// ---------------------------------------------------------------------------

type chatRequest struct {
	Model               string        `json:"model"`
	Messages            []chatMessage `json:"messages"`
	MaxTokens           int           `json:"max_tokens,omitempty"`
	MaxCompletionTokens int           `json:"max_completion_tokens,omitempty"`
	ReasoningEffort     string        `json:"reasoning_effort,omitempty"`
}

type chatMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type chatContentPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *chatImageURL `json:"image_url,omitempty"`
}

type chatImageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens        int `json:"prompt_tokens"`
		CompletionTokens    int `json:"completion_tokens"`
		TotalTokens         int `json:"total_tokens"`
		PromptTokensDetails struct {
			CachedTokens int `json:"cached_tokens"`
		} `json:"prompt_tokens_details"`
		CompletionTokensDetails struct {
			ReasoningTokens int `json:"reasoning_tokens"`
		} `json:"completion_tokens_details"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func normalizePromptType(promptType string) string {
	switch promptType {
	case PromptTypeAsk, PromptTypeAutoSolve:
		return promptType
	default:
		return PromptTypeAnswer
	}
}

func systemPrompt(promptType string) string {
	switch promptType {
	case PromptTypeAsk:
		return "You are CaptureAI, a helpful assistant. The user captured content from their screen and wants to discuss it. Answer conversationally and clearly."
	case PromptTypeAutoSolve:
		return "You are answering a multiple-choice question. Reply with ONLY the number of the correct choice. No explanation."
	default:
		return "Answer the question from the captured content. Reply with the answer only. No explanation."
	}
}

// buildChatPayload maps the request onto a provider chat payload. OCR text is
// appended to the user prompt as a labeled block rather than replacing the
// instruction; an attached image turns the user message multimodal.
func (s *AIService) buildChatPayload(req *dto.CompleteRequest, cfg reasoningConfig) *chatRequest {
	promptType := normalizePromptType(req.PromptType)

	text := strings.TrimSpace(req.Question)
	if ocr := strings.TrimSpace(req.OCRText); ocr != "" {
		if text != "" {
			text += "\n\n"
		}
		text += "Extracted text from image:\n" + ocr
	}

	var content interface{} = text
	if img := strings.TrimSpace(req.ImageData); img != "" {
		url := img
		if !strings.HasPrefix(url, "data:") {
			url = "data:image/png;base64," + url
		}
		parts := []chatContentPart{}
		if text != "" {
			parts = append(parts, chatContentPart{Type: "text", Text: text})
		}
		parts = append(parts, chatContentPart{Type: "image_url", ImageURL: &chatImageURL{URL: url}})
		content = parts
	}

	maxTokens := maxTokensDefault
	if promptType == PromptTypeAsk {
		maxTokens = maxTokensAsk
	}

	payload := &chatRequest{
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt(promptType)},
			{Role: "user", Content: content},
		},
	}

	if cfg.LegacyTokens {
		payload.Model = s.cfg.AIModelLegacy
		payload.MaxTokens = maxTokens
	} else {
		payload.Model = s.cfg.AIModel
		payload.MaxCompletionTokens = maxTokens
		payload.ReasoningEffort = cfg.Effort
	}
	return payload
}

func (s *AIService) callGateway(ctx context.Context, payload *chatRequest) (string, dto.TokenUsage, error) {
	var usage dto.TokenUsage

	body, err := json.Marshal(payload)
	if err != nil {
		return "", usage, fmt.Errorf("failed to marshal chat payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.AITimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.AIAPIURL, bytes.NewReader(body))
	if err != nil {
		return "", usage, fmt.Errorf("failed to build gateway request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+s.cfg.AIAPIKey)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return "", usage, &UpstreamError{Service: "AI gateway", Status: 0, Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", usage, &UpstreamError{Service: "AI gateway", Status: resp.StatusCode, Message: err.Error()}
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", usage, &UpstreamError{Service: "AI gateway", Status: resp.StatusCode, Message: "unparseable response"}
	}

	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(respBody))
		if parsed.Error != nil {
			msg = parsed.Error.Message
		}
		return "", usage, &UpstreamError{Service: "AI gateway", Status: resp.StatusCode, Message: msg}
	}
	if len(parsed.Choices) == 0 {
		return "", usage, &UpstreamError{Service: "AI gateway", Status: resp.StatusCode, Message: "empty choices in response"}
	}

	usage = dto.TokenUsage{
		TotalTokens:     parsed.Usage.TotalTokens,
		InputTokens:     parsed.Usage.PromptTokens,
		OutputTokens:    parsed.Usage.CompletionTokens,
		ReasoningTokens: parsed.Usage.CompletionTokensDetails.ReasoningTokens,
		CachedTokens:    parsed.Usage.PromptTokensDetails.CachedTokens,
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), usage, nil
}
