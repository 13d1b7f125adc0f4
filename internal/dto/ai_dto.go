package dto

type CompleteRequest struct {
	Question       string  `json:"question"`
	ImageData      string  `json:"imageData"`
	OCRText        string  `json:"ocrText"`
	OCRConfidence  float64 `json:"ocrConfidence"`
	PromptType     string  `json:"promptType"`
	ReasoningLevel *int    `json:"reasoningLevel"`
}

type TokenUsage struct {
	TotalTokens     int `json:"totalTokens"`
	InputTokens     int `json:"inputTokens"`
	OutputTokens    int `json:"outputTokens"`
	ReasoningTokens int `json:"reasoningTokens"`
	CachedTokens    int `json:"cachedTokens"`
}

type CompleteResponse struct {
	Answer       string     `json:"answer"`
	Usage        TokenUsage `json:"usage"`
	Cached       bool       `json:"cached"`
	ResponseTime int        `json:"responseTime"`
	Model        string     `json:"model"`
}

type UsageResponse struct {
	Used      int    `json:"used"`
	Limit     int    `json:"limit"`
	LimitType string `json:"limitType"`
	Tier      string `json:"tier"`
}

type AnalyticsResponse struct {
	Days            int     `json:"days"`
	TotalRequests   int64   `json:"totalRequests"`
	TotalTokens     int64   `json:"totalTokens"`
	TotalCost       float64 `json:"totalCost"`
	AvgResponseTime float64 `json:"avgResponseTimeMs"`
	CachedRequests  int64   `json:"cachedRequests"`
}

type ModelInfo struct {
	ReasoningLevel int    `json:"reasoningLevel"`
	Label          string `json:"label"`
	Description    string `json:"description"`
	Vision         bool   `json:"vision"`
}
