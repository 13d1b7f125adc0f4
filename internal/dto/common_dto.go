package dto

// ErrorResponse is the single error shape every endpoint returns.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// QuotaResponse is the 429 body; it carries machine-readable fields so the
// extension can render remaining-quota UI.
type QuotaResponse struct {
	Error     string `json:"error"`
	Limit     int    `json:"limit"`
	Used      int    `json:"used"`
	LimitType string `json:"limitType"`
	Tier      string `json:"tier,omitempty"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
	DB        string `json:"db"`
	Redis     string `json:"redis,omitempty"`
}
