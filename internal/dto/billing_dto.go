package dto

type CreateCheckoutRequest struct {
	Email string `json:"email"`
}

type CheckoutResponse struct {
	URL       string `json:"url"`
	SessionID string `json:"sessionId"`
}

type PortalResponse struct {
	URL string `json:"url"`
}

type Plan struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Price    string   `json:"price"`
	Interval string   `json:"interval"`
	Features []string `json:"features"`
}
