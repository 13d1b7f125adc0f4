package dto

import "github.com/google/uuid"

type CreateFreeKeyRequest struct {
	Email string `json:"email"`
}

// CreateFreeKeyResponse has the same shape whether the email was new or
// already had a key, so the endpoint leaks nothing about existing accounts.
type CreateFreeKeyResponse struct {
	Message     string `json:"message"`
	LicenseKey  string `json:"licenseKey"`
	Tier        string `json:"tier"`
	EmailFailed bool   `json:"emailFailed,omitempty"`
}

type ValidateKeyRequest struct {
	LicenseKey string `json:"licenseKey"`
}

type UserResponse struct {
	ID                 uuid.UUID `json:"id"`
	Email              string    `json:"email"`
	Tier               string    `json:"tier"`
	SubscriptionStatus string    `json:"subscriptionStatus"`
	LicenseKey         string    `json:"licenseKey"`
}

type ValidateKeyResponse struct {
	Message string       `json:"message"`
	User    UserResponse `json:"user"`
}
