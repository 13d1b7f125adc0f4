package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/captureai/backend/internal/models"
	"github.com/captureai/backend/internal/validation"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// keyAlphabet is 32 characters with visually ambiguous 0/O/1/I removed, so
// keys survive being read aloud or retyped from a screenshot.
const keyAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const (
	keySegments   = 5
	keySegmentLen = 4
	keyGenRetries = 10
)

// authScheme is the custom Authorization scheme carrying the license key.
const authScheme = "LicenseKey "

type LicenseService struct {
	db *gorm.DB
}

func NewLicenseService(db *gorm.DB) *LicenseService {
	return &LicenseService{db: db}
}

// GenerateLicenseKey produces a XXXX-XXXX-XXXX-XXXX-XXXX key from a
// cryptographically secure source.
func GenerateLicenseKey() (string, error) {
	raw := make([]byte, keySegments*keySegmentLen)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	segments := make([]string, keySegments)
	for i := 0; i < keySegments; i++ {
		var sb strings.Builder
		for j := 0; j < keySegmentLen; j++ {
			b := raw[i*keySegmentLen+j]
			sb.WriteByte(keyAlphabet[int(b)%len(keyAlphabet)])
		}
		segments[i] = sb.String()
	}
	return strings.Join(segments, "-"), nil
}

// FreeKeyResult is the outcome of CreateFreeKey. Existing reports whether the
// email already had a free key; the HTTP response shape is identical either
// way, the flag only controls whether a row was inserted.
type FreeKeyResult struct {
	User     *models.User
	Existing bool
}

// CreateFreeKey mints a free-tier license key for a normalized email, or
// resends the existing one. One free key per email.
func (s *LicenseService) CreateFreeKey(ctx context.Context, email string) (*FreeKeyResult, error) {
	var existing models.User
	err := s.db.WithContext(ctx).
		Where("email = ? AND tier = ?", email, models.TierFree).
		First(&existing).Error
	if err == nil {
		return &FreeKeyResult{User: &existing, Existing: true}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("free key lookup failed: %w", err)
	}

	for attempt := 0; attempt < keyGenRetries; attempt++ {
		key, err := GenerateLicenseKey()
		if err != nil {
			return nil, err
		}

		user := models.User{
			ID:                 uuid.New(),
			LicenseKey:         key,
			Email:              email,
			Tier:               models.TierFree,
			SubscriptionStatus: models.SubscriptionInactive,
		}
		err = s.db.WithContext(ctx).Create(&user).Error
		if err == nil {
			return &FreeKeyResult{User: &user}, nil
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Key collision; mint another.
			continue
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return nil, fmt.Errorf("failed to generate a unique license key after %d attempts", keyGenRetries)
}

// ValidateKey looks up a normalized license key and touches last_validated_at.
func (s *LicenseService) ValidateKey(ctx context.Context, licenseKey string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("license_key = ?", licenseKey).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("license key lookup failed: %w", err)
	}

	now := time.Now().UTC()
	if err := s.db.WithContext(ctx).Model(&user).Update("last_validated_at", now).Error; err != nil {
		// Non-critical; the key is valid regardless.
		return &user, nil
	}
	user.LastValidatedAt = &now
	return &user, nil
}

// Authenticate resolves the bearer user from an Authorization header using
// the "LicenseKey <key>" scheme. A pro user whose subscription is not active
// is unauthenticated, same as a bad key; the error never distinguishes the two.
func (s *LicenseService) Authenticate(ctx context.Context, authorization string) (*models.User, error) {
	if !strings.HasPrefix(authorization, authScheme) {
		return nil, ErrUnauthorized
	}

	key, err := validation.LicenseKey(strings.TrimPrefix(authorization, authScheme))
	if err != nil {
		return nil, ErrUnauthorized
	}

	var user models.User
	if err := s.db.WithContext(ctx).Where("license_key = ?", key).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("license key lookup failed: %w", err)
	}

	if !user.HasActiveAccess() {
		return nil, ErrUnauthorized
	}
	return &user, nil
}
