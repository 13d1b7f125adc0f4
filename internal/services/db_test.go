package services

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/captureai/backend/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// openTestDB gives each test an isolated on-disk database with the full
// schema. sqlite translates unique-constraint violations to
// gorm.ErrDuplicatedKey just like the postgres driver, so the duplicate-key
// paths behave as they do in production.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.UsageRecord{},
		&models.WebhookEvent{},
		&models.SystemLog{},
	))
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, tier, status string) *models.User {
	t.Helper()

	key, err := GenerateLicenseKey()
	require.NoError(t, err)
	user := &models.User{
		ID:                 uuid.New(),
		LicenseKey:         key,
		Email:              fmt.Sprintf("%s@example.com", uuid.NewString()[:8]),
		Tier:               tier,
		SubscriptionStatus: status,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}
