// Package storage is the local sqlite cache: the persisted session
// credential (so a sign-in survives restarts) and coin metadata for
// the icon cache.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"cryptofolio/internal/domain"
)

// Storage wraps the local database handle.
type Storage struct {
	db *gorm.DB
}

// NewStorage creates the sqlite store under the user config dir.
func NewStorage() (*Storage, error) {
	dbPath, err := getDBPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve DB path: %w", err)
	}
	return openStorage(dbPath)
}

func openStorage(dbPath string) (*Storage, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&domain.CoinMeta{}, &domain.Credential{}, &domain.Setting{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Storage{db: db}, nil
}

// getDBPath resolves the database file path based on OS
func getDBPath() (string, error) {
	var configDir string
	var err error

	if runtime.GOOS == "windows" {
		configDir = os.Getenv("LOCALAPPDATA")
		if configDir == "" {
			configDir, err = os.UserConfigDir()
		}
	} else {
		configDir, err = os.UserConfigDir()
	}

	if err != nil {
		return "", err
	}

	return filepath.Join(configDir, "Cryptofolio", "data", "cryptofolio.db"), nil
}

// ======================================================================================
// Credential Operations
// ======================================================================================

// SaveCredential persists the refresh credential (singleton row).
func (s *Storage) SaveCredential(uid, email, refreshToken string) error {
	cred := domain.Credential{
		ID:           1,
		UID:          uid,
		Email:        email,
		RefreshToken: refreshToken,
		UpdatedAt:    time.Now(),
	}
	return s.db.Save(&cred).Error
}

// LoadCredential returns the persisted credential, nil when none exists.
func (s *Storage) LoadCredential() (*domain.Credential, error) {
	var cred domain.Credential
	err := s.db.First(&cred, "id = ?", 1).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil // not found is not an error
	}
	if err != nil {
		return nil, err
	}
	if cred.RefreshToken == "" {
		return nil, nil
	}
	return &cred, err
}

// ClearCredential removes the persisted credential.
func (s *Storage) ClearCredential() error {
	return s.db.Where("id = ?", 1).Delete(&domain.Credential{}).Error
}

// ======================================================================================
// Coin Metadata Operations
// ======================================================================================

// UpsertCoinMeta creates or updates cached coin metadata.
func (s *Storage) UpsertCoinMeta(meta *domain.CoinMeta) error {
	return s.db.Save(meta).Error
}

// GetCoinMeta retrieves cached metadata by coin id, nil when absent.
func (s *Storage) GetCoinMeta(id string) (*domain.CoinMeta, error) {
	var meta domain.CoinMeta
	err := s.db.First(&meta, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &meta, err
}

// AllCoinMeta retrieves all cached coin metadata.
func (s *Storage) AllCoinMeta() ([]domain.CoinMeta, error) {
	var metas []domain.CoinMeta
	err := s.db.Find(&metas).Error
	return metas, err
}

// ======================================================================================
// Settings Operations
// ======================================================================================

// SaveSetting saves a client preference.
func (s *Storage) SaveSetting(key, value string) error {
	setting := domain.Setting{
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now(),
	}
	return s.db.Save(&setting).Error
}

// LoadSettings loads all client preferences as a map.
func (s *Storage) LoadSettings() (map[string]string, error) {
	var settings []domain.Setting
	if err := s.db.Find(&settings).Error; err != nil {
		return nil, err
	}

	result := make(map[string]string)
	for _, st := range settings {
		result[st.Key] = st.Value
	}
	return result, nil
}
