package domain

import (
	"time"
)

// CoinMeta caches coin metadata and the local icon path between runs.
type CoinMeta struct {
	ID           string    `gorm:"primaryKey" json:"id"` // market data coin id
	Symbol       string    `json:"symbol"`
	Name         string    `json:"name"`
	IconPath     string    `json:"icon_path"`
	LastSyncedAt time.Time `json:"last_synced_at"` // last icon sync time
	UpdatedAt    time.Time `json:"updated_at"`
}

// Credential is the persisted session credential (singleton row),
// so a sign-in survives process restarts.
type Credential struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UID          string    `json:"uid"`
	Email        string    `json:"email"`
	RefreshToken string    `json:"refresh_token"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Setting represents a small client preference (Key-Value).
type Setting struct {
	Key       string    `gorm:"primaryKey" json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}
