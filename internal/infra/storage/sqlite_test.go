package storage

import (
	"path/filepath"
	"testing"
	"time"

	"cryptofolio/internal/domain"
)

func setupTestDB(t *testing.T) *Storage {
	t.Helper()
	s, err := openStorage(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	return s
}

func TestCredentialLifecycle(t *testing.T) {
	s := setupTestDB(t)

	// 1. Empty store yields nil, not an error
	cred, err := s.LoadCredential()
	if err != nil {
		t.Fatalf("LoadCredential failed: %v", err)
	}
	if cred != nil {
		t.Fatal("expected no credential in a fresh store")
	}

	// 2. Save and reload
	if err := s.SaveCredential("uid-1", "ada@example.com", "refresh-token"); err != nil {
		t.Fatalf("SaveCredential failed: %v", err)
	}
	cred, err = s.LoadCredential()
	if err != nil {
		t.Fatalf("LoadCredential failed: %v", err)
	}
	if cred == nil || cred.UID != "uid-1" || cred.RefreshToken != "refresh-token" {
		t.Fatalf("unexpected credential %+v", cred)
	}

	// 3. A second save overwrites the singleton row
	if err := s.SaveCredential("uid-2", "bob@example.com", "other-token"); err != nil {
		t.Fatalf("SaveCredential failed: %v", err)
	}
	cred, _ = s.LoadCredential()
	if cred.UID != "uid-2" {
		t.Errorf("expected overwrite, got %+v", cred)
	}

	// 4. Clear
	if err := s.ClearCredential(); err != nil {
		t.Fatalf("ClearCredential failed: %v", err)
	}
	cred, _ = s.LoadCredential()
	if cred != nil {
		t.Error("credential should be gone after clear")
	}
}

func TestCoinMeta(t *testing.T) {
	s := setupTestDB(t)

	meta := &domain.CoinMeta{
		ID:        "bitcoin",
		Symbol:    "btc",
		Name:      "Bitcoin",
		UpdatedAt: time.Now(),
	}
	if err := s.UpsertCoinMeta(meta); err != nil {
		t.Fatalf("UpsertCoinMeta failed: %v", err)
	}

	fetched, err := s.GetCoinMeta("bitcoin")
	if err != nil {
		t.Fatalf("GetCoinMeta failed: %v", err)
	}
	if fetched == nil || fetched.Symbol != "btc" {
		t.Fatalf("unexpected meta %+v", fetched)
	}

	// Update keeps the primary key stable
	meta.IconPath = "/tmp/icons/bitcoin.png"
	meta.LastSyncedAt = time.Now()
	if err := s.UpsertCoinMeta(meta); err != nil {
		t.Fatalf("UpsertCoinMeta update failed: %v", err)
	}
	fetched, _ = s.GetCoinMeta("bitcoin")
	if fetched.IconPath == "" {
		t.Error("icon path should persist")
	}

	if missing, _ := s.GetCoinMeta("tron"); missing != nil {
		t.Error("absent coin meta should be nil")
	}

	all, err := s.AllCoinMeta()
	if err != nil || len(all) != 1 {
		t.Errorf("expected 1 meta row, got %d (err %v)", len(all), err)
	}
}

func TestSettings(t *testing.T) {
	s := setupTestDB(t)

	if err := s.SaveSetting("theme", "dark"); err != nil {
		t.Fatalf("SaveSetting failed: %v", err)
	}
	if err := s.SaveSetting("theme", "light"); err != nil {
		t.Fatalf("SaveSetting overwrite failed: %v", err)
	}

	settings, err := s.LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}
	if settings["theme"] != "light" {
		t.Errorf("expected light, got %q", settings["theme"])
	}
}
