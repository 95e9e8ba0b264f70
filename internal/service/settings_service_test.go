package service

import (
	"testing"

	"klarna-payments-backend/internal/config"
	"klarna-payments-backend/internal/models"
)

func settingsFixture() (*SettingsService, *memorySettingRepository) {
	repo := newMemorySettingRepository()
	cfg := &config.Config{
		KlarnaTestMode:         true,
		KlarnaMerchantID:       "live-merchant",
		KlarnaSharedSecret:     "live-secret",
		KlarnaTestMerchantID:   "test-merchant",
		KlarnaTestSharedSecret: "test-secret",
	}
	return NewSettingsService(repo, cfg), repo
}

func TestSettingsDefaultsFromConfig(t *testing.T) {
	svc, _ := settingsFixture()

	settings := svc.Settings()
	if settings.Enabled {
		t.Fatalf("gateway should be disabled until explicitly enabled")
	}
	if settings.Title != defaultGatewayTitle {
		t.Fatalf("unexpected default title %q", settings.Title)
	}
	if !settings.TestMode {
		t.Fatalf("expected test mode default from config")
	}
	if settings.TestMerchantID != "test-merchant" {
		t.Fatalf("expected credentials seeded from config, got %q", settings.TestMerchantID)
	}
}

func TestCredentialsSelectedByTestMode(t *testing.T) {
	svc, repo := settingsFixture()

	creds := svc.Credentials()
	if creds.MerchantID != "test-merchant" || creds.SharedSecret != "test-secret" {
		t.Fatalf("expected test pair in test mode, got %+v", creds)
	}

	repo.Set(settingKeyTestMode, "false")
	creds = svc.Credentials()
	if creds.MerchantID != "live-merchant" || creds.SharedSecret != "live-secret" {
		t.Fatalf("expected live pair in live mode, got %+v", creds)
	}
}

func TestAvailableRequiresEnabledAndCredentials(t *testing.T) {
	svc, repo := settingsFixture()

	if svc.Available() {
		t.Fatalf("disabled gateway must not be available")
	}

	repo.Set(settingKeyEnabled, "true")
	if !svc.Available() {
		t.Fatalf("enabled gateway with credentials should be available")
	}

	repo.Set(settingKeyTestMerchantID, "")
	if svc.Available() {
		t.Fatalf("gateway without a complete credential pair must not be available")
	}
}

func TestUpdatePersistsAndTrims(t *testing.T) {
	svc, _ := settingsFixture()

	err := svc.Update(models.GatewaySettings{
		Enabled:          true,
		Title:            "  Klarna  ",
		Description:      "Pay later.",
		TestMode:         false,
		MerchantID:       " merchant ",
		SharedSecret:     "secret",
		TestMerchantID:   "tm",
		TestSharedSecret: "ts",
	})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	settings := svc.Settings()
	if settings.Title != "Klarna" {
		t.Fatalf("expected trimmed title, got %q", settings.Title)
	}
	if settings.TestMode {
		t.Fatalf("expected test mode persisted off")
	}
	if settings.MerchantID != "merchant" {
		t.Fatalf("expected trimmed merchant id, got %q", settings.MerchantID)
	}
	if !svc.Available() {
		t.Fatalf("expected gateway available after enabling with credentials")
	}
}
