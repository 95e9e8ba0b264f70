package service

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"klarna-payments-backend/internal/config"
	"klarna-payments-backend/internal/models"
	"klarna-payments-backend/internal/payments/klarna"
	"klarna-payments-backend/internal/repository"
	"klarna-payments-backend/pkg/logger"
)

// Persisted gateway setting keys.
const (
	settingKeyEnabled          = "klarna_enabled"
	settingKeyTitle            = "klarna_title"
	settingKeyDescription      = "klarna_description"
	settingKeyTestMode         = "klarna_testmode"
	settingKeyMerchantID       = "klarna_merchant_id_us"
	settingKeySharedSecret     = "klarna_shared_secret_us"
	settingKeyTestMerchantID   = "klarna_test_merchant_id_us"
	settingKeyTestSharedSecret = "klarna_test_shared_secret_us"
)

const (
	defaultGatewayTitle       = "Klarna Payments"
	defaultGatewayDescription = "Pay with Klarna Payments."
)

// SettingsService resolves gateway configuration from the settings
// repository, falling back to environment defaults for anything unset. It
// also builds Klarna clients from whichever credential pair the test-mode
// flag selects, so credential edits apply without a restart.
type SettingsService struct {
	repo repository.SettingRepository
	cfg  *config.Config
}

func NewSettingsService(repo repository.SettingRepository, cfg *config.Config) *SettingsService {
	return &SettingsService{repo: repo, cfg: cfg}
}

func (s *SettingsService) get(key, fallback string) string {
	setting, err := s.repo.Get(key)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Setting lookup failed", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
		}
		return fallback
	}
	return setting.Value
}

func (s *SettingsService) getBool(key string, fallback bool) bool {
	value := s.get(key, "")
	if value == "" {
		return fallback
	}
	return value == "true" || value == "1"
}

func boolValue(v bool) string {
	if v {
		return "true"
	}
	return "false"
}

// Settings returns the current gateway configuration.
func (s *SettingsService) Settings() models.GatewaySettings {
	return models.GatewaySettings{
		Enabled:          s.getBool(settingKeyEnabled, false),
		Title:            s.get(settingKeyTitle, defaultGatewayTitle),
		Description:      s.get(settingKeyDescription, defaultGatewayDescription),
		TestMode:         s.getBool(settingKeyTestMode, s.cfg.KlarnaTestMode),
		MerchantID:       s.get(settingKeyMerchantID, s.cfg.KlarnaMerchantID),
		SharedSecret:     s.get(settingKeySharedSecret, s.cfg.KlarnaSharedSecret),
		TestMerchantID:   s.get(settingKeyTestMerchantID, s.cfg.KlarnaTestMerchantID),
		TestSharedSecret: s.get(settingKeyTestSharedSecret, s.cfg.KlarnaTestSharedSecret),
	}
}

// Update persists the gateway configuration.
func (s *SettingsService) Update(settings models.GatewaySettings) error {
	values := map[string]string{
		settingKeyEnabled:          boolValue(settings.Enabled),
		settingKeyTitle:            strings.TrimSpace(settings.Title),
		settingKeyDescription:      strings.TrimSpace(settings.Description),
		settingKeyTestMode:         boolValue(settings.TestMode),
		settingKeyMerchantID:       strings.TrimSpace(settings.MerchantID),
		settingKeySharedSecret:     strings.TrimSpace(settings.SharedSecret),
		settingKeyTestMerchantID:   strings.TrimSpace(settings.TestMerchantID),
		settingKeyTestSharedSecret: strings.TrimSpace(settings.TestSharedSecret),
	}

	for key, value := range values {
		if err := s.repo.Set(key, value); err != nil {
			return err
		}
	}
	return nil
}

// TestMode reports whether the playground environment is active.
func (s *SettingsService) TestMode() bool {
	return s.getBool(settingKeyTestMode, s.cfg.KlarnaTestMode)
}

// Credentials selects the live or test pair from the test-mode flag.
func (s *SettingsService) Credentials() klarna.Credentials {
	settings := s.Settings()
	if settings.TestMode {
		return klarna.Credentials{
			MerchantID:   settings.TestMerchantID,
			SharedSecret: settings.TestSharedSecret,
		}
	}
	return klarna.Credentials{
		MerchantID:   settings.MerchantID,
		SharedSecret: settings.SharedSecret,
	}
}

// Client builds a Klarna client against the environment the settings select.
func (s *SettingsService) Client() (PaymentsClient, error) {
	testMode := s.TestMode()
	return klarna.NewClient(klarna.BaseURL(testMode), s.Credentials())
}

// Available reports whether the gateway can be offered at all: it must be
// enabled and carry a complete credential pair. Session-level errors are
// layered on top by the checkout handler.
func (s *SettingsService) Available() bool {
	settings := s.Settings()
	if !settings.Enabled {
		return false
	}
	return s.Credentials().Configured()
}
