package config

import (
	"fmt"
	"os"
	"strings"
)

// Config holds all environment-derived settings for the service.
type Config struct {
	// Webhook verification secret (hub.verify_token fallback path)
	VerifyToken string

	// Google Gemini
	GeminiAPIKey string
	GeminiModel  string
	PromptFile   string

	// Twilio Programmable Messaging
	TwilioAccountSID     string
	TwilioAuthToken      string
	TwilioWhatsAppNumber string

	// Server
	Port  string
	Debug bool
}

// Load reads configuration from environment variables. It returns an
// error naming every required variable that is missing, so startup can
// fail fast with a complete report.
func Load() (*Config, error) {
	cfg := &Config{
		VerifyToken:          os.Getenv("VERIFY_TOKEN"),
		GeminiAPIKey:         os.Getenv("GEMINI_API_KEY"),
		GeminiModel:          getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		PromptFile:           getEnv("PROMPT_FILE", "prompts/cryptolock_attendant_v1.yaml"),
		TwilioAccountSID:     os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:      os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioWhatsAppNumber: os.Getenv("TWILIO_WHATSAPP_NUMBER"),
		Port:                 getEnv("PORT", "8080"),
		Debug:                strings.EqualFold(os.Getenv("DEBUG"), "true"),
	}

	required := []struct {
		name  string
		value string
	}{
		{"VERIFY_TOKEN", cfg.VerifyToken},
		{"GEMINI_API_KEY", cfg.GeminiAPIKey},
		{"TWILIO_ACCOUNT_SID", cfg.TwilioAccountSID},
		{"TWILIO_AUTH_TOKEN", cfg.TwilioAuthToken},
		{"TWILIO_WHATSAPP_NUMBER", cfg.TwilioWhatsAppNumber},
	}

	var missing []string
	for _, r := range required {
		if r.value == "" {
			missing = append(missing, r.name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	return cfg, nil
}

// TwilioConfigured reports whether all Twilio credentials are present.
func (c *Config) TwilioConfigured() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != "" && c.TwilioWhatsAppNumber != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
