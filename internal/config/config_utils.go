package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// applyFallbacks applies environment variable fallbacks and derived defaults
func (c *Config) applyFallbacks() {
	c.applyRehearsalKeyFallbacks()
	c.applyGeminiKeyFallback()
	c.applyObservabilityDefaults()

	c.API.BaseURL = strings.TrimRight(c.API.BaseURL, "/")
	if c.SystemCheck.ProbeURL == "" {
		c.SystemCheck.ProbeURL = c.API.BaseURL
	}
}

// applyRehearsalKeyFallbacks reads comma-separated rehearsal API keys from the environment
func (c *Config) applyRehearsalKeyFallbacks() {
	if len(c.Rehearsal.APIKeys) == 0 {
		if keysEnv := os.Getenv("TALENTLOOP_REHEARSAL_APIKEYS"); keysEnv != "" {
			c.Rehearsal.APIKeys = splitAndTrim(keysEnv)
		}
	}
}

// applyGeminiKeyFallback accepts the conventional GEMINI_API_KEY variable
func (c *Config) applyGeminiKeyFallback() {
	if c.Rehearsal.AI.APIKey == "" {
		c.Rehearsal.AI.APIKey = os.Getenv("GEMINI_API_KEY")
	}
}

// applyObservabilityDefaults applies default observability configuration values
func (c *Config) applyObservabilityDefaults() {
	if c.Observability.ServiceInstance == "" {
		c.Observability.ServiceInstance = generateServiceInstanceID(c.Observability.ServiceName)
	}
}

// generateServiceInstanceID generates a unique service instance ID
func generateServiceInstanceID(serviceName string) string {
	if hostname, err := os.Hostname(); err == nil {
		return fmt.Sprintf("%s-%s", serviceName, hostname)
	}
	return fmt.Sprintf("%s-1", serviceName)
}

func defaultHandoffPath() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "talentloop", "handoff.json")
	}
	return filepath.Join(os.TempDir(), "talentloop-handoff.json")
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// maskSecret keeps the first and last four characters of long secrets
func maskSecret(value string) string {
	switch {
	case value == "":
		return "<not set>"
	case len(value) > 8:
		return value[:4] + "****" + value[len(value)-4:]
	default:
		return "****"
	}
}

func (c *Config) logConfigurationSources(configFileUsed string) {
	log.Println("[CONFIG] === Configuration Sources Summary ===")

	if configFileUsed != "" {
		log.Printf("[CONFIG] Config file: %s", configFileUsed)
	} else {
		log.Println("[CONFIG] Config file: None (using defaults)")
	}

	envVars := []string{
		"TALENTLOOP_API_BASEURL",
		"TALENTLOOP_API_AUTHTOKEN",
		"TALENTLOOP_HANDOFF_BACKEND",
		"TALENTLOOP_SPEECH_RECOGNIZER",
		"TALENTLOOP_APP_LOGLEVEL",
		"TALENTLOOP_VAULT_ENABLED",
		"TALENTLOOP_REHEARSAL_APIKEYS",
		"GEMINI_API_KEY",
	}

	log.Println("[CONFIG] Environment variables:")
	hasEnvVars := false
	for _, envVar := range envVars {
		if value := os.Getenv(envVar); value != "" {
			lower := strings.ToLower(envVar)
			if strings.Contains(lower, "key") || strings.Contains(lower, "token") {
				log.Printf("[CONFIG]   %s=***MASKED***", envVar)
			} else {
				log.Printf("[CONFIG]   %s=%s", envVar, value)
			}
			hasEnvVars = true
		}
	}
	if !hasEnvVars {
		log.Println("[CONFIG]   None set")
	}

	log.Println("[CONFIG] === Key Configuration Values ===")
	log.Printf("[CONFIG] API base URL: %s (timeout %s)", c.API.BaseURL, c.API.Timeout)
	log.Printf("[CONFIG] API auth token: %s", maskSecret(c.API.AuthToken))
	log.Printf("[CONFIG] Interview duration: %s, final question at %s", c.Interview.Duration, c.Interview.FinalQuestionThreshold)
	log.Printf("[CONFIG] Speech: recognizer=%s synthesizer=%s", c.Speech.Recognizer, c.Speech.Synthesizer)
	log.Printf("[CONFIG] Handoff backend: %s", c.Handoff.Backend)
	log.Printf("[CONFIG] Vault enabled: %t", c.Vault.Enabled)
	log.Printf("[CONFIG] Log level: %s", c.App.LogLevel)
}
