package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"talentloop/internal/errors"

	"github.com/hashicorp/vault/api"
)

// VaultConfig holds Vault connection configuration
type VaultConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Address   string `mapstructure:"address"`
	Token     string `mapstructure:"token"`
	TokenFile string `mapstructure:"tokenFile"`
	Namespace string `mapstructure:"namespace"`

	// PollInterval re-reads rotating secrets while a long-running command is up; 0 disables polling
	PollInterval time.Duration `mapstructure:"pollInterval"`

	Secrets VaultSecrets `mapstructure:"secrets"`
}

// VaultSecrets names the KVv2 paths talentloop reads. Each path is expected
// to hold a fixed key: "token", "keys" and "api_key" respectively.
type VaultSecrets struct {
	AuthToken string `mapstructure:"authToken"`
	// RehearsalKeys may hold a comma-separated string ("k1,k2") or a JSON list
	RehearsalKeys string `mapstructure:"rehearsalKeys"`
	GeminiKey     string `mapstructure:"geminiKey"`
}

// VaultClient reads KVv2 secrets for one configured Vault
type VaultClient struct {
	api    *api.Client
	cfg    VaultConfig
	logger *errors.Logger
}

// VaultSecret represents a secret read from Vault's KVv2 engine.
type VaultSecret struct {
	Data    map[string]any
	Version int64
}

// NewVaultClient connects to Vault and checks its health. It returns a nil
// client when Vault is disabled.
func NewVaultClient(cfg VaultConfig, logger *errors.Logger) (*VaultClient, error) {
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	if !cfg.Enabled {
		logger.Debug("Vault integration disabled")
		return nil, nil
	}

	apiCfg := api.DefaultConfig()
	if cfg.Address != "" {
		apiCfg.Address = cfg.Address
	}
	client, err := api.NewClient(apiCfg)
	if err != nil {
		return nil, vaultError("failed to create vault client", err).WithContext("address", cfg.Address)
	}
	if cfg.Namespace != "" {
		client.SetNamespace(cfg.Namespace)
	}

	token, err := vaultToken(cfg)
	if err != nil {
		return nil, err
	}
	client.SetToken(token)

	health, err := client.Sys().Health()
	if err != nil {
		return nil, vaultError("failed to connect to vault", err).WithContext("address", cfg.Address)
	}
	logger.Info("Connected to Vault",
		"address", client.Address(),
		"namespace", cfg.Namespace,
		"version", health.Version,
		"sealed", health.Sealed,
		"token", maskSecret(token))

	return &VaultClient{api: client, cfg: cfg, logger: logger}, nil
}

// vaultToken prefers the inline token and falls back to the token file
func vaultToken(cfg VaultConfig) (string, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" && cfg.TokenFile != "" {
		raw, err := os.ReadFile(cfg.TokenFile)
		if err != nil {
			return "", vaultError("failed to read vault token file", err).WithContext("file", cfg.TokenFile)
		}
		token = strings.TrimSpace(string(raw))
	}
	if token == "" {
		return "", vaultError("vault token is required when vault is enabled", nil)
	}
	return token, nil
}

func vaultError(message string, cause error) *errors.AppError {
	return errors.NewConfigError(errors.ErrCodeVaultSecret, message, cause)
}

// GetSecretV2 reads the latest version of a KVv2 secret. path is the full
// logical path including the "data/" segment.
func (vc *VaultClient) GetSecretV2(path string) (*VaultSecret, error) {
	if vc == nil {
		return nil, vaultError("vault client not initialized", nil)
	}

	raw, err := vc.api.Logical().Read(path)
	if err != nil {
		return nil, vaultError("failed to read secret", err).WithContext("path", path)
	}
	secret, err := decodeKV2(path, raw)
	if err != nil {
		return nil, err
	}
	vc.logger.Debug("Secret read from Vault", "path", path, "version", secret.Version, "keys", len(secret.Data))
	return secret, nil
}

// decodeKV2 unpacks the data and metadata.version fields of a KVv2 response
func decodeKV2(path string, raw *api.Secret) (*VaultSecret, error) {
	if raw == nil || raw.Data == nil {
		return nil, vaultError("secret not found", nil).WithContext("path", path)
	}

	data, ok := raw.Data["data"].(map[string]any)
	if !ok {
		return nil, vaultError("secret is not in KVv2 format (missing 'data' field)", nil).WithContext("path", path)
	}
	metadata, ok := raw.Data["metadata"].(map[string]any)
	if !ok {
		return nil, vaultError("secret is not in KVv2 format (missing 'metadata' field)", nil).WithContext("path", path)
	}
	version, err := kvVersion(metadata["version"])
	if err != nil {
		return nil, vaultError("unreadable secret version", err).WithContext("path", path)
	}

	return &VaultSecret{Data: data, Version: version}, nil
}

// kvVersion accepts the numeric shapes the Vault client produces for metadata.version
func kvVersion(v any) (int64, error) {
	switch n := v.(type) {
	case nil:
		return 0, fmt.Errorf("missing 'version' field")
	case json.Number:
		return n.Int64()
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case string:
		return strconv.ParseInt(n, 10, 64)
	default:
		return 0, fmt.Errorf("unexpected version type %T", v)
	}
}

// GetStringSecret reads one string field of a secret
func (vc *VaultClient) GetStringSecret(path, key string) (string, error) {
	secret, err := vc.GetSecretV2(path)
	if err != nil {
		return "", err
	}
	value, appErr := stringField(secret, key)
	if appErr != nil {
		return "", appErr.WithContext("path", path)
	}
	vc.logger.Debug("String secret retrieved from Vault", "path", path, "key", key, "value", maskSecret(value))
	return value, nil
}

// GetStringSliceSecret reads a list field of a secret. Both a comma-separated
// string and a JSON list are accepted; blank entries are dropped.
func (vc *VaultClient) GetStringSliceSecret(path, key string) ([]string, error) {
	secret, err := vc.GetSecretV2(path)
	if err != nil {
		return nil, err
	}
	values, appErr := listField(secret, key)
	if appErr != nil {
		return nil, appErr.WithContext("path", path)
	}
	return values, nil
}

func stringField(secret *VaultSecret, key string) (string, *errors.AppError) {
	value, ok := secret.Data[key]
	if !ok {
		return "", vaultError(fmt.Sprintf("key '%s' not found in secret", key), nil)
	}
	s, ok := value.(string)
	if !ok {
		return "", vaultError(fmt.Sprintf("value for key '%s' is not a string", key), nil)
	}
	return s, nil
}

func listField(secret *VaultSecret, key string) ([]string, *errors.AppError) {
	value, ok := secret.Data[key]
	if !ok {
		return nil, vaultError(fmt.Sprintf("key '%s' not found in secret", key), nil)
	}
	switch v := value.(type) {
	case string:
		return splitAndTrim(v), nil
	case []string:
		return splitAndTrim(strings.Join(v, ",")), nil
	case []any:
		items := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, vaultError(fmt.Sprintf("list under key '%s' holds a %T", key, item), nil)
			}
			items = append(items, s)
		}
		return splitAndTrim(strings.Join(items, ",")), nil
	default:
		return nil, vaultError(fmt.Sprintf("value for key '%s' is neither a string nor a list", key), nil)
	}
}

// secretReader is the subset of VaultClient the secret bindings need
type secretReader interface {
	GetStringSecret(path, key string) (string, error)
	GetStringSliceSecret(path, key string) ([]string, error)
}

// secretBinding copies one Vault secret into the config. An empty value
// leaves the config untouched.
type secretBinding struct {
	name  string
	path  string
	key   string
	list  bool
	apply func(c *Config, values []string)
}

func secretBindings(c *Config) []secretBinding {
	paths := c.Vault.Secrets
	return []secretBinding{
		{
			name: "API auth token", path: paths.AuthToken, key: "token",
			apply: func(c *Config, v []string) { c.API.AuthToken = v[0] },
		},
		{
			name: "rehearsal API keys", path: paths.RehearsalKeys, key: "keys", list: true,
			apply: func(c *Config, v []string) { c.Rehearsal.APIKeys = v },
		},
		{
			name: "Gemini API key", path: paths.GeminiKey, key: "api_key",
			apply: func(c *Config, v []string) { c.Rehearsal.AI.APIKey = v[0] },
		},
	}
}

// ApplyVaultSecrets overlays the configured Vault secrets onto cfg
func ApplyVaultSecrets(cfg *Config, logger *errors.Logger) error {
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	if !cfg.Vault.Enabled {
		logger.Debug("Vault integration disabled, skipping secret loading")
		return nil
	}

	client, err := NewVaultClient(cfg.Vault, logger)
	if err != nil {
		logger.LogError(err, "Failed to initialize Vault client")
		return err
	}
	return applySecrets(client, cfg, logger)
}

func applySecrets(reader secretReader, cfg *Config, logger *errors.Logger) error {
	applied := 0
	for _, b := range secretBindings(cfg) {
		if b.path == "" {
			continue
		}

		values, err := readBinding(reader, b)
		if err != nil {
			logger.LogError(err, "Failed to load secret from Vault", "secret", b.name, "path", b.path)
			return errors.NewConfigError(errors.ErrCodeVaultSecret,
				fmt.Sprintf("failed to load %s from vault", b.name), err).WithContext("path", b.path)
		}
		if len(values) == 0 {
			logger.Warn("Empty secret in Vault, keeping configured value", "secret", b.name, "path", b.path)
			continue
		}

		b.apply(cfg, values)
		applied++
		logger.Info("Secret loaded from Vault", "secret", b.name, "values", len(values))
	}

	logger.Debug("Vault secrets applied", "count", applied)
	return nil
}

func readBinding(reader secretReader, b secretBinding) ([]string, error) {
	if b.list {
		return reader.GetStringSliceSecret(b.path, b.key)
	}
	value, err := reader.GetStringSecret(b.path, b.key)
	if err != nil || value == "" {
		return nil, err
	}
	return []string{value}, nil
}
