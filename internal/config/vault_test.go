package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"talentloop/internal/errors"

	"github.com/hashicorp/vault/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKVVersion(t *testing.T) {
	tests := []struct {
		name    string
		input   any
		want    int64
		wantErr bool
	}{
		{name: "json number", input: json.Number("7"), want: 7},
		{name: "int64", input: int64(42), want: 42},
		{name: "float64", input: float64(3), want: 3},
		{name: "string", input: "12", want: 12},
		{name: "bad string", input: "twelve", wantErr: true},
		{name: "missing", input: nil, wantErr: true},
		{name: "unsupported", input: []string{"1"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := kvVersion(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeKV2(t *testing.T) {
	tests := []struct {
		name    string
		raw     *api.Secret
		want    *VaultSecret
		wantErr string
	}{
		{
			name: "data and version",
			raw: &api.Secret{Data: map[string]any{
				"data":     map[string]any{"token": "abc"},
				"metadata": map[string]any{"version": json.Number("3")},
			}},
			want: &VaultSecret{Data: map[string]any{"token": "abc"}, Version: 3},
		},
		{name: "nil response", raw: nil, wantErr: "secret not found"},
		{
			name:    "kv v1 layout",
			raw:     &api.Secret{Data: map[string]any{"token": "abc"}},
			wantErr: "missing 'data' field",
		},
		{
			name:    "no metadata",
			raw:     &api.Secret{Data: map[string]any{"data": map[string]any{}}},
			wantErr: "missing 'metadata' field",
		},
		{
			name: "no version",
			raw: &api.Secret{Data: map[string]any{
				"data":     map[string]any{},
				"metadata": map[string]any{"created_time": "now"},
			}},
			wantErr: "unreadable secret version",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeKV2("secret/data/talentloop/api", tt.raw)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				assert.True(t, errors.HasCode(err, errors.ErrCodeVaultSecret))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestListField(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		want    []string
		wantErr bool
	}{
		{name: "comma separated", value: "k1, k2,,k3 ", want: []string{"k1", "k2", "k3"}},
		{name: "json list", value: []any{"k1", " k2 "}, want: []string{"k1", "k2"}},
		{name: "string slice", value: []string{"k1"}, want: []string{"k1"}},
		{name: "empty string", value: "", want: []string{}},
		{name: "mixed list", value: []any{"k1", 2}, wantErr: true},
		{name: "number", value: 5, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := listField(&VaultSecret{Data: map[string]any{"keys": tt.value}}, "keys")
			if tt.wantErr {
				assert.NotNil(t, err)
				return
			}
			assert.Nil(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := listField(&VaultSecret{Data: map[string]any{}}, "keys")
	require.NotNil(t, err)
	assert.Contains(t, err.Message, "not found")
}

func TestStringField(t *testing.T) {
	secret := &VaultSecret{Data: map[string]any{"token": "abc", "count": 3}}

	v, err := stringField(secret, "token")
	assert.Nil(t, err)
	assert.Equal(t, "abc", v)

	_, err = stringField(secret, "count")
	require.NotNil(t, err)
	assert.Contains(t, err.Message, "not a string")
}

func TestVaultToken(t *testing.T) {
	dir := t.TempDir()
	tokenFile := filepath.Join(dir, "vault-token")
	require.NoError(t, os.WriteFile(tokenFile, []byte("  file-token  \n"), 0600))
	blankFile := filepath.Join(dir, "blank-token")
	require.NoError(t, os.WriteFile(blankFile, []byte("   \n"), 0600))

	tests := []struct {
		name    string
		cfg     VaultConfig
		want    string
		wantErr string
	}{
		{name: "inline token", cfg: VaultConfig{Token: "direct", TokenFile: tokenFile}, want: "direct"},
		{name: "token file is trimmed", cfg: VaultConfig{TokenFile: tokenFile}, want: "file-token"},
		{name: "missing file", cfg: VaultConfig{TokenFile: filepath.Join(dir, "nope")}, wantErr: "failed to read vault token file"},
		{name: "blank file", cfg: VaultConfig{TokenFile: blankFile}, wantErr: "vault token is required"},
		{name: "nothing set", cfg: VaultConfig{}, wantErr: "vault token is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := vaultToken(tt.cfg)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApplyVaultSecretsDisabled(t *testing.T) {
	cfg := &Config{API: APIConfig{AuthToken: "from-env"}}
	assert.NoError(t, ApplyVaultSecrets(cfg, nil))
	assert.Equal(t, "from-env", cfg.API.AuthToken)
}

type fakeSecretReader struct {
	strings map[string]string
	slices  map[string][]string
	err     error
}

func (f *fakeSecretReader) GetStringSecret(path, key string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.strings[path+"#"+key], nil
}

func (f *fakeSecretReader) GetStringSliceSecret(path, key string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.slices[path+"#"+key], nil
}

func TestApplySecrets(t *testing.T) {
	logger := errors.NewNopLogger()

	t.Run("all bindings", func(t *testing.T) {
		cfg := &Config{Vault: VaultConfig{Secrets: VaultSecrets{
			AuthToken:     "secret/data/talentloop/api",
			RehearsalKeys: "secret/data/talentloop/rehearsal",
			GeminiKey:     "secret/data/talentloop/gemini",
		}}}
		reader := &fakeSecretReader{
			strings: map[string]string{
				"secret/data/talentloop/api#token":      "bearer-123",
				"secret/data/talentloop/gemini#api_key": "gemini-abc",
			},
			slices: map[string][]string{
				"secret/data/talentloop/rehearsal#keys": {"k1", "k2"},
			},
		}

		require.NoError(t, applySecrets(reader, cfg, logger))
		assert.Equal(t, "bearer-123", cfg.API.AuthToken)
		assert.Equal(t, []string{"k1", "k2"}, cfg.Rehearsal.APIKeys)
		assert.Equal(t, "gemini-abc", cfg.Rehearsal.AI.APIKey)
	})

	t.Run("empty secrets keep configured values", func(t *testing.T) {
		cfg := &Config{
			API:   APIConfig{AuthToken: "from-env"},
			Vault: VaultConfig{Secrets: VaultSecrets{AuthToken: "secret/data/api", RehearsalKeys: "secret/data/keys"}},
		}
		cfg.Rehearsal.APIKeys = []string{"local"}

		require.NoError(t, applySecrets(&fakeSecretReader{}, cfg, logger))
		assert.Equal(t, "from-env", cfg.API.AuthToken)
		assert.Equal(t, []string{"local"}, cfg.Rehearsal.APIKeys)
	})

	t.Run("unset paths are not read", func(t *testing.T) {
		cfg := &Config{}
		assert.NoError(t, applySecrets(&fakeSecretReader{err: fmt.Errorf("should not be called")}, cfg, logger))
	})

	t.Run("read errors name the secret", func(t *testing.T) {
		cfg := &Config{Vault: VaultConfig{Secrets: VaultSecrets{GeminiKey: "secret/data/gemini"}}}

		err := applySecrets(&fakeSecretReader{err: fmt.Errorf("permission denied")}, cfg, logger)
		assert.ErrorContains(t, err, "failed to load Gemini API key from vault")
		assert.ErrorContains(t, err, "permission denied")
		assert.True(t, errors.HasCode(err, errors.ErrCodeVaultSecret))
	})
}
