package rehearsal

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"talentloop/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockVaultClient struct {
	mu      sync.Mutex
	secrets map[string]*config.VaultSecret
	err     error
}

func (m *mockVaultClient) GetSecretV2(path string) (*config.VaultSecret, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.secrets[path], nil
}

func (m *mockVaultClient) GetStringSliceSecret(path, key string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	secret, ok := m.secrets[path]
	if !ok {
		return nil, fmt.Errorf("secret %s not found", path)
	}
	value, _ := secret.Data[key].([]string)
	return value, nil
}

func (m *mockVaultClient) set(path string, version int64, keys ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secrets[path] = &config.VaultSecret{Data: map[string]any{"keys": keys}, Version: version}
}

const keysPath = "secret/data/rehearsal"

func TestKeyWatcherPoll(t *testing.T) {
	client := &mockVaultClient{secrets: map[string]*config.VaultSecret{}}
	client.set(keysPath, 2, "k1", "k2")

	var reloaded [][]string
	kw := NewKeyWatcher(client, keysPath, time.Minute, func(keys []string) {
		reloaded = append(reloaded, keys)
	}, nil)

	// Version 0 to 2 is a change
	changed, err := kw.poll()
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, [][]string{{"k1", "k2"}}, reloaded)

	// Same version is not
	changed, err = kw.poll()
	require.NoError(t, err)
	assert.False(t, changed)

	client.set(keysPath, 3)
	changed, err = kw.poll()
	assert.Error(t, err, "an empty key set must not replace the current keys")
	assert.False(t, changed)
	assert.Contains(t, kw.Status()["last_error"], "holds no keys")

	client.set(keysPath, 4, "k3")
	changed, err = kw.poll()
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, int64(4), kw.Status()["last_version"])
	assert.NotContains(t, kw.Status(), "last_error")
	assert.Len(t, reloaded, 2)
}

func TestKeyWatcherReadFailure(t *testing.T) {
	client := &mockVaultClient{secrets: map[string]*config.VaultSecret{}, err: fmt.Errorf("vault sealed")}
	kw := NewKeyWatcher(client, keysPath, time.Minute, func([]string) {
		t.Fatal("reload must not run when Vault is unreachable")
	}, nil)

	changed, err := kw.poll()
	assert.ErrorContains(t, err, "vault sealed")
	assert.False(t, changed)
}

func TestKeyWatcherRotatesServerKeys(t *testing.T) {
	client := &mockVaultClient{secrets: map[string]*config.VaultSecret{}}
	client.set(keysPath, 1, "old-key")

	s, _ := newTestServer(t, ServerConfig{APIKeys: []string{"old-key"}}, nil)
	kw := NewKeyWatcher(client, keysPath, 10*time.Millisecond, s.SetAPIKeys, nil)
	require.NoError(t, kw.Start(context.Background()))
	t.Cleanup(kw.Stop)

	assert.Error(t, kw.Start(context.Background()), "second start must fail")
	assert.Equal(t, int64(1), kw.Status()["last_version"], "start records the current version")

	client.set(keysPath, 2, "new-key")
	require.Eventually(t, func() bool {
		_, ok := s.checkAPIKey("new-key")
		return ok
	}, time.Second, 10*time.Millisecond)

	_, ok := s.checkAPIKey("old-key")
	assert.False(t, ok)

	kw.Stop()
	assert.Equal(t, false, kw.Status()["running"])
}

func TestKeyWatcherRequiresInterval(t *testing.T) {
	kw := NewKeyWatcher(&mockVaultClient{secrets: map[string]*config.VaultSecret{}}, keysPath, 0, func([]string) {}, nil)
	assert.Error(t, kw.Start(context.Background()))
}
