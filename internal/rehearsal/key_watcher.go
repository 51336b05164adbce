package rehearsal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"talentloop/internal/config"
	"talentloop/internal/errors"
)

// VaultSecretReader defines the Vault operations the key watcher needs
type VaultSecretReader interface {
	GetSecretV2(path string) (*config.VaultSecret, error)
	GetStringSliceSecret(path, key string) ([]string, error)
}

// KeyReloadFunc receives the rotated API keys
type KeyReloadFunc func(keys []string)

// KeyWatcher polls a Vault KVv2 secret holding the rehearsal API keys and
// hands the new key set to onReload whenever the secret version increases.
type KeyWatcher struct {
	mu sync.RWMutex

	client       VaultSecretReader
	secretPath   string
	pollInterval time.Duration
	onReload     KeyReloadFunc
	logger       *errors.Logger

	running     bool
	cancel      context.CancelFunc
	done        chan struct{}
	lastVersion int64
	lastError   string
}

// NewKeyWatcher creates a watcher for the secret at secretPath
func NewKeyWatcher(client VaultSecretReader, secretPath string, pollInterval time.Duration, onReload KeyReloadFunc, logger *errors.Logger) *KeyWatcher {
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	return &KeyWatcher{
		client:       client,
		secretPath:   secretPath,
		pollInterval: pollInterval,
		onReload:     onReload,
		logger:       logger,
	}
}

// Start records the current secret version and begins polling
func (kw *KeyWatcher) Start(ctx context.Context) error {
	kw.mu.Lock()
	defer kw.mu.Unlock()
	if kw.running {
		return fmt.Errorf("key watcher is already running")
	}
	if kw.pollInterval <= 0 {
		return fmt.Errorf("key watcher poll interval must be positive")
	}

	if secret, err := kw.client.GetSecretV2(kw.secretPath); err == nil && secret != nil {
		kw.lastVersion = secret.Version
	}

	ctx, kw.cancel = context.WithCancel(ctx)
	kw.done = make(chan struct{})
	kw.running = true
	go kw.pollLoop(ctx)

	kw.logger.Info("Vault key watcher started", "secret_path", kw.secretPath, "poll_interval", kw.pollInterval)
	return nil
}

// Stop stops polling and waits for the loop to exit
func (kw *KeyWatcher) Stop() {
	kw.mu.Lock()
	if !kw.running {
		kw.mu.Unlock()
		return
	}
	kw.running = false
	kw.cancel()
	done := kw.done
	kw.mu.Unlock()

	<-done
	kw.logger.Info("Vault key watcher stopped")
}

func (kw *KeyWatcher) pollLoop(ctx context.Context) {
	defer close(kw.done)
	ticker := time.NewTicker(kw.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := kw.poll(); err != nil {
				kw.logger.LogError(err, "Failed to check Vault for rotated API keys", "secret_path", kw.secretPath)
			}
		}
	}
}

// poll reloads the keys when the secret version moved forward. It reports
// whether a reload happened.
func (kw *KeyWatcher) poll() (bool, error) {
	secret, err := kw.client.GetSecretV2(kw.secretPath)
	if err != nil {
		kw.setError(err)
		return false, fmt.Errorf("failed to read secret: %w", err)
	}
	if secret == nil {
		err := fmt.Errorf("secret %s not found", kw.secretPath)
		kw.setError(err)
		return false, err
	}

	kw.mu.RLock()
	last := kw.lastVersion
	kw.mu.RUnlock()
	if secret.Version <= last {
		return false, nil
	}

	keys, err := kw.client.GetStringSliceSecret(kw.secretPath, "keys")
	if err != nil {
		kw.setError(err)
		return false, fmt.Errorf("failed to fetch rotated keys: %w", err)
	}
	if len(keys) == 0 {
		// An empty key set would turn authentication off; keep the old keys
		err := fmt.Errorf("secret %s version %d holds no keys", kw.secretPath, secret.Version)
		kw.setError(err)
		return false, err
	}

	kw.mu.Lock()
	kw.lastVersion = secret.Version
	kw.lastError = ""
	kw.mu.Unlock()

	kw.logger.Info("Rehearsal API keys rotated from Vault", "version", secret.Version, "count", len(keys))
	kw.onReload(keys)
	return true, nil
}

func (kw *KeyWatcher) setError(err error) {
	kw.mu.Lock()
	kw.lastError = err.Error()
	kw.mu.Unlock()
}

// Status returns the current watcher state for health reporting
func (kw *KeyWatcher) Status() map[string]any {
	kw.mu.RLock()
	defer kw.mu.RUnlock()
	status := map[string]any{
		"running":       kw.running,
		"poll_interval": kw.pollInterval.String(),
		"secret_path":   kw.secretPath,
		"last_version":  kw.lastVersion,
	}
	if kw.lastError != "" {
		status["last_error"] = kw.lastError
	}
	return status
}
