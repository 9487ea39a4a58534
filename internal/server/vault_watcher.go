package server

import (
	"fmt"
	"sync"
	"time"

	"resumatch/internal/config"
	"resumatch/internal/errors"
)

const defaultKeyPollInterval = 5 * time.Minute

// KeyRotationCallback receives the API keys of a new secret version
type KeyRotationCallback func(keys []string, err error)

// VaultWatcher polls the API key secret in Vault and hands every new
// version to the rotation callback
type VaultWatcher struct {
	mu sync.RWMutex

	client       config.SecretReader
	secretPath   string
	pollInterval time.Duration
	onRotate     KeyRotationCallback
	logger       *errors.Logger

	stopChan    chan struct{}
	doneChan    chan struct{}
	running     bool
	lastVersion int64
	lastCheck   time.Time
	rotations   int
}

// NewVaultWatcher creates a new VaultWatcher
func NewVaultWatcher(client config.SecretReader, secretPath string, pollInterval time.Duration, onRotate KeyRotationCallback, logger *errors.Logger) *VaultWatcher {
	if pollInterval <= 0 {
		pollInterval = defaultKeyPollInterval
	}
	return &VaultWatcher{
		client:       client,
		secretPath:   secretPath,
		pollInterval: pollInterval,
		onRotate:     onRotate,
		logger:       logger,
	}
}

// Start records the current secret version and begins polling
func (vw *VaultWatcher) Start() error {
	vw.mu.Lock()
	defer vw.mu.Unlock()
	if vw.running {
		return fmt.Errorf("vault watcher is already running")
	}

	// keys of the current version were applied at startup
	if secret, err := vw.client.GetSecretV2(vw.secretPath); err == nil && secret != nil {
		vw.lastVersion = secret.Version
	} else if err != nil && vw.logger != nil {
		vw.logger.LogError(err, "Failed to read initial API key version", "secret_path", vw.secretPath)
	}

	vw.stopChan = make(chan struct{})
	vw.doneChan = make(chan struct{})
	vw.running = true
	go vw.pollLoop(vw.stopChan, vw.doneChan)

	if vw.logger != nil {
		vw.logger.Info("Vault API key watcher started", "secret_path", vw.secretPath, "poll_interval", vw.pollInterval)
	}
	return nil
}

// Stop stops the watcher and waits for the poll loop to exit
func (vw *VaultWatcher) Stop() error {
	vw.mu.Lock()
	if !vw.running {
		vw.mu.Unlock()
		return nil
	}
	close(vw.stopChan)
	vw.running = false
	done := vw.doneChan
	vw.mu.Unlock()

	<-done
	if vw.logger != nil {
		vw.logger.Info("Vault API key watcher stopped")
	}
	return nil
}

func (vw *VaultWatcher) pollLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(vw.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			vw.Check()
		case <-stop:
			return
		}
	}
}

// Check polls the secret once and invokes the callback when a newer
// version is found or the read fails. It reports whether keys rotated.
func (vw *VaultWatcher) Check() bool {
	keys, changed, err := vw.checkForUpdates()
	if err != nil {
		vw.onRotate(nil, err)
		return false
	}
	if !changed {
		return false
	}
	if vw.logger != nil {
		vw.logger.Info("API key secret changed in Vault", "version", vw.version())
	}
	vw.onRotate(keys, nil)
	return true
}

func (vw *VaultWatcher) checkForUpdates() ([]string, bool, error) {
	secret, err := vw.client.GetSecretV2(vw.secretPath)

	vw.mu.Lock()
	defer vw.mu.Unlock()
	vw.lastCheck = time.Now()

	if err != nil {
		return nil, false, fmt.Errorf("failed to read secret: %w", err)
	}
	if secret == nil {
		return nil, false, fmt.Errorf("secret not found at path: %s", vw.secretPath)
	}
	if secret.Version <= vw.lastVersion {
		return nil, false, nil
	}

	keys, err := config.APIKeysFromSecret(secret)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read API keys from version %d: %w", secret.Version, err)
	}
	vw.lastVersion = secret.Version
	vw.rotations++
	return keys, true, nil
}

func (vw *VaultWatcher) version() int64 {
	vw.mu.RLock()
	defer vw.mu.RUnlock()
	return vw.lastVersion
}

// Status returns the current status of the VaultWatcher for health reporting
func (vw *VaultWatcher) Status() map[string]any {
	vw.mu.RLock()
	defer vw.mu.RUnlock()
	status := map[string]any{
		"running":       vw.running,
		"poll_interval": vw.pollInterval.String(),
		"secret_path":   vw.secretPath,
		"last_version":  vw.lastVersion,
		"rotations":     vw.rotations,
	}
	if !vw.lastCheck.IsZero() {
		status["last_check"] = vw.lastCheck.Format(time.RFC3339)
	}
	return status
}
