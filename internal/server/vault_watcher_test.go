package server

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumatch/internal/config"
)

const testKeyPath = "secret/data/resumatch/api"

// mockVaultClient serves secrets from memory
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
	if secret, exists := m.secrets[path]; exists {
		return secret, nil
	}
	return nil, fmt.Errorf("secret not found at path: %s", path)
}

func (m *mockVaultClient) set(keys string, version int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secrets[testKeyPath] = &config.VaultSecret{
		Data:    map[string]any{"keys": keys},
		Version: version,
	}
}

type rotationRecorder struct {
	mu    sync.Mutex
	keys  [][]string
	errs  []error
	calls int
}

func (r *rotationRecorder) callback(keys []string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if err != nil {
		r.errs = append(r.errs, err)
		return
	}
	r.keys = append(r.keys, keys)
}

func (r *rotationRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func newMockVault(keys string, version int64) *mockVaultClient {
	m := &mockVaultClient{secrets: map[string]*config.VaultSecret{}}
	m.set(keys, version)
	return m
}

func TestVaultWatcherCheckRotatesOnNewVersion(t *testing.T) {
	client := newMockVault("key-a", 1)
	rec := &rotationRecorder{}
	vw := NewVaultWatcher(client, testKeyPath, time.Hour, rec.callback, nil)

	// first check sees version 1 as new when the watcher was never started
	assert.True(t, vw.Check())
	assert.False(t, vw.Check(), "same version must not rotate twice")

	client.set("key-b, key-c", 2)
	assert.True(t, vw.Check())

	require.Len(t, rec.keys, 2)
	assert.Equal(t, []string{"key-a"}, rec.keys[0])
	assert.Equal(t, []string{"key-b", "key-c"}, rec.keys[1])
	assert.Equal(t, int64(2), vw.Status()["last_version"])
	assert.Equal(t, 2, vw.Status()["rotations"])
}

func TestVaultWatcherCheckReportsErrors(t *testing.T) {
	client := newMockVault("key-a", 1)
	client.err = fmt.Errorf("vault sealed")
	rec := &rotationRecorder{}
	vw := NewVaultWatcher(client, testKeyPath, time.Hour, rec.callback, nil)

	assert.False(t, vw.Check())
	require.Len(t, rec.errs, 1)
	assert.Contains(t, rec.errs[0].Error(), "vault sealed")
	assert.Empty(t, rec.keys)
}

func TestVaultWatcherMissingKeysEntry(t *testing.T) {
	client := &mockVaultClient{secrets: map[string]*config.VaultSecret{
		testKeyPath: {Data: map[string]any{"other": "x"}, Version: 3},
	}}
	rec := &rotationRecorder{}
	vw := NewVaultWatcher(client, testKeyPath, time.Hour, rec.callback, nil)

	assert.False(t, vw.Check())
	require.Len(t, rec.errs, 1)
	assert.Equal(t, int64(0), vw.Status()["last_version"], "failed version must be retried")
}

func TestVaultWatcherStartSkipsCurrentVersion(t *testing.T) {
	client := newMockVault("key-a", 4)
	rec := &rotationRecorder{}
	vw := NewVaultWatcher(client, testKeyPath, time.Hour, rec.callback, nil)

	require.NoError(t, vw.Start())
	t.Cleanup(func() { _ = vw.Stop() })

	assert.Error(t, vw.Start(), "double start must fail")
	assert.False(t, vw.Check())
	assert.Equal(t, 0, rec.count())
	assert.Equal(t, true, vw.Status()["running"])
}

func TestVaultWatcherPollLoop(t *testing.T) {
	client := newMockVault("key-a", 1)
	rec := &rotationRecorder{}
	vw := NewVaultWatcher(client, testKeyPath, 10*time.Millisecond, rec.callback, nil)

	require.NoError(t, vw.Start())
	client.set("key-b", 2)

	assert.Eventually(t, func() bool { return rec.count() > 0 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, vw.Stop())
	require.NoError(t, vw.Stop(), "stop is idempotent")
	assert.Equal(t, false, vw.Status()["running"])

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.NotEmpty(t, rec.keys)
	assert.Equal(t, []string{"key-b"}, rec.keys[0])
}

func TestVaultWatcherDefaultInterval(t *testing.T) {
	vw := NewVaultWatcher(newMockVault("k", 1), testKeyPath, 0, func([]string, error) {}, nil)
	assert.Equal(t, defaultKeyPollInterval.String(), vw.Status()["poll_interval"])
}
