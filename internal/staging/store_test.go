package staging

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumatch/internal/config"
	"resumatch/internal/errors"
)

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	fail    error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*in.Bucket+"/"+*in.Key] = data
	f.types[*in.Key] = *in.ContentType
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	data, ok := f.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, stderrors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	delete(f.objects, *in.Bucket+"/"+*in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func TestLocalStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	store, err := NewLocalStore(dir)
	require.NoError(t, err)
	assert.Equal(t, config.StorageBackendLocal, store.Backend())

	ctx := context.Background()
	key, err := store.Put(ctx, "My Resume.PDF", []byte("%PDF-1.4"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "resume_"), key)
	assert.True(t, strings.HasSuffix(key, ".pdf"), key)

	data, err := os.ReadFile(filepath.Join(dir, key))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))

	staged, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(staged))

	other, err := store.Put(ctx, "My Resume.PDF", []byte("x"))
	require.NoError(t, err)
	assert.NotEqual(t, key, other)

	require.NoError(t, store.Delete(ctx, key))
	_, err = os.Stat(filepath.Join(dir, key))
	assert.True(t, os.IsNotExist(err))

	// deleting twice is not an error
	assert.NoError(t, store.Delete(ctx, key))
}

func TestLocalStoreRejectsPathKeys(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "../etc/passwd", "a/b", ".."} {
		_, err := store.Get(context.Background(), key)
		require.Error(t, err, key)

		err = store.Delete(context.Background(), key)
		require.Error(t, err, key)
		appErr, ok := errors.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, errors.ErrorTypeValidation, appErr.Type)
	}
}

func TestS3Store(t *testing.T) {
	fake := newFakeS3()
	store := NewS3Store(fake, config.S3Config{Bucket: "cvs", Prefix: "resumes/"}, nil)
	ctx := context.Background()

	key, err := store.Put(ctx, "cv.docx", []byte("PK\x03\x04"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "resumes/resume_"), key)
	assert.Equal(t, "PK\x03\x04", string(fake.objects["cvs/"+key]))
	assert.Contains(t, fake.types[key], "wordprocessingml")

	staged, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "PK\x03\x04", string(staged))

	require.NoError(t, store.Delete(ctx, key))
	assert.Empty(t, fake.objects)

	_, err = store.Get(ctx, key)
	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeStorageFailed, appErr.Code)
}

func TestS3StoreBreakerOpens(t *testing.T) {
	fake := newFakeS3()
	fake.fail = stderrors.New("connection refused")

	breaker := NewBreaker("test", config.CircuitBreakerConfig{
		Enabled:          true,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Minute,
		MinRequests:      2,
		FailureThreshold: 0.5,
	}, nil)
	store := NewS3Store(fake, config.S3Config{Bucket: "cvs"}, breaker)
	ctx := context.Background()

	for range 2 {
		_, err := store.Put(ctx, "cv.pdf", []byte("%PDF"))
		require.Error(t, err)
		appErr, ok := errors.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, errors.ErrorTypeStorage, appErr.Type)
	}
	assert.False(t, breaker.IsHealthy())
	assert.Equal(t, "open", store.BreakerStats()["state"])

	fake.fail = nil
	_, err := store.Put(ctx, "cv.pdf", []byte("%PDF"))
	require.Error(t, err)
	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrorTypeNetwork, appErr.Type)
	assert.Contains(t, appErr.Message, "temporarily unavailable")
}

func TestDisabledBreaker(t *testing.T) {
	b := NewBreaker("off", config.CircuitBreakerConfig{Enabled: false}, nil)
	assert.Nil(t, b)
	assert.True(t, b.IsHealthy())
	assert.Equal(t, map[string]any{"enabled": false}, b.Stats())

	out, err := b.Execute(func() (string, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	store, err := New(ctx, config.StorageConfig{Backend: config.StorageBackendNone}, nil)
	require.NoError(t, err)
	key, err := store.Put(ctx, "cv.pdf", []byte("x"))
	require.NoError(t, err)
	assert.Empty(t, key)
	assert.NoError(t, store.Delete(ctx, key))

	store, err = New(ctx, config.StorageConfig{Backend: config.StorageBackendLocal, LocalDir: t.TempDir()}, nil)
	require.NoError(t, err)
	assert.Equal(t, config.StorageBackendLocal, store.Backend())

	_, err = New(ctx, config.StorageConfig{Backend: "ftp"}, nil)
	assert.Error(t, err)
}
