package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonathan/cv-builder/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memKV struct {
	mu     sync.Mutex
	data   map[string][]byte
	ttls   map[string]time.Duration
	getErr error
}

func newMemKV() *memKV {
	return &memKV{data: make(map[string][]byte), ttls: make(map[string]time.Duration)}
}

func (m *memKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	b, ok := m.data[key]
	if !ok {
		return nil, ErrMiss
	}
	return b, nil
}

func (m *memKV) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *memKV) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

type countingSource struct {
	calls     atomic.Int32
	templates []types.Template
	err       error
	gate      chan struct{}
}

func (s *countingSource) ListActiveTemplates(context.Context) ([]types.Template, error) {
	s.calls.Add(1)
	if s.gate != nil {
		<-s.gate
	}
	return s.templates, s.err
}

var seeded = []types.Template{
	{ID: "modern", Title: "Modern", Description: "Clean"},
	{ID: "classic", Title: "Classic"},
}

func TestTemplateCache_MissThenHit(t *testing.T) {
	src := &countingSource{templates: seeded}
	kv := newMemKV()
	c := NewTemplateCache(src, kv, time.Minute, nil)
	ctx := context.Background()

	got, err := c.ListActiveTemplates(ctx)
	require.NoError(t, err)
	assert.Equal(t, seeded, got)

	got, err = c.ListActiveTemplates(ctx)
	require.NoError(t, err)
	assert.Equal(t, seeded, got)
	assert.Equal(t, int32(1), src.calls.Load())
	assert.Equal(t, time.Minute, kv.ttls[templatesKey])
}

func TestTemplateCache_Invalidate(t *testing.T) {
	src := &countingSource{templates: seeded}
	c := NewTemplateCache(src, newMemKV(), 0, nil)
	ctx := context.Background()

	_, err := c.ListActiveTemplates(ctx)
	require.NoError(t, err)
	require.NoError(t, c.Invalidate(ctx))
	_, err = c.ListActiveTemplates(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), src.calls.Load())
}

func TestTemplateCache_KVOutageFallsBackToSource(t *testing.T) {
	src := &countingSource{templates: seeded}
	kv := newMemKV()
	kv.getErr = errors.New("connection refused")
	c := NewTemplateCache(src, kv, time.Minute, nil)

	got, err := c.ListActiveTemplates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, seeded, got)
}

func TestTemplateCache_SourceErrorNotCached(t *testing.T) {
	src := &countingSource{err: errors.New("db down")}
	kv := newMemKV()
	c := NewTemplateCache(src, kv, time.Minute, nil)

	_, err := c.ListActiveTemplates(context.Background())
	assert.Error(t, err)
	assert.Empty(t, kv.data)
}

func TestTemplateCache_CorruptEntryRefilled(t *testing.T) {
	src := &countingSource{templates: seeded}
	kv := newMemKV()
	kv.data[templatesKey] = []byte("{not json")
	c := NewTemplateCache(src, kv, time.Minute, nil)

	got, err := c.ListActiveTemplates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, seeded, got)
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestTemplateCache_ConcurrentMissesShareOneRead(t *testing.T) {
	src := &countingSource{templates: seeded, gate: make(chan struct{})}
	c := NewTemplateCache(src, newMemKV(), time.Minute, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := c.ListActiveTemplates(context.Background())
			assert.NoError(t, err)
			assert.Len(t, got, 2)
		}()
	}

	require.Eventually(t, func() bool { return src.calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(src.gate)
	wg.Wait()

	assert.Equal(t, int32(1), src.calls.Load())
}
