// Package cache is a read-through cache for area shapefile blobs.
//
// Entries are keyed by functional area id and hold the blob of the most
// recent current version, so they must be invalidated whenever any chain for
// that id gains a version or is deactivated.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"strdep/pkg/domain"
)

// ErrMiss is returned when the key is absent.
var ErrMiss = errors.New("cache: miss")

// Blob is a cached shapefile with the metadata the file endpoint needs.
type Blob struct {
	Filename string `json:"filename"`
	Data     []byte `json:"data"`
}

// BlobCache caches shapefile blobs keyed by functional area id.
type BlobCache interface {
	Get(ctx context.Context, areaID domain.FunctionalID) (*Blob, error)
	Set(ctx context.Context, areaID domain.FunctionalID, blob *Blob) error
	Invalidate(ctx context.Context, areaID domain.FunctionalID) error
}

func blobKey(areaID domain.FunctionalID) string {
	return "area:blob:" + string(areaID)
}

// Redis backs the cache with a shared Redis instance.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) Get(ctx context.Context, areaID domain.FunctionalID) (*Blob, error) {
	data, err := r.client.Get(ctx, blobKey(areaID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("cache get: %w", err)
	}
	var blob Blob
	if err := json.Unmarshal(data, &blob); err != nil {
		return nil, fmt.Errorf("cache decode: %w", err)
	}
	return &blob, nil
}

func (r *Redis) Set(ctx context.Context, areaID domain.FunctionalID, blob *Blob) error {
	data, err := json.Marshal(blob)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	if err := r.client.Set(ctx, blobKey(areaID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

func (r *Redis) Invalidate(ctx context.Context, areaID domain.FunctionalID) error {
	if err := r.client.Del(ctx, blobKey(areaID)).Err(); err != nil {
		return fmt.Errorf("cache invalidate: %w", err)
	}
	return nil
}

type memoryEntry struct {
	blob      Blob
	expiresAt time.Time
}

// Memory is the in-process fallback used when Redis is not configured.
type Memory struct {
	mu      sync.RWMutex
	entries map[domain.FunctionalID]memoryEntry
	ttl     time.Duration
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{entries: make(map[domain.FunctionalID]memoryEntry), ttl: ttl}
}

func (m *Memory) Get(_ context.Context, areaID domain.FunctionalID) (*Blob, error) {
	m.mu.RLock()
	entry, ok := m.entries[areaID]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrMiss
	}
	if time.Now().After(entry.expiresAt) {
		m.mu.Lock()
		delete(m.entries, areaID)
		m.mu.Unlock()
		return nil, ErrMiss
	}
	data := make([]byte, len(entry.blob.Data))
	copy(data, entry.blob.Data)
	return &Blob{Filename: entry.blob.Filename, Data: data}, nil
}

func (m *Memory) Set(_ context.Context, areaID domain.FunctionalID, blob *Blob) error {
	stored := make([]byte, len(blob.Data))
	copy(stored, blob.Data)
	m.mu.Lock()
	m.entries[areaID] = memoryEntry{
		blob:      Blob{Filename: blob.Filename, Data: stored},
		expiresAt: time.Now().Add(m.ttl),
	}
	m.mu.Unlock()
	return nil
}

func (m *Memory) Invalidate(_ context.Context, areaID domain.FunctionalID) error {
	m.mu.Lock()
	delete(m.entries, areaID)
	m.mu.Unlock()
	return nil
}
