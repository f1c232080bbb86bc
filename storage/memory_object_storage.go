package storage

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
)

/*
* MemoryObjectStorage keeps objects in process memory. It behaves like the
* s3 backed storage for the operations the pipeline uses and is selected
* with the "memory" object storage endpoint.
 */
type MemoryObjectStorage struct {
	mu      sync.RWMutex
	buckets map[string]map[string][]byte
}

func NewMemoryObjectStorage() *MemoryObjectStorage {
	return &MemoryObjectStorage{
		buckets: make(map[string]map[string][]byte),
	}
}

func (obj *MemoryObjectStorage) Upload(ctx context.Context, bucket, key string, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	obj.mu.Lock()
	defer obj.mu.Unlock()

	objects, ok := obj.buckets[bucket]
	if !ok {
		objects = make(map[string][]byte)
		obj.buckets[bucket] = objects
	}
	objects[key] = slices.Clone(body)
	return nil
}

func (obj *MemoryObjectStorage) Download(ctx context.Context, bucket, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	obj.mu.RLock()
	defer obj.mu.RUnlock()

	body, ok := obj.buckets[bucket][key]
	if !ok {
		return nil, fmt.Errorf("%w| bucket: %s, key: %s", ErrObjectNotFound, bucket, key)
	}
	return slices.Clone(body), nil
}

func (obj *MemoryObjectStorage) Delete(ctx context.Context, bucket, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	obj.mu.Lock()
	defer obj.mu.Unlock()

	delete(obj.buckets[bucket], key)
	return nil
}

func (obj *MemoryObjectStorage) ListObjects(ctx context.Context, bucket, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	obj.mu.RLock()
	defer obj.mu.RUnlock()

	keys := make([]string, 0)
	for key := range obj.buckets[bucket] {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	return keys, nil
}
