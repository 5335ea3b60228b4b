package storage

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
)

type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string]blob
}

type blob struct {
	data []byte
	info BlobInfo
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string]blob)}
}

func (ms *MemoryStore) Save(r io.Reader, info BlobInfo) (string, error) {
	if r == nil {
		return "", fmt.Errorf("no data to save")
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read data: %w", err)
	}

	id := uuid.New().String()
	info.Size = int64(len(data))

	ms.mu.Lock()
	ms.blobs[id] = blob{data: data, info: info}
	ms.mu.Unlock()

	return id, nil
}

func (ms *MemoryStore) Open(id string) (io.ReadSeekCloser, error) {
	ms.mu.RLock()
	b, ok := ms.blobs[id]
	ms.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("blob %s not found", id)
	}

	return nopCloser{bytes.NewReader(b.data)}, nil
}

func (ms *MemoryStore) Bytes(id string) ([]byte, error) {
	ms.mu.RLock()
	b, ok := ms.blobs[id]
	ms.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("blob %s not found", id)
	}

	data := make([]byte, len(b.data))
	copy(data, b.data)
	return data, nil
}

func (ms *MemoryStore) Delete(id string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, ok := ms.blobs[id]; !ok {
		return fmt.Errorf("blob %s not found", id)
	}

	delete(ms.blobs, id)
	return nil
}

// Len reports the number of live blobs. Used to verify release behavior.
func (ms *MemoryStore) Len() int {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return len(ms.blobs)
}

type nopCloser struct {
	*bytes.Reader
}

func (nopCloser) Close() error { return nil }
