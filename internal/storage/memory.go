package storage

import (
	"bytes"
	"context"
	"crypto/md5"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zaitanabil/galerly-sub003/internal/mediatypes"
)

// MemoryStorage implements Storage entirely in memory. It mirrors the
// multipart semantics of the S3 backend (per-part integrity tokens,
// token verification on complete) so coordinator logic can be tested
// without a real object store.
type MemoryStorage struct {
	mu      sync.RWMutex
	objects map[string]memObject
	uploads map[string]*memUpload
}

type memObject struct {
	contentType string
	data        []byte
}

type memUpload struct {
	key   string
	parts map[int][]byte
}

// NewMemoryStorage creates an empty in-memory store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		objects: make(map[string]memObject),
		uploads: make(map[string]*memUpload),
	}
}

func (m *MemoryStorage) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[key]
	if !ok {
		return nil, ErrNotExist
	}
	out := make([]byte, len(obj.data))
	copy(out, obj.data)
	return out, nil
}

func (m *MemoryStorage) GetStream(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	data, err := m.Get(ctx, key)
	if err != nil {
		return nil, 0, err
	}
	return io.NopCloser(bytes.NewReader(data)), int64(len(data)), nil
}

func (m *MemoryStorage) Put(ctx context.Context, key, contentType string, data []byte) error {
	stored := make([]byte, len(data))
	copy(stored, data)

	m.mu.Lock()
	m.objects[key] = memObject{contentType: contentType, data: stored}
	m.mu.Unlock()
	return nil
}

func (m *MemoryStorage) PutStream(ctx context.Context, key, contentType string, r io.Reader, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("memory storage: read stream for %s: %w", key, err)
	}
	return m.Put(ctx, key, contentType, data)
}

func (m *MemoryStorage) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[key]
	return ok, nil
}

func (m *MemoryStorage) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStorage) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	if prefix == "" {
		return 0, fmt.Errorf("memory storage: invalid prefix %q", prefix)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for key := range m.objects {
		if strings.HasPrefix(key, prefix) {
			delete(m.objects, key)
			count++
		}
	}
	return count, nil
}

func (m *MemoryStorage) CreateMultipart(ctx context.Context, key, contentType string) (string, error) {
	uploadID := uuid.NewString()

	m.mu.Lock()
	m.uploads[uploadID] = &memUpload{key: key, parts: make(map[int][]byte)}
	m.mu.Unlock()

	return uploadID, nil
}

func (m *MemoryStorage) PresignPart(ctx context.Context, key, uploadID string, partNumber int, expires time.Duration) (string, error) {
	return "", ErrPresignNotSupported
}

// UploadPart stores one part and returns its integrity token, the hex
// MD5 of the part bytes, matching what S3 reports as the part ETag.
func (m *MemoryStorage) UploadPart(ctx context.Context, key, uploadID string, partNumber int, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	up, ok := m.uploads[uploadID]
	if !ok || up.key != key {
		return "", ErrNoSuchUpload
	}

	stored := make([]byte, len(data))
	copy(stored, data)
	up.parts[partNumber] = stored

	return fmt.Sprintf("%x", md5.Sum(data)), nil
}

func (m *MemoryStorage) CompleteMultipart(ctx context.Context, key, uploadID string, parts []mediatypes.PartToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	up, ok := m.uploads[uploadID]
	if !ok || up.key != key {
		return ErrNoSuchUpload
	}

	sorted := make([]mediatypes.PartToken, len(parts))
	copy(sorted, parts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].PartNumber < sorted[j].PartNumber })

	var assembled []byte
	for _, pt := range sorted {
		data, ok := up.parts[pt.PartNumber]
		if !ok {
			return fmt.Errorf("memory storage: part %d was never uploaded", pt.PartNumber)
		}
		if got := fmt.Sprintf("%x", md5.Sum(data)); got != pt.IntegrityToken {
			return fmt.Errorf("memory storage: part %d token mismatch", pt.PartNumber)
		}
		assembled = append(assembled, data...)
	}

	m.objects[key] = memObject{data: assembled}
	delete(m.uploads, uploadID)
	return nil
}

func (m *MemoryStorage) AbortMultipart(ctx context.Context, key, uploadID string) error {
	m.mu.Lock()
	delete(m.uploads, uploadID)
	m.mu.Unlock()
	return nil
}

// Len reports how many objects the store holds. Test helper.
func (m *MemoryStorage) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

// OpenUploads reports how many multipart uploads are in flight. Test helper.
func (m *MemoryStorage) OpenUploads() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.uploads)
}
