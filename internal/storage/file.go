package storage

import (
	"context"
	"crypto/md5"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zaitanabil/galerly-sub003/internal/filesystem"
	"github.com/zaitanabil/galerly-sub003/internal/mediatypes"
)

// FileStorage implements Storage on the local filesystem. It exists for
// development and single-node deployments; larger deployments use
// S3Storage. Writes are atomic: content lands in a temp file in the
// destination directory and is renamed into place, so readers never
// observe partial objects. Reads retry NFS stale handles, since the
// data volume is commonly network-mounted.
//
// Multipart state is held in memory, which is fine for a single-process
// server but means in-flight uploads do not survive restarts.
type FileStorage struct {
	root  string
	retry filesystem.RetryConfig

	mu      sync.Mutex
	uploads map[string]*fileUpload
}

type fileUpload struct {
	key string
	dir string
}

// NewFileStorage creates a file-backed store rooted at dir, creating it
// if needed.
func NewFileStorage(dir string) (*FileStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("file storage: create root %s: %w", dir, err)
	}
	return &FileStorage{
		root:    dir,
		retry:   filesystem.DefaultRetryConfig(),
		uploads: make(map[string]*fileUpload),
	}, nil
}

// path maps a storage key onto the local tree, rejecting traversal.
func (f *FileStorage) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("file storage: invalid key %q", key)
	}
	return filepath.Join(f.root, clean), nil
}

func (f *FileStorage) Get(ctx context.Context, key string) ([]byte, error) {
	p, err := f.path(key)
	if err != nil {
		return nil, err
	}
	data, err := filesystem.ReadFile(p, f.retry)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("file storage: read %s: %w", key, err)
	}
	return data, nil
}

func (f *FileStorage) GetStream(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	p, err := f.path(key)
	if err != nil {
		return nil, 0, err
	}
	file, err := filesystem.Open(p, f.retry)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, ErrNotExist
		}
		return nil, 0, fmt.Errorf("file storage: open %s: %w", key, err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, 0, fmt.Errorf("file storage: stat %s: %w", key, err)
	}
	return file, info.Size(), nil
}

func (f *FileStorage) Put(ctx context.Context, key, contentType string, data []byte) error {
	return f.PutStream(ctx, key, contentType, strings.NewReader(string(data)), int64(len(data)))
}

func (f *FileStorage) PutStream(ctx context.Context, key, contentType string, r io.Reader, size int64) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("file storage: mkdir for %s: %w", key, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), ".put-*")
	if err != nil {
		return fmt.Errorf("file storage: temp for %s: %w", key, err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("file storage: write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("file storage: close %s: %w", key, err)
	}
	if err := os.Rename(tmpName, p); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("file storage: publish %s: %w", key, err)
	}
	return nil
}

func (f *FileStorage) Exists(ctx context.Context, key string) (bool, error) {
	p, err := f.path(key)
	if err != nil {
		return false, err
	}
	if _, err := filesystem.Stat(p, f.retry); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("file storage: stat %s: %w", key, err)
	}
	return true, nil
}

func (f *FileStorage) Delete(ctx context.Context, key string) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("file storage: delete %s: %w", key, err)
	}
	return nil
}

// DeletePrefix walks the deepest directory the prefix names, so clearing
// one source's cache entries never touches sibling trees. Dot-prefixed
// names are skipped: those are in-flight temp files owned by a writer.
func (f *FileStorage) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	trimmed := strings.TrimSuffix(prefix, "/")
	if trimmed == "" || path.Clean("/"+trimmed) != "/"+trimmed {
		return 0, fmt.Errorf("file storage: invalid prefix %q", prefix)
	}
	clean := trimmed
	if strings.HasSuffix(prefix, "/") {
		clean += "/"
	}

	dir, _ := path.Split(clean)
	root := filepath.Join(f.root, filepath.FromSlash(dir))
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return 0, nil
	}

	count := 0
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}

		rel, err := filepath.Rel(f.root, p)
		if err != nil {
			return err
		}
		if !strings.HasPrefix(filepath.ToSlash(rel), clean) {
			return nil
		}
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		return count, fmt.Errorf("file storage: delete prefix %s: %w", prefix, err)
	}
	return count, nil
}

func (f *FileStorage) CreateMultipart(ctx context.Context, key, contentType string) (string, error) {
	if _, err := f.path(key); err != nil {
		return "", err
	}

	uploadID := uuid.NewString()
	dir := filepath.Join(f.root, ".multipart", uploadID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("file storage: create multipart spool: %w", err)
	}

	f.mu.Lock()
	f.uploads[uploadID] = &fileUpload{key: key, dir: dir}
	f.mu.Unlock()

	return uploadID, nil
}

// PresignPart is unsupported: there is no external endpoint to sign for.
// Part bytes reach this backend through UploadPart instead.
func (f *FileStorage) PresignPart(ctx context.Context, key, uploadID string, partNumber int, expires time.Duration) (string, error) {
	return "", ErrPresignNotSupported
}

// UploadPart writes one part into the spool and returns its integrity
// token, the hex MD5 of the part bytes.
func (f *FileStorage) UploadPart(ctx context.Context, key, uploadID string, partNumber int, data []byte) (string, error) {
	f.mu.Lock()
	up, ok := f.uploads[uploadID]
	f.mu.Unlock()
	if !ok || up.key != key {
		return "", ErrNoSuchUpload
	}

	part := filepath.Join(up.dir, fmt.Sprintf("part-%05d", partNumber))
	if err := os.WriteFile(part, data, 0o644); err != nil {
		return "", fmt.Errorf("file storage: write part %d: %w", partNumber, err)
	}
	return fmt.Sprintf("%x", md5.Sum(data)), nil
}

func (f *FileStorage) CompleteMultipart(ctx context.Context, key, uploadID string, parts []mediatypes.PartToken) error {
	f.mu.Lock()
	up, ok := f.uploads[uploadID]
	f.mu.Unlock()
	if !ok || up.key != key {
		return ErrNoSuchUpload
	}

	p, err := f.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("file storage: mkdir for %s: %w", key, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), ".complete-*")
	if err != nil {
		return fmt.Errorf("file storage: temp for %s: %w", key, err)
	}
	tmpName := tmp.Name()

	for _, pt := range parts {
		if err := ctx.Err(); err != nil {
			tmp.Close()
			os.Remove(tmpName)
			return err
		}

		data, err := os.ReadFile(filepath.Join(up.dir, fmt.Sprintf("part-%05d", pt.PartNumber)))
		if err != nil {
			tmp.Close()
			os.Remove(tmpName)
			return fmt.Errorf("file storage: part %d missing from spool: %w", pt.PartNumber, err)
		}
		if got := fmt.Sprintf("%x", md5.Sum(data)); got != pt.IntegrityToken {
			tmp.Close()
			os.Remove(tmpName)
			return fmt.Errorf("file storage: part %d token mismatch", pt.PartNumber)
		}
		if _, err := tmp.Write(data); err != nil {
			tmp.Close()
			os.Remove(tmpName)
			return fmt.Errorf("file storage: assemble %s: %w", key, err)
		}
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("file storage: close %s: %w", key, err)
	}
	if err := os.Rename(tmpName, p); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("file storage: publish %s: %w", key, err)
	}

	f.mu.Lock()
	delete(f.uploads, uploadID)
	f.mu.Unlock()
	os.RemoveAll(up.dir)

	return nil
}

func (f *FileStorage) AbortMultipart(ctx context.Context, key, uploadID string) error {
	f.mu.Lock()
	up, ok := f.uploads[uploadID]
	if ok {
		delete(f.uploads, uploadID)
	}
	f.mu.Unlock()

	if ok {
		os.RemoveAll(up.dir)
	}
	return nil
}
