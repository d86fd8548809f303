package upload

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zaitanabil/galerly-sub003/internal/database"
	"github.com/zaitanabil/galerly-sub003/internal/logging"
	"github.com/zaitanabil/galerly-sub003/internal/mediatypes"
	"github.com/zaitanabil/galerly-sub003/internal/metrics"
	"github.com/zaitanabil/galerly-sub003/internal/storage"
)

// Sentinel aliases let callers match on the upload package without
// importing the persistence layer; errors.Is sees through them.
var (
	// ErrSessionNotFound is returned for operations against an unknown
	// session id.
	ErrSessionNotFound = database.ErrSessionNotFound

	// ErrStateConflict is returned when a concurrent writer won the
	// session's state transition.
	ErrStateConflict = database.ErrStateConflict

	// ErrAlreadyCompleted is returned when aborting a session that has
	// already completed.
	ErrAlreadyCompleted = errors.New("upload session already completed")

	// ErrInvalidRequest is returned for structurally invalid input:
	// bad bounds, unsupported file types, gap or duplicate part lists.
	ErrInvalidRequest = errors.New("invalid upload request")
)

const (
	// DefaultChunkSize is offered when the initiate request leaves the
	// part size unset.
	DefaultChunkSize int64 = 8 << 20

	// MinChunkSize is the provider floor for non-final parts.
	MinChunkSize int64 = 5 << 20

	// MaxChunkSize caps a single part write.
	MaxChunkSize int64 = 64 << 20

	// MaxParts is the provider ceiling on multipart fan-out.
	MaxParts = 10000

	// DefaultMaxFileSize bounds one original upload.
	DefaultMaxFileSize int64 = 5 << 30

	// DefaultPresignTTL bounds how long issued part capabilities stay
	// valid.
	DefaultPresignTTL = 15 * time.Minute
)

// Config carries the coordinator's operational bounds. Zero values fall
// back to the package defaults.
type Config struct {
	MaxFileSize int64
	ChunkSize   int64
	PresignTTL  time.Duration
}

// Coordinator owns the chunked-upload session lifecycle: it issues part
// write capabilities, tracks acknowledged parts, and turns a finished
// session into a MediaAsset record. All state transitions go through
// conditional writes, so concurrent completes, aborts, and the reaper
// cannot corrupt a session; the loser of any race gets ErrStateConflict.
type Coordinator struct {
	db    *database.Database
	store storage.Storage

	maxFileSize int64
	chunkSize   int64
	presignTTL  time.Duration
}

// NewCoordinator wires a coordinator against the given stores.
func NewCoordinator(db *database.Database, store storage.Storage, cfg Config) *Coordinator {
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = DefaultMaxFileSize
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.PresignTTL <= 0 {
		cfg.PresignTTL = DefaultPresignTTL
	}
	return &Coordinator{
		db:          db,
		store:       store,
		maxFileSize: cfg.MaxFileSize,
		chunkSize:   cfg.ChunkSize,
		presignTTL:  cfg.PresignTTL,
	}
}

// InitiateRequest describes one upload the client wants to start.
type InitiateRequest struct {
	CollectionID string `json:"collection_id"`
	FileName     string `json:"file_name"`
	TotalSize    int64  `json:"total_size"`

	// ChunkSize is optional; zero takes the coordinator default.
	ChunkSize int64 `json:"chunk_size,omitempty"`

	// Mime is optional; empty is derived from the file extension.
	Mime string `json:"mime,omitempty"`
}

// PartCapability authorizes the client to write one part. Presigned
// capabilities point straight at the storage provider and expire;
// proxy capabilities point at this service for backends that cannot
// presign.
type PartCapability struct {
	PartNumber int       `json:"part_number"`
	URL        string    `json:"url"`
	ExpiresAt  time.Time `json:"expires_at,omitempty"`
	Proxy      bool      `json:"proxy,omitempty"`
}

// Initiated is the result of starting a session: the stored record plus
// one write capability per part.
type Initiated struct {
	Session      *mediatypes.UploadSession `json:"session"`
	Capabilities []PartCapability          `json:"capabilities"`
}

// Initiate validates the request bounds, opens a provider multipart
// upload, stores the session, and issues one part capability per chunk.
func (c *Coordinator) Initiate(ctx context.Context, req InitiateRequest) (*Initiated, error) {
	ext, err := c.validateInitiate(&req)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	assetID := uuid.NewString()
	key := storage.OriginalKey(req.CollectionID, assetID, ext)
	mime := req.Mime
	if mime == "" {
		mime = mediatypes.MimeTypeFor(ext)
	}

	providerID, err := c.store.CreateMultipart(ctx, key, mime)
	if err != nil {
		return nil, fmt.Errorf("create multipart upload: %w", err)
	}

	session := &mediatypes.UploadSession{
		ID:               uuid.NewString(),
		AssetID:          assetID,
		CollectionID:     req.CollectionID,
		FileName:         req.FileName,
		Mime:             mime,
		StorageKey:       key,
		TotalSize:        req.TotalSize,
		ChunkSize:        req.ChunkSize,
		NumParts:         mediatypes.NumPartsFor(req.TotalSize, req.ChunkSize),
		State:            mediatypes.SessionInitiated,
		ProviderUploadID: providerID,
		CreatedAt:        now,
		LastActivityAt:   now,
	}

	capabilities, err := c.issueCapabilities(ctx, session)
	if err != nil {
		c.releaseProvider(ctx, session)
		return nil, err
	}

	if err := c.db.InsertUploadSession(ctx, session); err != nil {
		c.releaseProvider(ctx, session)
		return nil, err
	}

	metrics.UploadSessionEventsTotal.WithLabelValues("initiated").Inc()
	logging.Info("Upload session %s initiated: %s (%d bytes, %d parts)",
		session.ID, session.FileName, session.TotalSize, session.NumParts)

	return &Initiated{Session: session, Capabilities: capabilities}, nil
}

// Status loads a session with its acknowledged parts, for client resume.
func (c *Coordinator) Status(ctx context.Context, id string) (*mediatypes.UploadSession, error) {
	return c.db.GetUploadSession(ctx, id)
}

func (c *Coordinator) validateInitiate(req *InitiateRequest) (string, error) {
	if req.CollectionID == "" {
		return "", fmt.Errorf("%w: missing collection id", ErrInvalidRequest)
	}
	if req.FileName == "" {
		return "", fmt.Errorf("%w: missing file name", ErrInvalidRequest)
	}

	ext := strings.ToLower(filepath.Ext(req.FileName))
	if !mediatypes.IsSupportedUpload(ext) {
		return "", fmt.Errorf("%w: unsupported file type %q", ErrInvalidRequest, ext)
	}

	if req.TotalSize <= 0 {
		return "", fmt.Errorf("%w: total size must be positive, got %d", ErrInvalidRequest, req.TotalSize)
	}
	if req.TotalSize > c.maxFileSize {
		return "", fmt.Errorf("%w: total size %d exceeds the %d byte limit", ErrInvalidRequest, req.TotalSize, c.maxFileSize)
	}

	if req.ChunkSize == 0 {
		req.ChunkSize = c.chunkSize
	}
	if req.ChunkSize < MinChunkSize || req.ChunkSize > MaxChunkSize {
		return "", fmt.Errorf("%w: chunk size %d outside %d..%d", ErrInvalidRequest, req.ChunkSize, MinChunkSize, MaxChunkSize)
	}
	if parts := mediatypes.NumPartsFor(req.TotalSize, req.ChunkSize); parts > MaxParts {
		return "", fmt.Errorf("%w: %d parts exceeds the %d part limit, use a larger chunk size", ErrInvalidRequest, parts, MaxParts)
	}
	return ext, nil
}

// issueCapabilities presigns one write URL per part. Backends without
// presign support fall back to proxied part writes through the service,
// provided the backend accepts them.
func (c *Coordinator) issueCapabilities(ctx context.Context, s *mediatypes.UploadSession) ([]PartCapability, error) {
	capabilities := make([]PartCapability, 0, s.NumParts)
	expiresAt := time.Now().UTC().Add(c.presignTTL)
	presign := true

	for n := 1; n <= s.NumParts; n++ {
		if presign {
			url, err := c.store.PresignPart(ctx, s.StorageKey, s.ProviderUploadID, n, c.presignTTL)
			if err == nil {
				capabilities = append(capabilities, PartCapability{PartNumber: n, URL: url, ExpiresAt: expiresAt})
				continue
			}
			if !errors.Is(err, storage.ErrPresignNotSupported) {
				return nil, fmt.Errorf("presign part %d: %w", n, err)
			}
			if _, ok := c.store.(storage.PartWriter); !ok {
				return nil, fmt.Errorf("storage backend supports neither presigned nor proxied part writes")
			}
			presign = false
		}
		capabilities = append(capabilities, PartCapability{PartNumber: n, URL: proxyPartURL(s.ID, n), Proxy: true})
	}
	return capabilities, nil
}

// releaseProvider abandons the provider-side upload after a failed
// initiate. Best effort: the session row does not exist yet, so nothing
// else will ever clean this handle up.
func (c *Coordinator) releaseProvider(ctx context.Context, s *mediatypes.UploadSession) {
	if err := c.store.AbortMultipart(ctx, s.StorageKey, s.ProviderUploadID); err != nil {
		logging.Error("failed to release multipart upload for stillborn session %s: %v", s.ID, err)
	}
}

// proxyPartURL is the service-relative write target for one part when
// the backend cannot presign. The handlers package mounts this route.
func proxyPartURL(sessionID string, partNumber int) string {
	return fmt.Sprintf("/api/uploads/%s/parts/%d", sessionID, partNumber)
}
