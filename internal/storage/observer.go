package storage

import (
	"context"
	"io"
	"time"

	"github.com/zaitanabil/galerly-sub003/internal/mediatypes"
)

// Observer receives a callback for every storage operation. The metrics
// package provides the Prometheus-backed implementation; tests can plug
// in counting fakes.
type Observer interface {
	ObserveOperation(operation string, durationSeconds float64, err error)
}

// WithObserver wraps a Storage so every operation is reported to obs.
// The wrapper also implements PartWriter, delegating when the inner
// backend supports proxied part writes.
func WithObserver(s Storage, obs Observer) Storage {
	return &observedStorage{inner: s, obs: obs}
}

type observedStorage struct {
	inner Storage
	obs   Observer
}

func (o *observedStorage) observe(op string, start time.Time, err error) {
	o.obs.ObserveOperation(op, time.Since(start).Seconds(), err)
}

func (o *observedStorage) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	data, err := o.inner.Get(ctx, key)
	o.observe("get", start, err)
	return data, err
}

func (o *observedStorage) GetStream(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	start := time.Now()
	rc, size, err := o.inner.GetStream(ctx, key)
	o.observe("get_stream", start, err)
	return rc, size, err
}

func (o *observedStorage) Put(ctx context.Context, key, contentType string, data []byte) error {
	start := time.Now()
	err := o.inner.Put(ctx, key, contentType, data)
	o.observe("put", start, err)
	return err
}

func (o *observedStorage) PutStream(ctx context.Context, key, contentType string, r io.Reader, size int64) error {
	start := time.Now()
	err := o.inner.PutStream(ctx, key, contentType, r, size)
	o.observe("put_stream", start, err)
	return err
}

func (o *observedStorage) Exists(ctx context.Context, key string) (bool, error) {
	start := time.Now()
	ok, err := o.inner.Exists(ctx, key)
	o.observe("exists", start, err)
	return ok, err
}

func (o *observedStorage) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := o.inner.Delete(ctx, key)
	o.observe("delete", start, err)
	return err
}

func (o *observedStorage) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	start := time.Now()
	n, err := o.inner.DeletePrefix(ctx, prefix)
	o.observe("delete_prefix", start, err)
	return n, err
}

func (o *observedStorage) CreateMultipart(ctx context.Context, key, contentType string) (string, error) {
	start := time.Now()
	id, err := o.inner.CreateMultipart(ctx, key, contentType)
	o.observe("create_multipart", start, err)
	return id, err
}

func (o *observedStorage) PresignPart(ctx context.Context, key, uploadID string, partNumber int, expires time.Duration) (string, error) {
	start := time.Now()
	url, err := o.inner.PresignPart(ctx, key, uploadID, partNumber, expires)
	o.observe("presign_part", start, err)
	return url, err
}

func (o *observedStorage) UploadPart(ctx context.Context, key, uploadID string, partNumber int, data []byte) (string, error) {
	pw, ok := o.inner.(PartWriter)
	if !ok {
		return "", ErrPartProxyNotSupported
	}
	start := time.Now()
	token, err := pw.UploadPart(ctx, key, uploadID, partNumber, data)
	o.observe("upload_part", start, err)
	return token, err
}

func (o *observedStorage) CompleteMultipart(ctx context.Context, key, uploadID string, parts []mediatypes.PartToken) error {
	start := time.Now()
	err := o.inner.CompleteMultipart(ctx, key, uploadID, parts)
	o.observe("complete_multipart", start, err)
	return err
}

func (o *observedStorage) AbortMultipart(ctx context.Context, key, uploadID string) error {
	start := time.Now()
	err := o.inner.AbortMultipart(ctx, key, uploadID)
	o.observe("abort_multipart", start, err)
	return err
}
