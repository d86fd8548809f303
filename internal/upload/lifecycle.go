package upload

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/zaitanabil/galerly-sub003/internal/logging"
	"github.com/zaitanabil/galerly-sub003/internal/mediatypes"
	"github.com/zaitanabil/galerly-sub003/internal/metrics"
)

// Complete validates the presented part list, finalizes the provider
// upload, and turns the session into a pending MediaAsset. The caller
// must present every part from 1 to numParts exactly once with its
// integrity token; out-of-order input is sorted, anything missing,
// duplicated, or out of range is rejected before any storage call.
//
// The state write to completing is conditional, so concurrent
// completes, aborts, and the reaper race safely: exactly one caller
// proceeds, the rest get ErrStateConflict. If the provider finalize
// fails, the session stays in completing and the reaper reclaims it
// after the inactivity window.
func (c *Coordinator) Complete(ctx context.Context, id string, parts []mediatypes.PartToken) (*mediatypes.MediaAsset, error) {
	sess, err := c.db.GetUploadSession(ctx, id)
	if err != nil {
		return nil, err
	}

	sorted, err := validateParts(parts, sess.NumParts)
	if err != nil {
		return nil, err
	}

	err = c.db.TransitionSessionState(ctx, id,
		[]mediatypes.SessionState{mediatypes.SessionInitiated, mediatypes.SessionPartsUploading},
		mediatypes.SessionCompleting)
	if err != nil {
		if errors.Is(err, ErrStateConflict) {
			metrics.UploadStateConflictsTotal.Inc()
		}
		return nil, err
	}

	if err := c.store.CompleteMultipart(ctx, sess.StorageKey, sess.ProviderUploadID, sorted); err != nil {
		return nil, fmt.Errorf("finalize multipart upload for session %s: %w", id, err)
	}

	now := time.Now().UTC()
	ext := strings.ToLower(filepath.Ext(sess.FileName))
	asset := &mediatypes.MediaAsset{
		ID:           sess.AssetID,
		CollectionID: sess.CollectionID,
		StorageKey:   sess.StorageKey,
		FileName:     sess.FileName,
		Mime:         sess.Mime,
		Extension:    ext,
		Size:         sess.TotalSize,
		Kind:         mediatypes.KindForExtension(ext),
		DecodeStatus: mediatypes.DecodePending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := c.db.InsertAsset(ctx, asset); err != nil {
		// The original is already assembled. Drop it so a retried upload
		// does not leave an unreferenced object behind.
		if delErr := c.store.Delete(ctx, sess.StorageKey); delErr != nil {
			logging.Error("failed to remove orphaned original %s: %v", sess.StorageKey, delErr)
		}
		return nil, fmt.Errorf("record asset for session %s: %w", id, err)
	}

	err = c.db.TransitionSessionState(ctx, id,
		[]mediatypes.SessionState{mediatypes.SessionCompleting},
		mediatypes.SessionCompleted)
	if err != nil {
		logging.Warn("session %s finished but could not be marked completed: %v", id, err)
	}
	if err := c.db.DeleteUploadSession(ctx, id); err != nil {
		logging.Error("failed to delete completed session %s: %v", id, err)
	}

	metrics.UploadSessionEventsTotal.WithLabelValues("completed").Inc()
	logging.Info("Upload session %s completed: asset %s (%s, %d bytes)",
		id, asset.ID, asset.FileName, asset.Size)

	return asset, nil
}

// Abort ends a session early: it moves the session to aborted, releases
// the provider-side partial upload, and deletes the record. Aborting a
// completed session fails with ErrAlreadyCompleted; aborting a session
// whose cleanup previously crashed resumes the cleanup. The background
// reaper calls this verbatim for inactive sessions.
func (c *Coordinator) Abort(ctx context.Context, id string) error {
	sess, err := c.db.GetUploadSession(ctx, id)
	if err != nil {
		return err
	}

	switch sess.State {
	case mediatypes.SessionCompleted:
		return fmt.Errorf("%w: session %s", ErrAlreadyCompleted, id)
	case mediatypes.SessionAborted:
		// A previous abort wrote the state but crashed before cleanup;
		// fall through and finish the job.
	default:
		err := c.db.TransitionSessionState(ctx, id,
			[]mediatypes.SessionState{
				mediatypes.SessionInitiated,
				mediatypes.SessionPartsUploading,
				mediatypes.SessionCompleting,
			},
			mediatypes.SessionAborted)
		if errors.Is(err, ErrStateConflict) {
			metrics.UploadStateConflictsTotal.Inc()
			cur, readErr := c.db.GetUploadSession(ctx, id)
			if errors.Is(readErr, ErrSessionNotFound) {
				// A concurrent abort finished first; nothing left to do.
				return nil
			}
			if readErr != nil {
				return readErr
			}
			if cur.State == mediatypes.SessionCompleted {
				return fmt.Errorf("%w: session %s", ErrAlreadyCompleted, id)
			}
			if cur.State != mediatypes.SessionAborted {
				return err
			}
		} else if err != nil {
			return err
		}
	}

	if err := c.store.AbortMultipart(ctx, sess.StorageKey, sess.ProviderUploadID); err != nil {
		return fmt.Errorf("release partial upload for session %s: %w", id, err)
	}
	if err := c.db.DeleteUploadSession(ctx, id); err != nil {
		return err
	}

	metrics.UploadSessionEventsTotal.WithLabelValues("aborted").Inc()
	logging.Info("Upload session %s aborted", id)
	return nil
}

// validateParts checks that the presented tokens cover 1..numParts with
// no gaps, duplicates, or out-of-range entries, and returns them sorted
// by part number ready for the provider finalize call.
func validateParts(parts []mediatypes.PartToken, numParts int) ([]mediatypes.PartToken, error) {
	if len(parts) != numParts {
		return nil, fmt.Errorf("%w: got %d parts, need %d", ErrInvalidRequest, len(parts), numParts)
	}

	sorted := make([]mediatypes.PartToken, len(parts))
	copy(sorted, parts)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].PartNumber < sorted[j].PartNumber
	})

	for i, p := range sorted {
		if p.PartNumber < 1 || p.PartNumber > numParts {
			return nil, fmt.Errorf("%w: part number %d out of range 1..%d", ErrInvalidRequest, p.PartNumber, numParts)
		}
		want := i + 1
		switch {
		case p.PartNumber < want:
			return nil, fmt.Errorf("%w: duplicate part %d", ErrInvalidRequest, p.PartNumber)
		case p.PartNumber > want:
			return nil, fmt.Errorf("%w: missing part %d", ErrInvalidRequest, want)
		}
		if p.IntegrityToken == "" {
			return nil, fmt.Errorf("%w: part %d has no integrity token", ErrInvalidRequest, p.PartNumber)
		}
	}
	return sorted, nil
}
