package upload

import (
	"context"
	"errors"
	"fmt"

	"github.com/zaitanabil/galerly-sub003/internal/mediatypes"
	"github.com/zaitanabil/galerly-sub003/internal/metrics"
	"github.com/zaitanabil/galerly-sub003/internal/storage"
)

// AcknowledgePart records a finished part so Status can drive client
// resume. The first acknowledgement moves the session from initiated to
// parts_uploading. Re-acknowledging a part replaces its token.
func (c *Coordinator) AcknowledgePart(ctx context.Context, id string, part mediatypes.PartToken) error {
	sess, err := c.db.GetUploadSession(ctx, id)
	if err != nil {
		return err
	}

	switch sess.State {
	case mediatypes.SessionInitiated, mediatypes.SessionPartsUploading:
	default:
		return fmt.Errorf("%w: session %s is %s, parts can no longer be acknowledged",
			ErrStateConflict, id, sess.State)
	}

	if part.PartNumber < 1 || part.PartNumber > sess.NumParts {
		return fmt.Errorf("%w: part number %d out of range 1..%d",
			ErrInvalidRequest, part.PartNumber, sess.NumParts)
	}
	if part.IntegrityToken == "" {
		return fmt.Errorf("%w: part %d has no integrity token", ErrInvalidRequest, part.PartNumber)
	}

	if err := c.db.RecordUploadPart(ctx, id, part); err != nil {
		return err
	}

	if sess.State == mediatypes.SessionInitiated {
		err := c.db.TransitionSessionState(ctx, id,
			[]mediatypes.SessionState{mediatypes.SessionInitiated},
			mediatypes.SessionPartsUploading)
		if errors.Is(err, ErrStateConflict) {
			// A concurrent acknowledgement got there first; as long as
			// the session is now uploading, the goal state holds.
			cur, readErr := c.db.GetUploadSession(ctx, id)
			if readErr != nil {
				return readErr
			}
			if cur.State != mediatypes.SessionPartsUploading {
				metrics.UploadStateConflictsTotal.Inc()
				return err
			}
		} else if err != nil {
			return err
		}
	}

	metrics.UploadPartsAckedTotal.Inc()
	return nil
}

// WritePart accepts part bytes through the service for backends that
// cannot presign direct writes. The bytes are handed to the backend's
// part writer and the resulting token acknowledged in one step, so the
// client never needs a separate acknowledge call on this path.
func (c *Coordinator) WritePart(ctx context.Context, id string, partNumber int, data []byte) (mediatypes.PartToken, error) {
	sess, err := c.db.GetUploadSession(ctx, id)
	if err != nil {
		return mediatypes.PartToken{}, err
	}

	switch sess.State {
	case mediatypes.SessionInitiated, mediatypes.SessionPartsUploading:
	default:
		return mediatypes.PartToken{}, fmt.Errorf("%w: session %s is %s, parts can no longer be written",
			ErrStateConflict, id, sess.State)
	}

	if partNumber < 1 || partNumber > sess.NumParts {
		return mediatypes.PartToken{}, fmt.Errorf("%w: part number %d out of range 1..%d",
			ErrInvalidRequest, partNumber, sess.NumParts)
	}
	if want := expectedPartSize(sess, partNumber); int64(len(data)) != want {
		return mediatypes.PartToken{}, fmt.Errorf("%w: part %d is %d bytes, want %d",
			ErrInvalidRequest, partNumber, len(data), want)
	}

	pw, ok := c.store.(storage.PartWriter)
	if !ok {
		return mediatypes.PartToken{}, storage.ErrPartProxyNotSupported
	}

	token, err := pw.UploadPart(ctx, sess.StorageKey, sess.ProviderUploadID, partNumber, data)
	if err != nil {
		return mediatypes.PartToken{}, fmt.Errorf("write part %d for session %s: %w", partNumber, id, err)
	}

	part := mediatypes.PartToken{PartNumber: partNumber, IntegrityToken: token}
	if err := c.AcknowledgePart(ctx, id, part); err != nil {
		return mediatypes.PartToken{}, err
	}
	return part, nil
}

// expectedPartSize is the exact byte count for one part: every part is
// the session chunk size except the last, which carries the remainder.
func expectedPartSize(s *mediatypes.UploadSession, partNumber int) int64 {
	if partNumber < s.NumParts {
		return s.ChunkSize
	}
	return s.TotalSize - int64(s.NumParts-1)*s.ChunkSize
}
