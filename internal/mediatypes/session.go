package mediatypes

import (
	"fmt"
	"sort"
	"time"
)

// SessionState is one node in the upload session lifecycle.
//
// The lifecycle is linear with an abort escape hatch:
//
//	initiated -> parts_uploading -> completing -> completed
//	     \              \               \
//	      +--------------+---------------+-----> aborted
//
// completed and aborted are final. Transition legality is enforced both
// here (CanTransitionTo) and at the persistence layer, where every state
// write is conditional on the expected prior state.
type SessionState string

const (
	// SessionInitiated means the session exists and part capabilities
	// have been issued, but no part has been acknowledged yet.
	SessionInitiated SessionState = "initiated"
	// SessionPartsUploading means at least one part has been acknowledged.
	SessionPartsUploading SessionState = "parts_uploading"
	// SessionCompleting means completion validation passed and the
	// provider-side finalize is in flight.
	SessionCompleting SessionState = "completing"
	// SessionCompleted is final: the original is stored and the asset
	// record exists.
	SessionCompleted SessionState = "completed"
	// SessionAborted is final: partial state has been released.
	SessionAborted SessionState = "aborted"
)

var sessionTransitions = map[SessionState][]SessionState{
	SessionInitiated:      {SessionPartsUploading, SessionCompleting, SessionAborted},
	SessionPartsUploading: {SessionCompleting, SessionAborted},
	SessionCompleting:     {SessionCompleted, SessionAborted},
	SessionCompleted:      {},
	SessionAborted:        {},
}

// CanTransitionTo reports whether moving from s to next is legal.
func (s SessionState) CanTransitionTo(next SessionState) bool {
	for _, allowed := range sessionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsFinal reports whether the state terminates the session lifecycle.
func (s SessionState) IsFinal() bool {
	return s == SessionCompleted || s == SessionAborted
}

// PartToken pairs an uploaded part number with the integrity token the
// storage provider returned for it.
type PartToken struct {
	PartNumber     int    `json:"part_number"`
	IntegrityToken string `json:"integrity_token"`
}

// UploadSession is the transient bookkeeping record for one chunked
// upload. It is deleted once the upload completes or aborts.
type UploadSession struct {
	ID           string `json:"id"`
	AssetID      string `json:"asset_id"`
	CollectionID string `json:"collection_id"`
	FileName     string `json:"file_name"`
	Mime         string `json:"mime"`

	// StorageKey is where the finished original will live.
	StorageKey string `json:"storage_key"`

	TotalSize int64 `json:"total_size"`
	ChunkSize int64 `json:"chunk_size"`
	NumParts  int   `json:"num_parts"`

	State SessionState `json:"state"`

	// ProviderUploadID is the storage backend's multipart upload handle.
	ProviderUploadID string `json:"-"`

	// Parts are the acknowledged parts, kept sorted by part number.
	Parts []PartToken `json:"parts,omitempty"`

	CreatedAt      time.Time `json:"created_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

// NumPartsFor computes how many chunks an upload needs: the total size
// divided by the chunk size, rounded up.
func NumPartsFor(totalSize, chunkSize int64) int {
	if chunkSize <= 0 {
		return 0
	}
	return int((totalSize + chunkSize - 1) / chunkSize)
}

// Validate checks structural invariants on the session record.
func (s *UploadSession) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("upload session: missing id")
	}
	if s.AssetID == "" {
		return fmt.Errorf("upload session %s: missing asset id", s.ID)
	}
	if s.StorageKey == "" {
		return fmt.Errorf("upload session %s: missing storage key", s.ID)
	}
	if s.TotalSize <= 0 {
		return fmt.Errorf("upload session %s: total size must be positive, got %d", s.ID, s.TotalSize)
	}
	if s.ChunkSize <= 0 {
		return fmt.Errorf("upload session %s: chunk size must be positive, got %d", s.ID, s.ChunkSize)
	}
	if want := NumPartsFor(s.TotalSize, s.ChunkSize); s.NumParts != want {
		return fmt.Errorf("upload session %s: num_parts %d does not match ceil(%d/%d)=%d",
			s.ID, s.NumParts, s.TotalSize, s.ChunkSize, want)
	}
	if _, ok := sessionTransitions[s.State]; !ok {
		return fmt.Errorf("upload session %s: unknown state %q", s.ID, s.State)
	}
	return nil
}

// MissingParts lists the part numbers not yet acknowledged, ascending.
// Clients use this to resume an interrupted upload.
func (s *UploadSession) MissingParts() []int {
	acked := make(map[int]bool, len(s.Parts))
	for _, p := range s.Parts {
		acked[p.PartNumber] = true
	}
	var missing []int
	for n := 1; n <= s.NumParts; n++ {
		if !acked[n] {
			missing = append(missing, n)
		}
	}
	return missing
}

// RecordPart adds or replaces an acknowledged part, keeping Parts
// sorted by part number. Re-acknowledging a part overwrites its token,
// matching provider semantics where re-uploading a part supersedes it.
func (s *UploadSession) RecordPart(p PartToken) {
	for i := range s.Parts {
		if s.Parts[i].PartNumber == p.PartNumber {
			s.Parts[i] = p
			return
		}
	}
	s.Parts = append(s.Parts, p)
	sort.Slice(s.Parts, func(i, j int) bool {
		return s.Parts[i].PartNumber < s.Parts[j].PartNumber
	})
}
