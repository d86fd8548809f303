package frames

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/zaitanabil/galerly-sub003/internal/logging"
)

// TranscodeJob describes an adaptive-bitrate transcode request for the
// external batch transcoding service. The pipeline only submits jobs;
// progress and delivery are the service's problem.
type TranscodeJob struct {
	AssetID     string    `json:"asset_id"`
	SourceKey   string    `json:"source_key"`
	Profiles    []string  `json:"profiles"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// DefaultProfiles is the ladder requested for gallery playback.
var DefaultProfiles = []string{"1080p", "720p", "480p"}

// TranscodeSubmitter hands ABR jobs to the external transcoding
// service and returns the service-side job id.
type TranscodeSubmitter interface {
	SubmitTranscode(ctx context.Context, job TranscodeJob) (string, error)
}

// LogSubmitter is the stand-in submitter used when no transcoding
// backend is configured. It assigns a job id and logs the submission so
// the ingest flow and its metrics stay exercised end to end.
type LogSubmitter struct{}

func (LogSubmitter) SubmitTranscode(ctx context.Context, job TranscodeJob) (string, error) {
	id := uuid.NewString()
	logging.Info("transcode job %s submitted for asset %s (%d profiles)",
		id, job.AssetID, len(job.Profiles))
	return id, nil
}
