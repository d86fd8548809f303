package decode

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"strings"
	"time"

	"github.com/zaitanabil/galerly-sub003/internal/logging"
	"github.com/zaitanabil/galerly-sub003/internal/metrics"
)

// ErrDecodeTimeout is returned when a decode invocation exceeds its time
// budget. It is terminal for that invocation; the caller may retry with a
// fresh one.
var ErrDecodeTimeout = errors.New("decode budget exceeded")

// Decoder is one stage of the fallback chain. Match gates the stage on
// the declared filename extension; Decode turns raw bytes into a bitmap.
type Decoder interface {
	Name() string
	Match(ext string) bool
	Decode(ctx context.Context, data []byte) (image.Image, error)
}

// StageOutcome records what one chain stage did for a given input.
type StageOutcome struct {
	Stage   string
	Skipped bool
	Err     error
}

func (o StageOutcome) String() string {
	switch {
	case o.Skipped:
		return o.Stage + ": skipped (extension mismatch)"
	case o.Err != nil:
		return o.Stage + ": " + o.Err.Error()
	default:
		return o.Stage + ": ok"
	}
}

// DecodeError reports that every stage of the chain was exhausted. It is
// terminal: the asset is marked decode_failed and not retried.
type DecodeError struct {
	Stages []StageOutcome
}

func (e *DecodeError) Error() string {
	parts := make([]string, 0, len(e.Stages))
	for _, o := range e.Stages {
		parts = append(parts, o.String())
	}
	return "all decode stages exhausted: " + strings.Join(parts, "; ")
}

// Result is a successful decode: an 8-bit NRGBA bitmap plus which stage
// produced it.
type Result struct {
	Image  *image.NRGBA
	Width  int
	Height int
	Stage  string
}

// Chain runs decoders in order until one succeeds. The order is fixed at
// construction: standard codecs first, then container decoders, then the
// expensive RAW path.
type Chain struct {
	stages []Decoder
	limits Limits
	budget time.Duration
}

// NewChain builds a chain over the given stages. A zero budget disables
// the per-invocation deadline.
func NewChain(limits Limits, budget time.Duration, stages ...Decoder) *Chain {
	return &Chain{stages: stages, limits: limits, budget: budget}
}

// Decode runs the fallback chain over data. ext is the declared filename
// extension (with leading dot, lowercase) used to gate stages; it is a
// hint only, never trusted to pick the codec.
//
// On success the bitmap is normalized to NRGBA. On failure the error is
// either *DecodeError (all stages exhausted), ErrDecodeTimeout, or a
// pre-decode rejection from the configured limits.
func (c *Chain) Decode(ctx context.Context, data []byte, ext string) (*Result, error) {
	if len(data) == 0 {
		return nil, &DecodeError{Stages: []StageOutcome{{Stage: "input", Err: errors.New("empty input")}}}
	}

	if err := c.limits.Check(data); err != nil {
		return nil, err
	}

	if c.budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.budget)
		defer cancel()
	}

	outcomes := make([]StageOutcome, 0, len(c.stages))
	for _, stage := range c.stages {
		if ctx.Err() != nil {
			metrics.DecodeTimeoutsTotal.Inc()
			return nil, fmt.Errorf("%w: budget spent before stage %s", ErrDecodeTimeout, stage.Name())
		}
		if !stage.Match(ext) {
			outcomes = append(outcomes, StageOutcome{Stage: stage.Name(), Skipped: true})
			metrics.DecodeStageTotal.WithLabelValues(stage.Name(), "skipped").Inc()
			continue
		}

		img, err := runStage(ctx, stage, data)
		if err == nil {
			bounds := img.Bounds()
			logging.Debug("decode stage %s succeeded: %dx%d", stage.Name(), bounds.Dx(), bounds.Dy())
			nrgba := ToNRGBA(img)
			return &Result{
				Image:  nrgba,
				Width:  nrgba.Bounds().Dx(),
				Height: nrgba.Bounds().Dy(),
				Stage:  stage.Name(),
			}, nil
		}

		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrDecodeTimeout) {
			metrics.DecodeStageTotal.WithLabelValues(stage.Name(), "timeout").Inc()
			metrics.DecodeTimeoutsTotal.Inc()
			return nil, fmt.Errorf("%w: stage %s ran past %s", ErrDecodeTimeout, stage.Name(), c.budget)
		}

		logging.Debug("decode stage %s failed: %v", stage.Name(), err)
		outcomes = append(outcomes, StageOutcome{Stage: stage.Name(), Err: err})
	}

	metrics.DecodeExhaustedTotal.Inc()
	return nil, &DecodeError{Stages: outcomes}
}

// runStage executes one stage under the chain context. Bitmap decoders
// cannot be interrupted mid-parse, so the stage runs in its own goroutine
// and an expired context abandons it; the goroutine's result is dropped
// when it eventually finishes.
func runStage(ctx context.Context, stage Decoder, data []byte) (image.Image, error) {
	start := time.Now()

	type stageResult struct {
		img image.Image
		err error
	}
	done := make(chan stageResult, 1)
	go func() {
		img, err := stage.Decode(ctx, data)
		done <- stageResult{img: img, err: err}
	}()

	select {
	case res := <-done:
		metrics.DecodeStageDuration.WithLabelValues(stage.Name()).Observe(time.Since(start).Seconds())
		if res.err != nil {
			metrics.DecodeStageTotal.WithLabelValues(stage.Name(), "error").Inc()
			return nil, res.err
		}
		metrics.DecodeStageTotal.WithLabelValues(stage.Name(), "success").Inc()
		return res.img, nil
	case <-ctx.Done():
		metrics.DecodeStageDuration.WithLabelValues(stage.Name()).Observe(time.Since(start).Seconds())
		return nil, ctx.Err()
	}
}

// ToNRGBA converts any decoded bitmap to 8-bit-per-channel NRGBA.
// Palette, grayscale, 16-bit, and YCbCr sources all collapse to the one
// canonical in-memory form the rendition engine consumes.
func ToNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok {
		return n
	}
	bounds := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Src)
	return dst
}
