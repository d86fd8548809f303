package decode

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"strings"
	"testing"
	"time"
)

// fakeDecoder is a scriptable chain stage that counts invocations.
type fakeDecoder struct {
	name  string
	match bool
	img   image.Image
	err   error
	delay time.Duration
	calls int
}

func (f *fakeDecoder) Name() string          { return f.name }
func (f *fakeDecoder) Match(ext string) bool { return f.match }

func (f *fakeDecoder) Decode(ctx context.Context, data []byte) (image.Image, error) {
	f.calls++
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.img, f.err
}

func testBitmap(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	return img
}

func TestChainFirstStageWins(t *testing.T) {
	first := &fakeDecoder{name: "standard", match: true, img: testBitmap(4, 2)}
	second := &fakeDecoder{name: "heif", match: true, img: testBitmap(9, 9)}
	chain := NewChain(Limits{}, 0, first, second)

	res, err := chain.Decode(context.Background(), []byte("data"), ".jpg")
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if res.Stage != "standard" {
		t.Errorf("Stage = %q, want standard", res.Stage)
	}
	if res.Width != 4 || res.Height != 2 {
		t.Errorf("dimensions = %dx%d, want 4x2", res.Width, res.Height)
	}
	if second.calls != 0 {
		t.Errorf("later stage invoked %d times after earlier success", second.calls)
	}
}

func TestChainFallsThrough(t *testing.T) {
	first := &fakeDecoder{name: "standard", match: true, err: errors.New("bad magic")}
	second := &fakeDecoder{name: "heif", match: true, img: testBitmap(3, 3)}
	chain := NewChain(Limits{}, 0, first, second)

	res, err := chain.Decode(context.Background(), []byte("data"), ".heic")
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if res.Stage != "heif" {
		t.Errorf("Stage = %q, want heif", res.Stage)
	}
	if first.calls != 1 {
		t.Errorf("first stage calls = %d, want 1", first.calls)
	}
}

func TestChainSkipsUnmatchedStages(t *testing.T) {
	gated := &fakeDecoder{name: "raw", match: false, img: testBitmap(1, 1)}
	final := &fakeDecoder{name: "last", match: true, img: testBitmap(1, 1)}
	chain := NewChain(Limits{}, 0, gated, final)

	res, err := chain.Decode(context.Background(), []byte("data"), ".jpg")
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if gated.calls != 0 {
		t.Errorf("gated stage was invoked %d times", gated.calls)
	}
	if res.Stage != "last" {
		t.Errorf("Stage = %q, want last", res.Stage)
	}
}

// A RAW-extension file with corrupt sensor data: the standard stage
// fails on it, the heif stage is skipped (extension mismatch), and the
// raw stage fails too, exhausting the chain.
func TestChainAllStagesExhausted(t *testing.T) {
	standard := &fakeDecoder{name: "standard", match: true, err: errors.New("unknown format")}
	heif := &fakeDecoder{name: "heif", match: false}
	raw := &fakeDecoder{name: "raw", match: true, err: errors.New("corrupt sensor data")}
	chain := NewChain(Limits{}, 0, standard, heif, raw)

	_, err := chain.Decode(context.Background(), []byte("not an image"), ".cr2")
	if err == nil {
		t.Fatal("expected exhaustion error, got nil")
	}

	var dErr *DecodeError
	if !errors.As(err, &dErr) {
		t.Fatalf("expected *DecodeError, got %T: %v", err, err)
	}
	if len(dErr.Stages) != 3 {
		t.Fatalf("expected 3 stage outcomes, got %d", len(dErr.Stages))
	}
	if dErr.Stages[0].Err == nil || dErr.Stages[0].Skipped {
		t.Errorf("standard stage should have failed: %+v", dErr.Stages[0])
	}
	if !dErr.Stages[1].Skipped {
		t.Errorf("heif stage should be skipped for .cr2: %+v", dErr.Stages[1])
	}
	if dErr.Stages[2].Err == nil {
		t.Errorf("raw stage should have failed: %+v", dErr.Stages[2])
	}
	if heif.calls != 0 {
		t.Errorf("skipped stage was invoked %d times", heif.calls)
	}

	msg := err.Error()
	for _, want := range []string{"standard", "skipped", "corrupt sensor data"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error message missing %q: %s", want, msg)
		}
	}
}

func TestChainEmptyInput(t *testing.T) {
	stage := &fakeDecoder{name: "standard", match: true, img: testBitmap(1, 1)}
	chain := NewChain(Limits{}, 0, stage)

	_, err := chain.Decode(context.Background(), nil, ".jpg")
	if err == nil {
		t.Fatal("expected error for empty input")
	}
	if stage.calls != 0 {
		t.Errorf("stage invoked for empty input %d times", stage.calls)
	}
}

func TestChainBudgetExceeded(t *testing.T) {
	slow := &fakeDecoder{name: "standard", match: true, img: testBitmap(1, 1), delay: 200 * time.Millisecond}
	chain := NewChain(Limits{}, 10*time.Millisecond, slow)

	start := time.Now()
	_, err := chain.Decode(context.Background(), []byte("data"), ".jpg")
	if !errors.Is(err, ErrDecodeTimeout) {
		t.Fatalf("expected ErrDecodeTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 150*time.Millisecond {
		t.Errorf("timeout did not abandon the stage promptly: took %v", elapsed)
	}
}

func TestChainCancelledContext(t *testing.T) {
	stage := &fakeDecoder{name: "standard", match: true, img: testBitmap(1, 1)}
	chain := NewChain(Limits{}, 0, stage)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := chain.Decode(ctx, []byte("data"), ".jpg")
	if !errors.Is(err, ErrDecodeTimeout) {
		t.Fatalf("expected ErrDecodeTimeout for dead context, got %v", err)
	}
}

func TestChainNormalizesToNRGBA(t *testing.T) {
	// A YCbCr source (what image/jpeg produces) must come out as NRGBA.
	ycbcr := image.NewYCbCr(image.Rect(0, 0, 8, 8), image.YCbCrSubsampleRatio420)
	stage := &fakeDecoder{name: "standard", match: true, img: ycbcr}
	chain := NewChain(Limits{}, 0, stage)

	res, err := chain.Decode(context.Background(), []byte("data"), ".jpg")
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if res.Image == nil {
		t.Fatal("result image is nil")
	}
	if got := res.Image.Bounds(); got.Dx() != 8 || got.Dy() != 8 {
		t.Errorf("bounds = %v, want 8x8", got)
	}
}

func TestToNRGBA(t *testing.T) {
	t.Run("passthrough", func(t *testing.T) {
		src := testBitmap(2, 2)
		if got := ToNRGBA(src); got != src {
			t.Error("NRGBA input should be returned unchanged")
		}
	})

	t.Run("palette", func(t *testing.T) {
		pal := image.NewPaletted(image.Rect(0, 0, 2, 2), color.Palette{
			color.NRGBA{R: 255, A: 255},
			color.NRGBA{B: 255, A: 255},
		})
		pal.SetColorIndex(0, 0, 1)

		got := ToNRGBA(pal)
		if c := got.NRGBAAt(0, 0); c.B != 255 || c.A != 255 {
			t.Errorf("palette pixel = %+v, want opaque blue", c)
		}
	})

	t.Run("sixteen bit", func(t *testing.T) {
		src := image.NewNRGBA64(image.Rect(0, 0, 1, 1))
		src.SetNRGBA64(0, 0, color.NRGBA64{R: 0xffff, G: 0, B: 0, A: 0xffff})

		got := ToNRGBA(src)
		if c := got.NRGBAAt(0, 0); c.R != 255 || c.A != 255 {
			t.Errorf("16-bit pixel = %+v, want 8-bit opaque red", c)
		}
	})

	t.Run("offset bounds", func(t *testing.T) {
		// Decoders can hand back subimages whose Min is not (0,0).
		src := image.NewNRGBA(image.Rect(10, 10, 14, 12))
		got := ToNRGBA(src)
		if got.Bounds().Min != image.Pt(0, 0) {
			t.Errorf("normalized bounds should start at origin, got %v", got.Bounds())
		}
		if got.Bounds().Dx() != 4 || got.Bounds().Dy() != 2 {
			t.Errorf("normalized size = %v, want 4x2", got.Bounds())
		}
	})
}

func TestStageOutcomeString(t *testing.T) {
	tests := []struct {
		outcome StageOutcome
		want    string
	}{
		{StageOutcome{Stage: "heif", Skipped: true}, "heif: skipped (extension mismatch)"},
		{StageOutcome{Stage: "raw", Err: fmt.Errorf("boom")}, "raw: boom"},
		{StageOutcome{Stage: "standard"}, "standard: ok"},
	}
	for _, tt := range tests {
		if got := tt.outcome.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
