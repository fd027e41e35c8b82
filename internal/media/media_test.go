package media_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"powerplay/internal/media"
	"powerplay/internal/services"
	"powerplay/internal/testsupport"
)

func TestTierForScore(t *testing.T) {
	cases := []struct {
		score int64
		want  media.Tier
	}{
		{0, media.TierLow},
		{149, media.TierLow},
		{150, media.TierMid},
		{299, media.TierMid},
		{300, media.TierHigh},
		{1000, media.TierHigh},
	}
	for _, tc := range cases {
		if got := media.TierForScore(tc.score); got != tc.want {
			t.Fatalf("score %d: expected %s, got %s", tc.score, tc.want, got)
		}
	}
}

func TestPickFrame(t *testing.T) {
	framesDir := t.TempDir()
	for _, name := range []string{"frame-1.png", "frame-2.png"} {
		testsupport.WritePNG(t, filepath.Join(framesDir, "high", name), 4, 4, color.White)
	}
	// Non-PNG clutter is ignored.
	testsupport.WriteFile(t, filepath.Join(framesDir, "high", "notes.txt"), 8)

	picked, err := media.PickFrame(framesDir, media.TierHigh)
	if err != nil {
		t.Fatalf("PickFrame failed: %v", err)
	}
	if !strings.HasSuffix(picked, ".png") {
		t.Fatalf("picked a non-frame file: %s", picked)
	}
	if _, err := os.Stat(picked); err != nil {
		t.Fatalf("picked frame does not exist: %v", err)
	}

	if _, err := media.PickFrame(framesDir, media.TierLow); err == nil {
		t.Fatal("expected error for tier without frames")
	}
}

// frameWithHole renders an opaque frame with a transparent rectangle cut
// out of the middle.
func frameWithHole(t *testing.T, path string, w, h int, hole image.Rectangle) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.RGBA{R: 200, A: 255}), image.Point{}, draw.Src)
	draw.Draw(img, hole, image.Transparent, image.Point{}, draw.Src)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create frame: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode frame: %v", err)
	}
}

func TestComposeCard(t *testing.T) {
	dir := t.TempDir()
	framePath := filepath.Join(dir, "frame.png")
	frameWithHole(t, framePath, 40, 60, image.Rect(10, 10, 30, 50))

	var heroBuf bytes.Buffer
	heroImg := image.NewRGBA(image.Rect(0, 0, 20, 20))
	draw.Draw(heroImg, heroImg.Bounds(), image.NewUniform(color.RGBA{B: 255, A: 255}), image.Point{}, draw.Src)
	if err := png.Encode(&heroBuf, heroImg); err != nil {
		t.Fatalf("encode hero: %v", err)
	}

	cardData, err := media.ComposeCard(heroBuf.Bytes(), framePath)
	if err != nil {
		t.Fatalf("ComposeCard failed: %v", err)
	}

	card, err := png.Decode(bytes.NewReader(cardData))
	if err != nil {
		t.Fatalf("decode card: %v", err)
	}
	if card.Bounds().Dx() != 40 || card.Bounds().Dy() != 60 {
		t.Fatalf("card should match frame size, got %v", card.Bounds())
	}

	// Inside the hole the hero shows through; outside the frame wins.
	r, g, b, _ := card.At(20, 30).RGBA()
	if b <= r || b <= g {
		t.Fatalf("expected hero blue inside hole, got rgb(%d,%d,%d)", r>>8, g>>8, b>>8)
	}
	r, _, b, _ = card.At(2, 2).RGBA()
	if r <= b {
		t.Fatalf("expected frame red outside hole, got r=%d b=%d", r>>8, b>>8)
	}
}

func TestComposeCardRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	framePath := filepath.Join(dir, "frame.png")
	frameWithHole(t, framePath, 8, 8, image.Rect(2, 2, 6, 6))

	if _, err := media.ComposeCard([]byte("not an image"), framePath); err == nil {
		t.Fatal("expected decode error for garbage hero bytes")
	}
}

func TestBrandVideoBuildsFfmpegInvocation(t *testing.T) {
	dir := t.TempDir()
	framePath := filepath.Join(dir, "frame.png")
	frameWithHole(t, framePath, 100, 200, image.Rect(20, 40, 80, 160))

	inputPath := filepath.Join(dir, "raw.mp4")
	testsupport.WriteFile(t, inputPath, 16)
	outputPath := filepath.Join(dir, "out", "branded.mp4")

	brander := media.NewBrander("ffmpeg", nil)
	var gotName string
	var gotArgs []string
	brander.WithCommandRunner(func(_ context.Context, name string, args ...string) error {
		gotName = name
		gotArgs = args
		// Simulate ffmpeg writing its output.
		testsupport.WriteFile(t, outputPath, 16)
		return nil
	})

	if err := brander.BrandVideo(context.Background(), inputPath, outputPath, framePath); err != nil {
		t.Fatalf("BrandVideo failed: %v", err)
	}
	if gotName != "ffmpeg" {
		t.Fatalf("unexpected binary %q", gotName)
	}

	joined := strings.Join(gotArgs, " ")
	if !strings.Contains(joined, "scale=60:120") {
		t.Fatalf("filter should target the hole size, got %q", joined)
	}
	if !strings.Contains(joined, "overlay=20:40") {
		t.Fatalf("filter should place video at the hole origin, got %q", joined)
	}
	if !strings.Contains(joined, "color=c=black@0.0:s=100x200") {
		t.Fatalf("filter base should match frame size, got %q", joined)
	}
}

func TestBrandVideoMarksToolFailure(t *testing.T) {
	dir := t.TempDir()
	framePath := filepath.Join(dir, "frame.png")
	frameWithHole(t, framePath, 20, 20, image.Rect(5, 5, 15, 15))

	inputPath := filepath.Join(dir, "raw.mp4")
	testsupport.WriteFile(t, inputPath, 16)

	brander := media.NewBrander("ffmpeg", nil)
	brander.WithCommandRunner(func(context.Context, string, ...string) error {
		return errors.New("exit status 1")
	})

	err := brander.BrandVideo(context.Background(), inputPath, filepath.Join(dir, "out.mp4"), framePath)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool marker, got %v", err)
	}
}

func TestBrandVideoRequiresHole(t *testing.T) {
	dir := t.TempDir()
	framePath := filepath.Join(dir, "solid.png")
	testsupport.WritePNG(t, framePath, 10, 10, color.RGBA{R: 255, A: 255})

	inputPath := filepath.Join(dir, "raw.mp4")
	testsupport.WriteFile(t, inputPath, 16)

	brander := media.NewBrander("", nil)
	brander.WithCommandRunner(func(context.Context, string, ...string) error {
		t.Fatal("ffmpeg should not run without a detected hole")
		return nil
	})

	err := brander.BrandVideo(context.Background(), inputPath, filepath.Join(dir, "out.mp4"), framePath)
	if err == nil || !strings.Contains(err.Error(), "hole") {
		t.Fatalf("expected hole detection error, got %v", err)
	}
}
