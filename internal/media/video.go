package media

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"powerplay/internal/logging"
	"powerplay/internal/services"
)

// holeAlphaMax is the alpha ceiling below which a frame pixel counts as
// part of the placeholder hole the video is placed into.
const holeAlphaMax = 20

type commandRunner func(ctx context.Context, name string, args ...string) error

// Brander overlays generated videos with a branded frame using ffmpeg.
type Brander struct {
	ffmpegBin string
	logger    *slog.Logger
	run       commandRunner
}

// NewBrander constructs a video brander around the given ffmpeg binary.
func NewBrander(ffmpegBin string, logger *slog.Logger) *Brander {
	if strings.TrimSpace(ffmpegBin) == "" {
		ffmpegBin = "ffmpeg"
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Brander{
		ffmpegBin: ffmpegBin,
		logger:    logging.NewComponentLogger(logger, "brander"),
		run:       defaultCommandRunner,
	}
}

// WithCommandRunner allows injecting a custom command runner for tests.
func (b *Brander) WithCommandRunner(r commandRunner) {
	if b != nil && r != nil {
		b.run = r
	}
}

// BrandVideo scales the input video into the frame's transparent hole and
// overlays the frame on top, writing the result to outputPath.
func (b *Brander) BrandVideo(ctx context.Context, inputPath, outputPath, framePath string) error {
	if _, err := os.Stat(inputPath); err != nil {
		return fmt.Errorf("source video not found: %w", err)
	}

	frame, err := loadFrame(framePath)
	if err != nil {
		return err
	}
	hole, err := findHole(frame)
	if err != nil {
		return fmt.Errorf("frame %s: %w", framePath, err)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	size := frame.Bounds().Size()
	filter := buildOverlayFilter(size.X, size.Y, hole)

	args := []string{
		"-y",
		"-i", inputPath,
		"-loop", "1",
		"-i", framePath,
		"-filter_complex", filter,
		"-map", "[outv]",
		"-map", "0:a?",
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-movflags", "+faststart",
		"-shortest",
		outputPath,
	}

	b.logger.Debug("branding video",
		logging.String("input", inputPath),
		logging.String("frame", framePath))

	if err := b.run(ctx, b.ffmpegBin, args...); err != nil {
		_ = os.Remove(outputPath)
		return services.Wrap(services.ErrExternalTool, "overlay", "brand", "ffmpeg overlay failed", err)
	}
	if _, err := os.Stat(outputPath); err != nil {
		return services.Wrap(services.ErrNoOutput, "overlay", "brand", "ffmpeg produced no output file", err)
	}
	return nil
}

func loadFrame(framePath string) (image.Image, error) {
	f, err := os.Open(framePath)
	if err != nil {
		return nil, fmt.Errorf("open frame: %w", err)
	}
	defer f.Close()
	frame, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode frame %s: %w", framePath, err)
	}
	return frame, nil
}

// findHole locates the transparent placeholder region by scanning the
// frame's alpha channel.
func findHole(frame image.Image) (image.Rectangle, error) {
	bounds := frame.Bounds()
	minX, minY := bounds.Max.X, bounds.Max.Y
	maxX, maxY := bounds.Min.X-1, bounds.Min.Y-1

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			_, _, _, a := frame.At(x, y).RGBA()
			if a>>8 <= holeAlphaMax {
				if x < minX {
					minX = x
				}
				if y < minY {
					minY = y
				}
				if x > maxX {
					maxX = x
				}
				if y > maxY {
					maxY = y
				}
			}
		}
	}

	if maxX < minX || maxY < minY {
		return image.Rectangle{}, fmt.Errorf("no transparent hole detected")
	}
	return image.Rect(minX, minY, maxX+1, maxY+1), nil
}

func buildOverlayFilter(frameW, frameH int, hole image.Rectangle) string {
	holeW := hole.Dx()
	holeH := hole.Dy()
	return fmt.Sprintf(
		"color=c=black@0.0:s=%dx%d[base];"+
			"[0:v]scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d[vid];"+
			"[base][vid]overlay=%d:%d[withvid];"+
			"[withvid][1:v]overlay=0:0[outv]",
		frameW, frameH,
		holeW, holeH, holeW, holeH,
		hole.Min.X, hole.Min.Y,
	)
}

func defaultCommandRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return fmt.Errorf("%w: %s", err, tail(detail, 2000))
		}
		return err
	}
	return nil
}

func tail(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[len(s)-max:]
}
