package media

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"

	xdraw "golang.org/x/image/draw"

	_ "image/jpeg"
)

// ComposeCard scales the hero image to cover the frame and composites the
// frame on top, returning the finished card as PNG bytes. The frame's
// transparent regions reveal the hero underneath.
func ComposeCard(heroData []byte, framePath string) ([]byte, error) {
	hero, _, err := image.Decode(bytes.NewReader(heroData))
	if err != nil {
		return nil, fmt.Errorf("decode hero image: %w", err)
	}

	frameFile, err := os.Open(framePath)
	if err != nil {
		return nil, fmt.Errorf("open frame: %w", err)
	}
	defer frameFile.Close()
	frame, err := png.Decode(frameFile)
	if err != nil {
		return nil, fmt.Errorf("decode frame %s: %w", framePath, err)
	}

	bounds := frame.Bounds()
	card := image.NewRGBA(bounds)

	xdraw.CatmullRom.Scale(card, bounds, hero, hero.Bounds(), xdraw.Src, nil)
	xdraw.Draw(card, bounds, frame, bounds.Min, xdraw.Over)

	var buf bytes.Buffer
	if err := png.Encode(&buf, card); err != nil {
		return nil, fmt.Errorf("encode card: %w", err)
	}
	return buf.Bytes(), nil
}
