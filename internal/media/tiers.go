// Package media produces the branded visual artifacts of the pipeline:
// score-tiered frame selection, hero card compositing, and ffmpeg-driven
// video branding.
package media

import (
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Tier buckets a game score into a frame style.
type Tier string

const (
	TierLow  Tier = "low"
	TierMid  Tier = "mid"
	TierHigh Tier = "high"
)

const (
	tierHighThreshold = 300
	tierMidThreshold  = 150
)

// TierForScore maps a total score onto its frame tier.
func TierForScore(score int64) Tier {
	switch {
	case score >= tierHighThreshold:
		return TierHigh
	case score >= tierMidThreshold:
		return TierMid
	default:
		return TierLow
	}
}

// PickFrame selects a random frame PNG from the tier's subdirectory under
// framesDir.
func PickFrame(framesDir string, tier Tier) (string, error) {
	dir := filepath.Join(framesDir, string(tier))
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read frames for tier %s: %w", tier, err)
	}

	var frames []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".png") {
			frames = append(frames, filepath.Join(dir, entry.Name()))
		}
	}
	if len(frames) == 0 {
		return "", fmt.Errorf("no frames available for tier %s in %s", tier, dir)
	}
	sort.Strings(frames)
	return frames[rand.IntN(len(frames))], nil
}
