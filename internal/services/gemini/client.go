package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"powerplay/internal/config"
	"powerplay/internal/logging"
	"powerplay/internal/services"
)

// contentGenerator is the slice of the genai SDK the client actually
// calls, kept narrow so tests can stub the backend.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// ImageClient generates the hero portrait from a player selfie.
type ImageClient struct {
	models contentGenerator
	model  string
	logger *slog.Logger
}

// NewImageClient builds an ImageClient against the Gemini API.
func NewImageClient(ctx context.Context, cfg config.Gemini, logger *slog.Logger) (*ImageClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "hero", "init",
			"Gemini API key is not configured", nil)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return newImageClient(client.Models, cfg.ImageModel, logger), nil
}

func newImageClient(models contentGenerator, model string, logger *slog.Logger) *ImageClient {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ImageClient{
		models: models,
		model:  model,
		logger: logging.NewComponentLogger(logger, "gemini"),
	}
}

// Model returns the configured image model identifier.
func (c *ImageClient) Model() string {
	return c.model
}

// GenerateHero converts a selfie into the stylized player portrait and
// returns the image bytes.
func (c *ImageClient) GenerateHero(ctx context.Context, photo []byte, mimeType, gender string) ([]byte, error) {
	if len(photo) == 0 {
		return nil, services.Wrap(services.ErrValidation, "hero", "generate",
			"Player photo is empty", nil)
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	parts := []*genai.Part{
		genai.NewPartFromBytes(photo, mimeType),
		genai.NewPartFromText(heroPrompt(gender)),
	}
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}
	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE"},
		ImageConfig:        &genai.ImageConfig{AspectRatio: "9:16"},
	}

	c.logger.Debug("requesting hero image", logging.String("model", c.model))
	resp, err := c.models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "hero", "generate",
			"Image backend request failed", err)
	}

	data, err := extractInlineImage(resp)
	if err != nil {
		return nil, err
	}
	return data, nil
}

func extractInlineImage(resp *genai.GenerateContentResponse) ([]byte, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, services.Wrap(services.ErrNoOutput, "hero", "generate",
			"Image backend returned no candidates", nil)
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return nil, services.Wrap(services.ErrNoOutput, "hero", "generate",
			fmt.Sprintf("Image backend returned empty content (finish reason %v)", candidate.FinishReason), nil)
	}
	for _, part := range candidate.Content.Parts {
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return part.InlineData.Data, nil
		}
	}
	return nil, services.Wrap(services.ErrNoOutput, "hero", "generate",
		"Image backend response carried no image data", nil)
}

func playerDescription(gender string) string {
	switch strings.ToLower(strings.TrimSpace(gender)) {
	case "female":
		return "a professional female ice hockey player"
	case "male":
		return "a professional male ice hockey player"
	default:
		return "a professional ice hockey player"
	}
}

func heroPrompt(gender string) string {
	return fmt.Sprintf(`IDENTITY LOCK (HIGHEST PRIORITY):
- The final player MUST be the SAME PERSON as the selfie.
- Preserve exact facial structure (eyes, eyebrows, nose, lips, jawline, cheekbones).
- Do NOT beautify or change the face.
- Do NOT change gender, age, or ethnicity.
- Face must remain SHARP and clearly visible:
  no motion blur on face, no heavy visor glare, no shadow covering the face.
- DO NOT REMOVE HOCKEY STICK PLAYER NEEDS IT

TASK:
Convert the selfie into a hyper-realistic image of %s
skating toward the camera on a glossy ice rink.

UNIFORM (LOCK COLORS):
- Navy-base jersey, sky-blue stripes, subtle teal piping,
  minimal sand trim, bold neon-pink accents, white numbers.
- No third-party logos, no NHL/team branding, no extra text.

BACKGROUND:
Realistic arena (crowd + boards) with promotional neon lighting accents
(purple, magenta, electric blue) used ONLY as lighting.
Soft bloom, volumetric light rays, subtle lens flare.
NOT abstract. NOT sci-fi.

CAMERA:
- Mid-stride skating, knees bent, ice spray.
- Shallow depth of field: face sharp, background softened.
- Vertical 9:16.`, playerDescription(gender))
}

// GuessMimeType infers an image MIME type from a reference's extension.
func GuessMimeType(ref string) string {
	lower := strings.ToLower(ref)
	switch {
	case strings.HasSuffix(lower, ".png"):
		return "image/png"
	case strings.HasSuffix(lower, ".webp"):
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
