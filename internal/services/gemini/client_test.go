package gemini

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/genai"

	"powerplay/internal/services"
)

type stubGenerator struct {
	resp *genai.GenerateContentResponse
	err  error

	gotModel  string
	gotConfig *genai.GenerateContentConfig
}

func (s *stubGenerator) GenerateContent(_ context.Context, model string, _ []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	s.gotModel = model
	s.gotConfig = cfg
	return s.resp, s.err
}

func imageResponse(data []byte) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{
				Parts: []*genai.Part{
					{Text: "some commentary"},
					{InlineData: &genai.Blob{MIMEType: "image/png", Data: data}},
				},
			},
		}},
	}
}

func TestGenerateHeroReturnsInlineImage(t *testing.T) {
	stub := &stubGenerator{resp: imageResponse([]byte{0x89, 0x50})}
	client := newImageClient(stub, "gemini-2.5-flash-image", nil)

	data, err := client.GenerateHero(context.Background(), []byte("selfie"), "image/jpeg", "female")
	if err != nil {
		t.Fatalf("GenerateHero failed: %v", err)
	}
	if len(data) != 2 || data[0] != 0x89 {
		t.Fatalf("unexpected image bytes %v", data)
	}
	if stub.gotModel != "gemini-2.5-flash-image" {
		t.Fatalf("unexpected model %q", stub.gotModel)
	}
	if stub.gotConfig == nil || stub.gotConfig.ImageConfig == nil || stub.gotConfig.ImageConfig.AspectRatio != "9:16" {
		t.Fatalf("expected 9:16 aspect ratio config, got %#v", stub.gotConfig)
	}
}

func TestGenerateHeroBackendFailure(t *testing.T) {
	stub := &stubGenerator{err: errors.New("rate limited")}
	client := newImageClient(stub, "gemini-2.5-flash-image", nil)

	_, err := client.GenerateHero(context.Background(), []byte("selfie"), "", "male")
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
}

func TestGenerateHeroNoImageInResponse(t *testing.T) {
	cases := map[string]*genai.GenerateContentResponse{
		"no candidates": {},
		"empty content": {Candidates: []*genai.Candidate{{}}},
		"text only": {Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: "sorry"}}},
		}}},
	}
	for name, resp := range cases {
		stub := &stubGenerator{resp: resp}
		client := newImageClient(stub, "gemini-2.5-flash-image", nil)
		_, err := client.GenerateHero(context.Background(), []byte("selfie"), "", "")
		if !errors.Is(err, services.ErrNoOutput) {
			t.Fatalf("%s: expected no-output error, got %v", name, err)
		}
	}
}

func TestGenerateHeroRejectsEmptyPhoto(t *testing.T) {
	client := newImageClient(&stubGenerator{}, "m", nil)
	_, err := client.GenerateHero(context.Background(), nil, "", "")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPlayerDescription(t *testing.T) {
	if got := playerDescription("Female"); got != "a professional female ice hockey player" {
		t.Fatalf("unexpected description %q", got)
	}
	if got := playerDescription(""); got != "a professional ice hockey player" {
		t.Fatalf("unexpected description %q", got)
	}
}

func TestGuessMimeType(t *testing.T) {
	if got := GuessMimeType("photos/selfie.PNG"); got != "image/png" {
		t.Fatalf("unexpected mime %q", got)
	}
	if got := GuessMimeType("https://cdn/x.jpg?token=1"); got != "image/jpeg" {
		t.Fatalf("unexpected mime %q", got)
	}
}
