package veo

import (
	"context"
	"errors"
	"testing"
	"time"

	"google.golang.org/genai"

	"powerplay/internal/services"
)

type stubBackend struct {
	pollsUntilDone int
	polls          int
	videoBytes     []byte
	generateErr    error
	downloadErr    error

	gotModel  string
	gotConfig *genai.GenerateVideosConfig
}

func (s *stubBackend) GenerateVideos(_ context.Context, model, _ string, _ *genai.Image, cfg *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error) {
	s.gotModel = model
	s.gotConfig = cfg
	if s.generateErr != nil {
		return nil, s.generateErr
	}
	return s.operation(s.pollsUntilDone == 0), nil
}

func (s *stubBackend) GetVideosOperation(_ context.Context, _ *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error) {
	s.polls++
	return s.operation(s.polls >= s.pollsUntilDone), nil
}

func (s *stubBackend) Download(_ context.Context, video *genai.Video) error {
	if s.downloadErr != nil {
		return s.downloadErr
	}
	video.VideoBytes = s.videoBytes
	return nil
}

func (s *stubBackend) operation(done bool) *genai.GenerateVideosOperation {
	op := &genai.GenerateVideosOperation{Done: done}
	if done && s.videoBytes != nil {
		op.Response = &genai.GenerateVideosResponse{
			GeneratedVideos: []*genai.GeneratedVideo{{Video: &genai.Video{}}},
		}
	}
	return op
}

func noSleep(c *Client) {
	c.sleep = func(context.Context, time.Duration) error { return nil }
}

func TestGenerateHighlightPollsUntilDone(t *testing.T) {
	stub := &stubBackend{pollsUntilDone: 3, videoBytes: []byte("mp4")}
	client := newClient(stub, "veo-3.1-fast-generate-preview", time.Second, nil)
	noSleep(client)

	data, err := client.GenerateHighlight(context.Background(), []byte("hero"), "female")
	if err != nil {
		t.Fatalf("GenerateHighlight failed: %v", err)
	}
	if string(data) != "mp4" {
		t.Fatalf("unexpected video bytes %q", data)
	}
	if stub.polls != 3 {
		t.Fatalf("expected 3 polls, got %d", stub.polls)
	}
	if stub.gotModel != "veo-3.1-fast-generate-preview" {
		t.Fatalf("unexpected model %q", stub.gotModel)
	}
	if stub.gotConfig.AspectRatio != "9:16" || stub.gotConfig.Resolution != "720p" {
		t.Fatalf("unexpected config %#v", stub.gotConfig)
	}
	if stub.gotConfig.DurationSeconds == nil || *stub.gotConfig.DurationSeconds != 8 {
		t.Fatalf("expected 8 second duration, got %v", stub.gotConfig.DurationSeconds)
	}
}

func TestGenerateHighlightNoVideoProduced(t *testing.T) {
	stub := &stubBackend{pollsUntilDone: 0}
	client := newClient(stub, "veo", time.Second, nil)
	noSleep(client)

	_, err := client.GenerateHighlight(context.Background(), []byte("hero"), "")
	if !errors.Is(err, services.ErrNoOutput) {
		t.Fatalf("expected no-output error, got %v", err)
	}
}

func TestGenerateHighlightBackendFailure(t *testing.T) {
	stub := &stubBackend{generateErr: errors.New("quota")}
	client := newClient(stub, "veo", time.Second, nil)
	noSleep(client)

	_, err := client.GenerateHighlight(context.Background(), []byte("hero"), "")
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
}

func TestGenerateHighlightDownloadFailure(t *testing.T) {
	stub := &stubBackend{pollsUntilDone: 1, videoBytes: []byte("mp4"), downloadErr: errors.New("gone")}
	client := newClient(stub, "veo", time.Second, nil)
	noSleep(client)

	_, err := client.GenerateHighlight(context.Background(), []byte("hero"), "")
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
}

func TestGenerateHighlightCancelDuringPoll(t *testing.T) {
	stub := &stubBackend{pollsUntilDone: 100, videoBytes: []byte("mp4")}
	client := newClient(stub, "veo", time.Second, nil)

	ctx, cancel := context.WithCancel(context.Background())
	client.sleep = func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}

	_, err := client.GenerateHighlight(ctx, []byte("hero"), "")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestGenerateHighlightRejectsEmptyHero(t *testing.T) {
	client := newClient(&stubBackend{}, "veo", time.Second, nil)
	_, err := client.GenerateHighlight(context.Background(), nil, "")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
