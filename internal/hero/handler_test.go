package hero

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"powerplay/internal/docstore"
	"powerplay/internal/retry"
	"powerplay/internal/services"
)

type stubImages struct {
	calls    int
	failures int
	err      error
	result   []byte

	gotMime   string
	gotGender string
}

func (s *stubImages) GenerateHero(_ context.Context, photo []byte, mimeType, gender string) ([]byte, error) {
	s.calls++
	s.gotMime = mimeType
	s.gotGender = gender
	if s.err != nil && (s.failures == 0 || s.calls <= s.failures) {
		return nil, s.err
	}
	return s.result, nil
}

type stubBlobs struct {
	downloads map[string][]byte
	uploaded  map[string][]byte
	uploadErr error
}

func (s *stubBlobs) Download(_ context.Context, ref string) ([]byte, error) {
	data, ok := s.downloads[ref]
	if !ok {
		return nil, services.Wrap(services.ErrTransient, "hero", "download", "missing blob", nil)
	}
	return data, nil
}

func (s *stubBlobs) Upload(_ context.Context, name string, data []byte) (string, error) {
	if s.uploadErr != nil {
		return "", s.uploadErr
	}
	if s.uploaded == nil {
		s.uploaded = make(map[string][]byte)
	}
	s.uploaded[name] = data
	return "http://blobs.test/" + name, nil
}

func noSleep() retry.Option {
	return retry.WithSleeper(func(context.Context, time.Duration) error { return nil })
}

func testItem() *docstore.Item {
	uploaded := time.Now().Add(-time.Minute)
	return &docstore.Item{
		ID:     "player@example.com",
		Status: docstore.StatusUnclaimed,
		Inputs: docstore.Inputs{
			PhotoRef:        "photos/player.jpg",
			PhotoUploadedAt: &uploaded,
			FirstName:       "Jordan",
			Gender:          "female",
			Email:           "player@example.com",
		},
	}
}

func newHandler(images *stubImages, blobs *stubBlobs) *Handler {
	exec := retry.NewExecutor(retry.FromSeconds([]int{1, 1}), nil, noSleep())
	return NewHandler(images, blobs, exec, nil)
}

func TestReady(t *testing.T) {
	h := newHandler(&stubImages{}, &stubBlobs{})

	item := testItem()
	if !h.Ready(item) {
		t.Fatal("complete intake should be ready")
	}

	missingPhoto := testItem()
	missingPhoto.Inputs.PhotoRef = ""
	if h.Ready(missingPhoto) {
		t.Fatal("item without a photo should not be ready")
	}

	missingUpload := testItem()
	missingUpload.Inputs.PhotoUploadedAt = nil
	if h.Ready(missingUpload) {
		t.Fatal("item without an upload timestamp should not be ready")
	}

	alreadyDone := testItem()
	alreadyDone.Outputs = map[string]string{docstore.OutputHero: "http://blobs.test/hero.png"}
	if h.Ready(alreadyDone) {
		t.Fatal("item with a hero artifact should not be ready")
	}

	errored := testItem()
	errored.Status = docstore.StatusErrorHero
	if h.Ready(errored) {
		t.Fatal("sticky error state should block dispatch")
	}
}

func TestExecuteUploadsHero(t *testing.T) {
	images := &stubImages{result: []byte("png-bytes")}
	blobs := &stubBlobs{downloads: map[string][]byte{"photos/player.jpg": []byte("selfie")}}
	h := newHandler(images, blobs)

	result, err := h.Execute(context.Background(), testItem())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	ref := result.Outputs[docstore.OutputHero]
	if !strings.HasSuffix(ref, "/hero.png") {
		t.Fatalf("unexpected hero ref %q", ref)
	}
	if string(blobs.uploaded["player@example.com/hero.png"]) != "png-bytes" {
		t.Fatal("hero bytes not uploaded")
	}
	if images.gotMime != "image/jpeg" {
		t.Fatalf("unexpected mime type %q", images.gotMime)
	}
	if images.gotGender != "female" {
		t.Fatalf("unexpected gender %q", images.gotGender)
	}
	if _, ok := result.Metrics[MetricKey]; !ok {
		t.Fatal("missing duration metric")
	}
}

func TestExecuteRetriesTransientGeneration(t *testing.T) {
	images := &stubImages{
		result:   []byte("png-bytes"),
		err:      services.Wrap(services.ErrTransient, "hero", "generate", "backend hiccup", nil),
		failures: 2,
	}
	blobs := &stubBlobs{downloads: map[string][]byte{"photos/player.jpg": []byte("selfie")}}
	h := newHandler(images, blobs)

	if _, err := h.Execute(context.Background(), testItem()); err != nil {
		t.Fatalf("Execute should recover after retries: %v", err)
	}
	if images.calls != 3 {
		t.Fatalf("expected 3 generation attempts, got %d", images.calls)
	}
}

func TestExecuteDoesNotRetryValidationFailure(t *testing.T) {
	images := &stubImages{err: services.Wrap(services.ErrValidation, "hero", "generate", "bad photo", nil)}
	blobs := &stubBlobs{downloads: map[string][]byte{"photos/player.jpg": []byte("selfie")}}
	h := newHandler(images, blobs)

	_, err := h.Execute(context.Background(), testItem())
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if images.calls != 1 {
		t.Fatalf("validation failure should not retry, got %d calls", images.calls)
	}
}

func TestExecuteFailsWhenPhotoMissing(t *testing.T) {
	images := &stubImages{result: []byte("png-bytes")}
	h := newHandler(images, &stubBlobs{})

	_, err := h.Execute(context.Background(), testItem())
	if err == nil {
		t.Fatal("expected download failure")
	}
	if images.calls != 0 {
		t.Fatal("generation should not run without the photo")
	}
}

func TestHealthCheck(t *testing.T) {
	h := newHandler(&stubImages{}, &stubBlobs{})
	if health := h.HealthCheck(context.Background()); !health.Ready {
		t.Fatalf("expected healthy, got %+v", health)
	}

	broken := NewHandler(nil, &stubBlobs{}, retry.NewExecutor(nil, nil), nil)
	if health := broken.HealthCheck(context.Background()); health.Ready {
		t.Fatal("expected unhealthy without an image backend")
	}
}
