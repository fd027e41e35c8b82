package testsupport

import (
	"context"
	"testing"
	"time"

	"powerplay/internal/config"
	"powerplay/internal/docstore"
)

// MustOpenStore opens a docstore.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *docstore.Store {
	t.Helper()

	store, err := docstore.Open(cfg)
	if err != nil {
		t.Fatalf("docstore.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewInputs returns a complete input set keyed to the given email.
func NewInputs(email string) docstore.Inputs {
	uploaded := time.Now().UTC().Add(-time.Minute)
	return docstore.Inputs{
		PhotoRef:        "photos/" + email + ".jpg",
		PhotoUploadedAt: &uploaded,
		FirstName:       "Jordan",
		LastName:        "Blake",
		Gender:          "female",
		Email:           email,
	}
}

// NewItem creates a work item for tests using the provided store.
func NewItem(t testing.TB, store *docstore.Store, id string) *docstore.Item {
	t.Helper()

	item, err := store.Create(context.Background(), id, NewInputs(id))
	if err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	return item
}
