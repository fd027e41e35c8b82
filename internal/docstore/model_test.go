package docstore

import (
	"testing"
	"time"
)

func TestStatusRankIsForwardOnly(t *testing.T) {
	order := []Status{
		StatusUnclaimed,
		StatusProcessingHero,
		StatusAwaitingScore,
		StatusProcessingOverlay,
		StatusReadyForNotify,
		StatusProcessingNotify,
		StatusDone,
	}
	for i := 1; i < len(order); i++ {
		if order[i].Rank() <= order[i-1].Rank() {
			t.Fatalf("%s should rank after %s", order[i], order[i-1])
		}
	}

	if StatusErrorHero.Rank() != StatusProcessingHero.Rank() {
		t.Fatal("error_hero should rank with processing_hero")
	}
	if StatusErrorNotify.Rank() != StatusProcessingNotify.Rank() {
		t.Fatal("error_notify should rank with processing_notify")
	}
	if Status("bogus").Rank() != -1 {
		t.Fatal("unknown status should rank below everything")
	}
}

func TestParseStatus(t *testing.T) {
	if status, ok := ParseStatus("  Awaiting_Score "); !ok || status != StatusAwaitingScore {
		t.Fatalf("parse failed: %q %v", status, ok)
	}
	if _, ok := ParseStatus("nonsense"); ok {
		t.Fatal("expected unknown status to be rejected")
	}
	if _, ok := ParseStatus(""); ok {
		t.Fatal("expected empty status to be rejected")
	}
}

func TestRollbackStatus(t *testing.T) {
	cases := map[Status]Status{
		StatusErrorHero:    StatusUnclaimed,
		StatusErrorOverlay: StatusAwaitingScore,
		StatusErrorNotify:  StatusReadyForNotify,
	}
	for from, want := range cases {
		got, ok := from.RollbackStatus()
		if !ok || got != want {
			t.Fatalf("%s: expected rollback %s, got %s (%v)", from, want, got, ok)
		}
	}
	if _, ok := StatusDone.RollbackStatus(); ok {
		t.Fatal("done has no rollback state")
	}
}

func TestLockExpiry(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	ttl := 15 * time.Minute

	var absent *Lock
	if !absent.Expired(ttl, now) {
		t.Fatal("absent lock should read as expired")
	}

	fresh := &Lock{
		Owner:       "worker-a",
		AcquiredAt:  now.Add(-time.Hour),
		HeartbeatAt: now.Add(-time.Minute),
	}
	if fresh.Expired(ttl, now) {
		t.Fatal("recent heartbeat should keep an old acquisition fresh")
	}
	if !fresh.FreshAt().Equal(fresh.HeartbeatAt) {
		t.Fatal("freshness should follow the newer timestamp")
	}

	stale := &Lock{
		Owner:       "worker-a",
		AcquiredAt:  now.Add(-time.Hour),
		HeartbeatAt: now.Add(-16 * time.Minute),
	}
	if !stale.Expired(ttl, now) {
		t.Fatal("silence past the TTL should expire the lock")
	}

	boundary := &Lock{
		Owner:       "worker-a",
		AcquiredAt:  now.Add(-ttl),
		HeartbeatAt: now.Add(-ttl),
	}
	if boundary.Expired(ttl, now) {
		t.Fatal("silence of exactly the TTL is still fresh")
	}
}

func TestNotificationFlagsBlocked(t *testing.T) {
	if (NotificationFlags{}).Blocked() {
		t.Fatal("untouched flags should not block")
	}
	if !(NotificationFlags{Sent: true}).Blocked() {
		t.Fatal("sent should block")
	}
	if !(NotificationFlags{Failed: true}).Blocked() {
		t.Fatal("failed should block")
	}
}

func TestDecodeInputsAliases(t *testing.T) {
	data := []byte(`{
		"selfieUrl": "photos/legacy.jpg",
		"selfieUploadedAt": "2026-03-14T11:58:00Z",
		"displayName": "Avery",
		"lastName": "Quinn",
		"gender": "male",
		"email": "avery@example.com"
	}`)
	in, err := DecodeInputs(data)
	if err != nil {
		t.Fatalf("DecodeInputs failed: %v", err)
	}
	if in.PhotoRef != "photos/legacy.jpg" {
		t.Fatalf("selfieUrl alias not honored: %q", in.PhotoRef)
	}
	if in.FirstName != "Avery" {
		t.Fatalf("displayName alias not honored: %q", in.FirstName)
	}
	if in.PhotoUploadedAt == nil || in.PhotoUploadedAt.Minute() != 58 {
		t.Fatalf("selfieUploadedAt alias not honored: %v", in.PhotoUploadedAt)
	}

	canonical := []byte(`{"photoRef":"photos/new.jpg","selfieUrl":"photos/old.jpg","firstName":"Sam"}`)
	in, err = DecodeInputs(canonical)
	if err != nil {
		t.Fatalf("DecodeInputs failed: %v", err)
	}
	if in.PhotoRef != "photos/new.jpg" {
		t.Fatalf("canonical name should win over alias: %q", in.PhotoRef)
	}
	if in.FirstName != "Sam" {
		t.Fatalf("unexpected first name: %q", in.FirstName)
	}
}

func TestEncodeInputsRoundTrip(t *testing.T) {
	uploaded := time.Date(2026, 3, 14, 11, 58, 0, 0, time.UTC)
	original := Inputs{
		PhotoRef:        "photos/p.jpg",
		PhotoUploadedAt: &uploaded,
		FirstName:       "Jordan",
		LastName:        "Blake",
		Gender:          "female",
		Email:           "jordan@example.com",
	}
	data, err := EncodeInputs(original)
	if err != nil {
		t.Fatalf("EncodeInputs failed: %v", err)
	}
	decoded, err := DecodeInputs(data)
	if err != nil {
		t.Fatalf("DecodeInputs failed: %v", err)
	}
	if decoded.Email != original.Email || decoded.PhotoRef != original.PhotoRef {
		t.Fatalf("round trip lost fields: %#v", decoded)
	}
	if decoded.PhotoUploadedAt == nil || !decoded.PhotoUploadedAt.Equal(uploaded) {
		t.Fatalf("timestamp did not round-trip: %v", decoded.PhotoUploadedAt)
	}
}
