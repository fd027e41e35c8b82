package mailer

import (
	"context"
	"errors"
	"image/color"
	"net/smtp"
	"path/filepath"
	"strings"
	"testing"

	"powerplay/internal/config"
	"powerplay/internal/services"
	"powerplay/internal/testsupport"
)

func testSMTP() config.SMTP {
	return config.SMTP{
		Host:            "smtp.example.com",
		Port:            587,
		Username:        "kiosk@example.com",
		Password:        "secret",
		From:            "Powerplay <kiosk@example.com>",
		BrandName:       "Powerplay",
		DownloadBaseURL: "https://powerplay.example.com/download",
	}
}

func TestFormatName(t *testing.T) {
	cases := map[string]string{
		"":          "Player",
		"  ":        "Player",
		"jordan":    "Jordan",
		"MARY ANNE": "Mary Anne",
		" blake ":   "Blake",
	}
	for input, want := range cases {
		if got := formatName(input); got != want {
			t.Fatalf("formatName(%q): expected %q, got %q", input, want, got)
		}
	}
}

func TestDownloadLinkEscapesEmail(t *testing.T) {
	got := downloadLink("https://powerplay.example.com/download/", "player@example.com")
	if got != "https://powerplay.example.com/download/player@example.com" {
		t.Fatalf("unexpected link %q", got)
	}

	got = downloadLink("https://powerplay.example.com/download", "a b@example.com")
	if !strings.Contains(got, "a%20b@example.com") {
		t.Fatalf("space not escaped in %q", got)
	}
}

func TestSendResultEmailBuildsMultipartMessage(t *testing.T) {
	m := New(testSMTP(), nil)

	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	m.WithSendFunc(func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	})

	if err := m.SendResultEmail(context.Background(), "player@example.com", "jordan"); err != nil {
		t.Fatalf("SendResultEmail failed: %v", err)
	}

	if gotAddr != "smtp.example.com:587" {
		t.Fatalf("unexpected addr %q", gotAddr)
	}
	if gotFrom != "Powerplay <kiosk@example.com>" {
		t.Fatalf("unexpected from %q", gotFrom)
	}
	if len(gotTo) != 1 || gotTo[0] != "player@example.com" {
		t.Fatalf("unexpected recipients %v", gotTo)
	}

	body := string(gotMsg)
	if !strings.Contains(body, "Subject: Your Powerplay Hero is Ready!") {
		t.Fatal("missing subject header")
	}
	if !strings.Contains(body, "multipart/related") || !strings.Contains(body, "multipart/alternative") {
		t.Fatal("expected related+alternative multipart structure")
	}
	if !strings.Contains(body, "Hi Jordan") {
		t.Fatal("greeting should use the title-cased name")
	}
	if !strings.Contains(body, "https://powerplay.example.com/download/player@example.com") {
		t.Fatal("missing download link")
	}
	if !strings.Contains(body, "Content-ID: <downloadqr>") {
		t.Fatal("missing inline QR code")
	}
	if strings.Contains(body, "Content-ID: <brandlogo>") {
		t.Fatal("logo attached despite no logo path configured")
	}
}

func TestSendResultEmailIncludesLogoWhenConfigured(t *testing.T) {
	cfg := testSMTP()
	logoPath := filepath.Join(t.TempDir(), "logo.png")
	testsupport.WritePNG(t, logoPath, 8, 8, color.White)
	cfg.LogoPath = logoPath

	m := New(cfg, nil)
	var gotMsg []byte
	m.WithSendFunc(func(_ string, _ smtp.Auth, _ string, _ []string, msg []byte) error {
		gotMsg = msg
		return nil
	})

	if err := m.SendResultEmail(context.Background(), "player@example.com", "sam"); err != nil {
		t.Fatalf("SendResultEmail failed: %v", err)
	}
	if !strings.Contains(string(gotMsg), "Content-ID: <brandlogo>") {
		t.Fatal("expected inline logo attachment")
	}
}

func TestSendResultEmailRequiresCredentials(t *testing.T) {
	cfg := testSMTP()
	cfg.Username = ""
	m := New(cfg, nil)

	err := m.SendResultEmail(context.Background(), "player@example.com", "sam")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestSendResultEmailWrapsTransportFailure(t *testing.T) {
	m := New(testSMTP(), nil)
	m.WithSendFunc(func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	})

	err := m.SendResultEmail(context.Background(), "player@example.com", "sam")
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
}

func TestSendResultEmailRejectsEmptyRecipient(t *testing.T) {
	m := New(testSMTP(), nil)
	err := m.SendResultEmail(context.Background(), "   ", "sam")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
