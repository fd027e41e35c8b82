package mailer

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html/template"
	"mime/multipart"
	"net/textproto"
	"net/url"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	brandBlue = "#134A7C"
	brandRed  = "#EE3227"

	logoCID = "brandlogo"
	qrCID   = "downloadqr"
)

var titleCaser = cases.Title(language.English)

// formatName title-cases the player's first name, falling back to a
// generic greeting when it is empty.
func formatName(firstName string) string {
	name := strings.TrimSpace(firstName)
	if name == "" {
		return "Player"
	}
	return titleCaser.String(strings.ToLower(name))
}

// downloadLink builds the player's download page URL with the email
// escaped so special characters don't break the path.
func downloadLink(base, email string) string {
	return strings.TrimRight(base, "/") + "/" + url.PathEscape(strings.TrimSpace(email))
}

type htmlData struct {
	BrandName   string
	BrandBlue   template.CSS
	BrandRed    template.CSS
	Name        string
	DownloadURL string
	LogoCID     string
	QRCID       string
	HasLogo     bool
}

var htmlBody = template.Must(template.New("result").Parse(`<html>
<body style="margin:0; padding:0; background:#f3f4f6; font-family:-apple-system, 'Segoe UI', Roboto, Helvetica, Arial, sans-serif;">
  <table role="presentation" width="100%" cellpadding="0" cellspacing="0" style="background:#f3f4f6; padding:24px 0;">
    <tr><td align="center">
      <table role="presentation" width="100%" cellpadding="0" cellspacing="0"
             style="max-width:640px; background:#ffffff; border-radius:18px; overflow:hidden;">
        <tr><td style="padding:0;">
          <div style="height:7px; background:{{.BrandBlue}};"></div>
          <div style="height:7px; background:{{.BrandRed}};"></div>
        </td></tr>
        <tr><td style="padding:30px;">
          <table role="presentation" width="100%" cellpadding="0" cellspacing="0">
            <tr>
              <td valign="middle">
                <div style="font-size:22px; font-weight:950; color:{{.BrandBlue}};">Your Hero is Ready</div>
                <div style="margin-top:6px; font-size:13px; color:#6b7280;">
                  Open your download page to view and save your results.
                </div>
              </td>
              {{if .HasLogo}}<td valign="middle" align="right" style="width:86px;">
                <img src="cid:{{.LogoCID}}" alt="{{.BrandName}}" width="54" height="54" style="display:block;" />
              </td>{{end}}
            </tr>
          </table>
          <div style="height:18px;"></div>
          <div style="font-size:15px; color:#111827; line-height:1.6;">
            Hi <strong>{{.Name}}</strong>,<br/>
            Thanks for visiting our hockey kiosk! Your content is ready.
          </div>
          <div style="height:16px;"></div>
          <div style="padding:16px; border:1px solid #e5e7eb; border-radius:16px; background:#fbfbfd;">
            <div style="font-size:14px; font-weight:900; color:{{.BrandBlue}}; margin-bottom:10px;">
              Download Your Results
            </div>
            <a href="{{.DownloadURL}}"
               style="display:inline-block; padding:14px 18px; background:{{.BrandBlue}}; color:#ffffff;
                      border-radius:12px; text-decoration:none; font-weight:900; font-size:14px;">
              Open Download Page
            </a>
            <div style="margin-top:12px; font-size:12px; color:#6b7280;">
              If the page doesn't open, copy and paste this link into your browser:
              <span style="word-break:break-all; color:#111827;">{{.DownloadURL}}</span>
            </div>
            <div style="margin-top:14px;">
              <img src="cid:{{.QRCID}}" alt="Download QR code" width="128" height="128" style="display:block;" />
              <div style="margin-top:6px; font-size:11px; color:#9ca3af;">Or scan with your phone.</div>
            </div>
          </div>
          <div style="height:24px;"></div>
          <div style="font-size:12.5px; color:#4b5563;">
            Automated message from the {{.BrandName}} event experience.
            If you didn't request this email, you can safely ignore it.
          </div>
        </td></tr>
      </table>
    </td></tr>
  </table>
</body>
</html>`))

// buildMessage assembles the full RFC 2045 message: multipart/related
// wrapping a multipart/alternative (plain + HTML) plus the inline CID
// images.
func buildMessage(from, to, subject, plain string, data htmlData, logoPNG, qrPNG []byte) ([]byte, error) {
	var html bytes.Buffer
	if err := htmlBody.Execute(&html, data); err != nil {
		return nil, fmt.Errorf("render email body: %w", err)
	}

	var body bytes.Buffer
	related := multipart.NewWriter(&body)

	var headers bytes.Buffer
	fmt.Fprintf(&headers, "From: %s\r\n", from)
	fmt.Fprintf(&headers, "To: %s\r\n", to)
	fmt.Fprintf(&headers, "Subject: %s\r\n", subject)
	headers.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&headers, "Content-Type: multipart/related; boundary=%q\r\n\r\n", related.Boundary())

	altPart, err := related.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"multipart/alternative; boundary=\"alt-" + related.Boundary() + "\""},
	})
	if err != nil {
		return nil, fmt.Errorf("create alternative part: %w", err)
	}
	alternative := multipart.NewWriter(altPart)
	if err := alternative.SetBoundary("alt-" + related.Boundary()); err != nil {
		return nil, fmt.Errorf("set alternative boundary: %w", err)
	}

	plainPart, err := alternative.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"text/plain; charset=utf-8"},
	})
	if err != nil {
		return nil, fmt.Errorf("create plain part: %w", err)
	}
	if _, err := plainPart.Write([]byte(plain)); err != nil {
		return nil, fmt.Errorf("write plain part: %w", err)
	}

	htmlPart, err := alternative.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"text/html; charset=utf-8"},
	})
	if err != nil {
		return nil, fmt.Errorf("create html part: %w", err)
	}
	if _, err := htmlPart.Write(html.Bytes()); err != nil {
		return nil, fmt.Errorf("write html part: %w", err)
	}
	if err := alternative.Close(); err != nil {
		return nil, fmt.Errorf("close alternative: %w", err)
	}

	if len(logoPNG) > 0 {
		if err := writeInlineImage(related, logoCID, "logo.png", logoPNG); err != nil {
			return nil, err
		}
	}
	if len(qrPNG) > 0 {
		if err := writeInlineImage(related, qrCID, "qr.png", qrPNG); err != nil {
			return nil, err
		}
	}
	if err := related.Close(); err != nil {
		return nil, fmt.Errorf("close message: %w", err)
	}

	headers.Write(body.Bytes())
	return headers.Bytes(), nil
}

func writeInlineImage(w *multipart.Writer, cid, filename string, data []byte) error {
	part, err := w.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {"image/png"},
		"Content-Transfer-Encoding": {"base64"},
		"Content-ID":                {"<" + cid + ">"},
		"Content-Disposition":       {fmt.Sprintf("inline; filename=%q", filename)},
	})
	if err != nil {
		return fmt.Errorf("create inline image %s: %w", cid, err)
	}
	encoded := base64.StdEncoding.EncodeToString(data)
	// Wrap base64 at 76 columns per RFC 2045.
	for len(encoded) > 0 {
		n := 76
		if n > len(encoded) {
			n = len(encoded)
		}
		if _, err := part.Write([]byte(encoded[:n] + "\r\n")); err != nil {
			return fmt.Errorf("write inline image %s: %w", cid, err)
		}
		encoded = encoded[n:]
	}
	return nil
}
