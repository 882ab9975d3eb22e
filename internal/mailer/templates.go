package mailer

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/pitchfinderuk/pitchfinder-api/internal/alerts"
)

var digestTmpl = template.Must(template.New("digest").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #1a1a1a; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #15803d;">{{.Subject}}</h2>
  {{range .Entries}}
  <div style="border: 1px solid #e5e5e5; border-radius: 8px; padding: 14px; margin-bottom: 12px;">
    <h3 style="margin: 0 0 6px;"><a href="{{.URL}}" style="color: #15803d;">{{.Name}}</a></h3>
    {{if .Venue}}<p style="margin: 2px 0;">📍 {{.Venue}}</p>{{end}}
    <p style="margin: 2px 0;">📅 {{.DateRange}}</p>
    <p style="margin: 2px 0;">⚽ {{.Format}}{{if .AgeGroups}} · {{range $i, $g := .AgeGroups}}{{if $i}}, {{end}}{{$g}}{{end}}{{end}} · {{.Category}}</p>
    <p style="margin: 2px 0;">💷 {{.Price}}</p>
  </div>
  {{end}}
  {{if gt .OverflowCount 0}}
  <p><a href="{{.BrowseURL}}" style="color: #15803d;">+{{.OverflowCount}} more matching tournaments</a></p>
  {{end}}
  <hr style="border: none; border-top: 1px solid #e5e5e5; margin: 20px 0;">
  <p style="font-size: 12px; color: #737373;">
    You receive this because you set up a tournament alert.
    <a href="{{.ManageURL}}">Manage your alert</a> ·
    <a href="{{.UnsubscribeURL}}">Unsubscribe</a>
  </p>
</body>
</html>`))

var verifyTmpl = template.Must(template.New("verify").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #1a1a1a; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #15803d;">Confirm your tournament alert</h2>
  <p>Hi,</p>
  <p>Please confirm that {{.Email}} should receive tournament alert emails.
     Until you confirm, no alerts will be sent.</p>
  <p style="margin: 24px 0;">
    <a href="{{.VerifyURL}}" style="background: #15803d; color: #fff; padding: 10px 18px; border-radius: 6px; text-decoration: none;">Confirm my alert</a>
  </p>
  <p style="font-size: 12px; color: #737373;">If you did not set up this alert, ignore this email and nothing will be sent.</p>
</body>
</html>`))

// RenderDigest produces the HTML body for a digest email.
func RenderDigest(d *alerts.Digest) (string, error) {
	var buf bytes.Buffer
	if err := digestTmpl.Execute(&buf, d); err != nil {
		return "", fmt.Errorf("render digest: %w", err)
	}
	return buf.String(), nil
}

func renderVerification(email, verifyURL string) (string, error) {
	var buf bytes.Buffer
	data := struct {
		Email     string
		VerifyURL string
	}{email, verifyURL}
	if err := verifyTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render verification: %w", err)
	}
	return buf.String(), nil
}
