package delivery

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/voicebridge/callout-service/internal/domain"
)

// transcriptEmailTemplate renders the full follow-up email. html/template
// escapes every interpolated value, so provider-supplied transcript text
// cannot inject markup into the message.
var transcriptEmailTemplate = template.Must(template.New("transcript").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <p>Hi {{.Name}},</p>
  <p>Thanks for speaking with us. Here is a record of your call.</p>
  <table style="border-collapse: collapse;" cellpadding="6">
    <tr><td><strong>Call ID</strong></td><td>{{.CallID}}</td></tr>
    <tr><td><strong>Started</strong></td><td>{{.Started}}</td></tr>
    <tr><td><strong>Ended</strong></td><td>{{.Ended}}</td></tr>
    <tr><td><strong>Duration</strong></td><td>{{.Duration}}</td></tr>
    <tr><td><strong>Ended because</strong></td><td>{{.DisconnectionReason}}</td></tr>
  </table>
  <h3>Transcript</h3>
  <pre style="background: #f5f5f5; padding: 12px; white-space: pre-wrap;">{{.Transcript}}</pre>
</body>
</html>`))

var degradedEmailTemplate = template.Must(template.New("degraded").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <p>Hi {{.Name}},</p>
  <p>Your call has completed, but we ran into an issue processing the
  transcript. Our team will follow up with you directly.</p>
  <p style="color: #888; font-size: 12px;">Reference: {{.Reference}}</p>
</body>
</html>`))

type transcriptEmailData struct {
	Name                string
	CallID              string
	Started             string
	Ended               string
	Duration            string
	DisconnectionReason string
	Transcript          string
}

type degradedEmailData struct {
	Name      string
	Reference string
}

func formatTimestamp(ms int64) string {
	if ms == 0 {
		return "unknown"
	}
	return time.UnixMilli(ms).UTC().Format("2006-01-02 15:04:05 MST")
}

// renderTranscriptEmail builds the HTML body for the full follow-up email.
func renderTranscriptEmail(name string, detail *domain.CallDetail) (string, error) {
	reason := detail.DisconnectionReason
	if reason == "" {
		reason = "not reported"
	}

	data := transcriptEmailData{
		Name:                name,
		CallID:              detail.CallID,
		Started:             formatTimestamp(detail.StartTimestamp),
		Ended:               formatTimestamp(detail.EndTimestamp),
		Duration:            detail.Duration().Round(time.Second).String(),
		DisconnectionReason: reason,
		Transcript:          detail.Transcript,
	}

	var buf bytes.Buffer
	if err := transcriptEmailTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render transcript email: %w", err)
	}
	return buf.String(), nil
}

// renderDegradedEmail builds the short fallback message body.
func renderDegradedEmail(name, reference string) (string, error) {
	var buf bytes.Buffer
	if err := degradedEmailTemplate.Execute(&buf, degradedEmailData{Name: name, Reference: reference}); err != nil {
		return "", fmt.Errorf("failed to render degraded email: %w", err)
	}
	return buf.String(), nil
}
