package email

import (
	"bytes"
	"fmt"
	"html/template"
	"regexp"
	"time"
)

var layout = template.Must(template.New("layout").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="margin: 0; padding: 0; font-family: Arial, sans-serif; background: #f9f9f9;">
    <div style="padding: 32px;">
        <div style="max-width: 600px; margin: auto; background: #fff; border-radius: 8px; box-shadow: 0 2px 8px #eee; padding: 32px;">
            <div style="font-size: 16px; color: #333;">
                {{.Content}}
            </div>
            <div style="margin-top: 32px; text-align: center; color: #aaa; font-size: 12px;">
                &copy; {{.Year}} LEAP. Empowering learners worldwide.
            </div>
        </div>
    </div>
</body>
</html>
`))

var certificateBody = template.Must(template.New("certificate").Parse(`<h2 style="color: #1a365d;">Congratulations {{.UserName}}!</h2>
<p>You have successfully completed the course:</p>
<h3 style="color: #2d3748; background: #f7fafc; padding: 10px; border-left: 4px solid #3182ce;">{{.CourseName}}</h3>
<p>Your certificate of completion is attached to this email. You can download and print it for your records.</p>
<p><strong>Achievement Details:</strong></p>
<ul>
    <li>Course: {{.CourseName}}</li>
    <li>Student: {{.UserName}}</li>
    <li>Issued Date: {{.Issued}}</li>
    <li>Certificate ID: {{.CertificateID}}</li>
</ul>
<p>Thank you for choosing LEAP for your learning journey.</p>`))

// wrap places rendered content inside the shared email layout.
func wrap(content template.HTML, now time.Time) (string, error) {
	var buf bytes.Buffer
	err := layout.Execute(&buf, map[string]interface{}{
		"Content": content,
		"Year":    now.Year(),
	})
	return buf.String(), err
}

// CertificateDetails fills the certificate delivery email.
type CertificateDetails struct {
	CertificateID string
	UserName      string
	UserEmail     string
	CourseName    string
	Issued        time.Time
	PDF           []byte
}

var unsafeFilename = regexp.MustCompile(`[^a-zA-Z0-9]`)

// CertificateFilename is the attachment name for a course certificate.
func CertificateFilename(courseName string) string {
	return "LEAP_Certificate_" + unsafeFilename.ReplaceAllString(courseName, "_") + ".pdf"
}

// CertificateMessage builds the email that delivers a certificate PDF.
func CertificateMessage(d CertificateDetails) (Message, error) {
	issued := d.Issued.Format("January 2, 2006")

	var body bytes.Buffer
	if err := certificateBody.Execute(&body, map[string]string{
		"UserName":      d.UserName,
		"CourseName":    d.CourseName,
		"Issued":        issued,
		"CertificateID": d.CertificateID,
	}); err != nil {
		return Message{}, err
	}
	html, err := wrap(template.HTML(body.String()), d.Issued)
	if err != nil {
		return Message{}, err
	}

	return Message{
		To:      d.UserEmail,
		ToName:  d.UserName,
		Subject: fmt.Sprintf("Your Certificate for %q - LEAP Platform", d.CourseName),
		HTML:    html,
		Text: fmt.Sprintf("Congratulations %s! You completed %q on %s. Your certificate (%s) is attached.",
			d.UserName, d.CourseName, issued, d.CertificateID),
		Attachments: []Attachment{{
			Filename:    CertificateFilename(d.CourseName),
			ContentType: "application/pdf",
			Content:     d.PDF,
		}},
	}, nil
}

var passwordResetBody = template.Must(template.New("reset").Parse(`<h2 style="color: #1a365d;">Hello {{.Name}},</h2>
<p>We received a request to reset your LEAP password.</p>
<p style="text-align: center; margin: 32px 0;">
    <a href="{{.Link}}" style="background: #3182ce; color: #fff; padding: 12px 24px; border-radius: 4px; text-decoration: none;">Reset password</a>
</p>
<p>The link expires in {{.Expiry}}. If you did not ask for this, you can ignore this email.</p>`))

// PasswordResetMessage builds the email carrying a password reset link.
func PasswordResetMessage(to, name, link string, expiry time.Duration, now time.Time) (Message, error) {
	var body bytes.Buffer
	if err := passwordResetBody.Execute(&body, map[string]string{
		"Name":   name,
		"Link":   link,
		"Expiry": expiry.String(),
	}); err != nil {
		return Message{}, err
	}
	html, err := wrap(template.HTML(body.String()), now)
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      to,
		ToName:  name,
		Subject: "Reset your LEAP password",
		HTML:    html,
		Text:    fmt.Sprintf("Hello %s, reset your LEAP password here: %s (expires in %s)", name, link, expiry),
	}, nil
}
