package mail

import (
	"bytes"
	"fmt"
	"html/template"
	"net/url"
	"strings"
)

var emailTemplates = template.Must(template.New("verification").Parse(`<h1>Verify your email</h1>
<p>Hi {{.Name}},</p>
<p>Please confirm your email address by clicking the link below:</p>
<p><a href="{{.Link}}" style="display: inline-block; padding: 10px 20px; background-color: #007bff; color: white; text-decoration: none; border-radius: 5px;">Verify Email</a></p>
<p>This link expires in {{.ValidFor}}.</p>
`))

func init() {
	template.Must(emailTemplates.New("reset").Parse(`<h1>Password Reset Request</h1>
<p>Hi {{.Name}},</p>
<p>You requested a password reset. Please click the link below to reset your password:</p>
<p><a href="{{.Link}}" style="display: inline-block; padding: 10px 20px; background-color: #007bff; color: white; text-decoration: none; border-radius: 5px;">Reset Password</a></p>
<p>This link expires in {{.ValidFor}}. If you did not request a reset you can ignore this email.</p>
`))
}

// Composer builds the transactional emails that carry single-use links to
// the frontend.
type Composer struct {
	frontendURL string
}

// NewComposer validates the frontend base URL the links point at.
func NewComposer(frontendURL string) (*Composer, error) {
	u, err := url.Parse(strings.TrimSuffix(frontendURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("mail: frontend URL %q must be absolute", frontendURL)
	}
	return &Composer{frontendURL: u.String()}, nil
}

type emailData struct {
	Name     string
	Link     string
	ValidFor string
}

// VerificationEmail links to {frontend}/verify-email/{token}.
func (c *Composer) VerificationEmail(to, name, token, validFor string) (Message, error) {
	return c.render("verification", "Verify your email address", to, emailData{
		Name:     name,
		Link:     c.frontendURL + "/verify-email/" + url.PathEscape(token),
		ValidFor: validFor,
	})
}

// PasswordResetEmail links to {frontend}/reset-password/{token}.
func (c *Composer) PasswordResetEmail(to, name, token, validFor string) (Message, error) {
	return c.render("reset", "Password Reset Request", to, emailData{
		Name:     name,
		Link:     c.frontendURL + "/reset-password/" + url.PathEscape(token),
		ValidFor: validFor,
	})
}

func (c *Composer) render(name, subject, to string, data emailData) (Message, error) {
	var buf bytes.Buffer
	if err := emailTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return Message{}, fmt.Errorf("mail: render %s: %w", name, err)
	}
	return Message{
		To:      []string{to},
		Subject: subject,
		Body:    buf.String(),
		HTML:    true,
	}, nil
}
