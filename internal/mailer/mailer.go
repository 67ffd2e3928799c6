// Package mailer delivers transactional email (password resets).
package mailer

import (
	"context"
	"fmt"
	"html"
	"strings"
)

// Message is a single outbound HTML email.
type Message struct {
	To      string
	ToName  string
	Subject string
	HTML    string
}

// Sender delivers a message or reports why it could not.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

// ResetPasswordSubject is the subject line of reset emails.
const ResetPasswordSubject = "Reset Password"

// ResetPasswordLink builds the client URL that carries the plaintext reset token.
func ResetPasswordLink(clientOrigin, token string) string {
	return strings.TrimRight(clientOrigin, "/") + "/reset-password/" + token
}

// ResetPasswordMessage renders the reset email for an account.
func ResetPasswordMessage(to, fullName, link string) Message {
	name := html.EscapeString(fullName)
	href := html.EscapeString(link)
	body := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.5;">
  <p>Hi %s,</p>
  <p>We received a request to reset your password. Click the link below to choose a new one:</p>
  <p><a href="%s">Reset your password</a></p>
  <p>This link expires in 30 minutes. If you did not request a reset, you can ignore this email.</p>
</body>
</html>`, name, href)
	return Message{To: to, ToName: fullName, Subject: ResetPasswordSubject, HTML: body}
}
