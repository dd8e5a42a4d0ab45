// Package email sends transactional messages: enrollment receipts and
// teacher-registration acknowledgements.
package email

import (
	"bytes"
	"context"
	"fmt"
	htmltmpl "html/template"
	"net/mail"
	texttmpl "text/template"
)

// Mailer delivers a message or reports why it could not.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

type Message struct {
	To      mail.Address
	Subject string
	Text    string
	HTML    string
}

type Enrollment struct {
	Name        string
	CourseTitle string
	Amount      int
	CourseURL   string
}

type Registration struct {
	FirstName string
}

var (
	enrollmentText = texttmpl.Must(texttmpl.New("enrollment").Parse(
		`Hi {{.Name}},

Your payment of {{.Amount}} was received and you are now enrolled in "{{.CourseTitle}}".
Start learning: {{.CourseURL}}
`))
	enrollmentHTML = htmltmpl.Must(htmltmpl.New("enrollment").Parse(
		`<p>Hi {{.Name}},</p>
<p>Your payment of {{.Amount}} was received and you are now enrolled in <strong>{{.CourseTitle}}</strong>.</p>
<p><a href="{{.CourseURL}}">Start learning</a></p>`))

	registrationText = texttmpl.Must(texttmpl.New("registration").Parse(
		`Hi {{.FirstName}},

Thanks for applying to teach with us. We will review your application and get back to you.
`))
)

func EnrollmentMessage(to mail.Address, data Enrollment) (Message, error) {
	var txt, html bytes.Buffer
	if err := enrollmentText.Execute(&txt, data); err != nil {
		return Message{}, fmt.Errorf("rendering enrollment text: %w", err)
	}
	if err := enrollmentHTML.Execute(&html, data); err != nil {
		return Message{}, fmt.Errorf("rendering enrollment html: %w", err)
	}

	return Message{
		To:      to,
		Subject: "You are enrolled in " + data.CourseTitle,
		Text:    txt.String(),
		HTML:    html.String(),
	}, nil
}

func RegistrationMessage(to mail.Address, data Registration) (Message, error) {
	var txt bytes.Buffer
	if err := registrationText.Execute(&txt, data); err != nil {
		return Message{}, fmt.Errorf("rendering registration text: %w", err)
	}

	return Message{
		To:      to,
		Subject: "We received your teacher application",
		Text:    txt.String(),
	}, nil
}
