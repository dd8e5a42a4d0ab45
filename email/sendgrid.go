package email

import (
	"context"
	"fmt"
	"net/http"
	"net/mail"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

const (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

type Sendgrid struct {
	key  string
	host string
	from *sgmail.Email
}

func NewSendgrid(key string, from mail.Address) *Sendgrid {
	return &Sendgrid{
		key:  key,
		host: sendgridHost,
		from: sgmail.NewEmail(from.Name, from.Address),
	}
}

func (s *Sendgrid) Send(ctx context.Context, msg Message) error {
	p := sgmail.NewPersonalization()
	p.Subject = msg.Subject
	p.AddTos(sgmail.NewEmail(msg.To.Name, msg.To.Address))

	m := sgmail.NewV3Mail()
	m.SetFrom(s.from)
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/plain", msg.Text))
	if msg.HTML != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTML))
	}

	req := sendgrid.GetRequest(s.key, sendgridEndpoint, s.host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(m)

	res, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("sending email to %s: %w", msg.To.Address, err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sending email to %s: status %d: %s", msg.To.Address, res.StatusCode, res.Body)
	}
	return nil
}
