package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"strings"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnrollmentMessage(t *testing.T) {
	to := mail.Address{Name: "Ada", Address: "ada@example.com"}
	msg, err := EnrollmentMessage(to, Enrollment{
		Name:        "Ada",
		CourseTitle: "Go <basics>",
		Amount:      499,
		CourseURL:   "http://localhost:5173/course-progress/c1",
	})
	require.NoError(t, err)

	assert.Equal(t, "You are enrolled in Go <basics>", msg.Subject)
	assert.Contains(t, msg.Text, `"Go <basics>"`)
	assert.Contains(t, msg.HTML, "Go &lt;basics&gt;")
	assert.Contains(t, msg.Text, "499")
}

func TestSendgridSend(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/mail/send", r.URL.Path)
		assert.Equal(t, "Bearer SG.key", r.Header.Get("Authorization"))
		json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sg := NewSendgrid("SG.key", mail.Address{Name: "LearnHub", Address: "noreply@learnhub.local"})
	sg.host = srv.URL

	msg, err := RegistrationMessage(mail.Address{Address: "teacher@example.com"}, Registration{FirstName: "Grace"})
	require.NoError(t, err)
	require.NoError(t, sg.Send(context.Background(), msg))

	from := body["from"].(map[string]any)
	assert.Equal(t, "noreply@learnhub.local", from["email"])
	assert.True(t, strings.Contains(body["content"].([]any)[0].(map[string]any)["value"].(string), "Grace"))
}

func TestSendgridSendFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"errors":[{"message":"bad key"}]}`))
	}))
	defer srv.Close()

	sg := NewSendgrid("SG.bad", mail.Address{Address: "noreply@learnhub.local"})
	sg.host = srv.URL

	err := sg.Send(context.Background(), Message{To: mail.Address{Address: "a@b.c"}, Subject: "s", Text: "t"})
	assert.Error(t, err)
}

func TestConsole(t *testing.T) {
	log, hook := test.NewNullLogger()
	c := NewConsole(log)

	require.NoError(t, c.Send(context.Background(), Message{To: mail.Address{Address: "a@b.c"}, Subject: "hello", Text: "body"}))
	require.Len(t, hook.AllEntries(), 1)
	assert.Equal(t, "hello", hook.LastEntry().Data["subject"])
}
