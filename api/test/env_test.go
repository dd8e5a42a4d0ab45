package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/irsalhamdi/learnhub/api"
	"github.com/irsalhamdi/learnhub/api/background"
	"github.com/irsalhamdi/learnhub/config"
	"github.com/irsalhamdi/learnhub/core/claims"
	"github.com/irsalhamdi/learnhub/core/teacher"
	"github.com/irsalhamdi/learnhub/core/user"
	"github.com/irsalhamdi/learnhub/database"
	"github.com/irsalhamdi/learnhub/email"
	"github.com/irsalhamdi/learnhub/events"
	"github.com/irsalhamdi/learnhub/payment"
	"github.com/irsalhamdi/learnhub/rate"
	"github.com/irsalhamdi/learnhub/validate"
	"github.com/jmoiron/sqlx"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

const (
	webhookSecret = "whsec_test_secret"
	password      = "correct-horse-battery"
)

// TestEnv is a running API backed by a throwaway postgres container and fake
// payment providers.
type TestEnv struct {
	*httptest.Server

	DB     *sqlx.DB
	Log    *logrus.Logger
	Stripe *mockStripe
	Paypal *mockPaypal
	Mailer *recordingMailer
	Events *recordingPublisher

	StudentEmail    string
	StudentID       string
	InstructorEmail string
	InstructorID    string
}

func NewTestEnv(t *testing.T, name string) (*TestEnv, error) {
	t.Helper()

	db := startDB(t, name)
	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("migrating: %w", err)
	}

	log, _ := test.NewNullLogger()
	env := &TestEnv{
		DB:     db,
		Log:    log,
		Stripe: &mockStripe{},
		Paypal: &mockPaypal{},
		Mailer: &recordingMailer{},
		Events: &recordingPublisher{},
	}

	stripeSrv := httptest.NewServer(env.Stripe.handle())
	t.Cleanup(stripeSrv.Close)
	paypalSrv := httptest.NewServer(env.Paypal.handle())
	t.Cleanup(paypalSrv.Close)

	strp, err := payment.NewStripe(config.Stripe{
		APISecret:     "sk_test_123",
		WebhookSecret: webhookSecret,
		Timeout:       5 * time.Second,
		Currency:      "inr",
		SuccessURL:    "http://front.test/course-progress",
		CancelURL:     "http://front.test/course-detail",
		URL:           stripeSrv.URL,
	}, log)
	if err != nil {
		return nil, err
	}

	pp, err := payment.NewPaypal(context.Background(), config.Paypal{
		ClientID: "paypal-client",
		Secret:   "paypal-secret",
		URL:      paypalSrv.URL,
		Currency: "USD",
		Timeout:  5 * time.Second,
	})
	if err != nil {
		return nil, err
	}

	bg := background.New(log)
	t.Cleanup(func() { bg.Shutdown(context.Background()) })

	limiter := rate.NewLimiter(1000, time.Minute, 1000)
	t.Cleanup(limiter.Stop)

	mux := api.APIMux(api.APIConfig{
		Log:        log,
		DB:         db,
		Session:    scs.New(),
		Mailer:     env.Mailer,
		Events:     env.Events,
		Background: bg,
		Stripe:     strp,
		Paypal:     pp,
		CourseURL:  "http://front.test/course-progress",
		Limiter:    limiter,
		Uploads:    teacher.Uploads{Dir: t.TempDir(), MaxSize: 1 << 20},
	})

	env.Server = httptest.NewServer(mux)
	t.Cleanup(env.Server.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	env.Server.Client().Jar = jar

	env.StudentEmail = name + "-student@learnhub.test"
	if env.StudentID, err = createUser(db, env.StudentEmail, claims.RoleStudent); err != nil {
		return nil, err
	}
	env.InstructorEmail = name + "-instructor@learnhub.test"
	if env.InstructorID, err = createUser(db, env.InstructorEmail, claims.RoleInstructor); err != nil {
		return nil, err
	}

	return env, nil
}

func startDB(t *testing.T, name string) *sqlx.DB {
	t.Helper()

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skipf("docker unavailable: %v", err)
	}

	res, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "14-alpine",
		Env: []string{
			"POSTGRES_USER=postgres",
			"POSTGRES_PASSWORD=postgres",
			"POSTGRES_DB=" + name,
		},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("starting postgres: %v", err)
	}
	t.Cleanup(func() { pool.Purge(res) })
	res.Expire(120)

	cfg := config.DB{
		User:         "postgres",
		Password:     "postgres",
		Host:         "localhost:" + res.GetPort("5432/tcp"),
		Name:         name,
		MaxIdleConns: 2,
		MaxOpenConns: 10,
		DisableTLS:   true,
	}

	var db *sqlx.DB
	pool.MaxWait = time.Minute
	err = pool.Retry(func() error {
		var err error
		if db, err = database.Open(cfg); err != nil {
			return err
		}
		return database.StatusCheck(context.Background(), db)
	})
	if err != nil {
		t.Fatalf("connecting to postgres: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

func createUser(db *sqlx.DB, email, role string) (string, error) {
	now := time.Now().UTC()
	u := user.User{
		ID:        validate.GenerateID(),
		Name:      role + " user",
		Email:     email,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := u.SetPassword(password); err != nil {
		return "", err
	}
	return u.ID, user.Create(context.Background(), db, u)
}

func Login(srv *httptest.Server, email, pass string) error {
	b, err := json.Marshal(map[string]string{"email": email, "password": pass})
	if err != nil {
		return err
	}

	w, err := srv.Client().Post(srv.URL+"/auth/login", "application/json", bytes.NewReader(b))
	if err != nil {
		return err
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusOK {
		return fmt.Errorf("login of %s failed: %s", email, w.Status)
	}
	return nil
}

func Logout(srv *httptest.Server) error {
	w, err := srv.Client().Post(srv.URL+"/auth/logout", "application/json", nil)
	if err != nil {
		return err
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusNoContent {
		return fmt.Errorf("logout failed: %s", w.Status)
	}
	return nil
}

// do sends a JSON request and decodes the JSON reply into out when given.
func (env *TestEnv) do(t *testing.T, method, path string, body any, out any) int {
	t.Helper()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(b)
	}

	r, err := http.NewRequest(method, env.URL+path, rd)
	if err != nil {
		t.Fatal(err)
	}
	r.Header.Set("Content-Type", "application/json")

	w, err := env.Client().Do(r)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if out != nil && w.StatusCode < 300 {
		if err := json.NewDecoder(w.Body).Decode(out); err != nil {
			t.Fatalf("decoding %s %s: %v", method, path, err)
		}
	}
	return w.StatusCode
}

func (env *TestEnv) asStudent(t *testing.T) {
	t.Helper()
	if err := Login(env.Server, env.StudentEmail, password); err != nil {
		t.Fatal(err)
	}
}

func (env *TestEnv) asInstructor(t *testing.T) {
	t.Helper()
	if err := Login(env.Server, env.InstructorEmail, password); err != nil {
		t.Fatal(err)
	}
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []email.Message
}

func (m *recordingMailer) Send(ctx context.Context, msg email.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type recordingPublisher struct {
	mu  sync.Mutex
	evs []events.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, evt events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.evs = append(p.evs, evt)
	return nil
}

func (p *recordingPublisher) ofType(typ string) []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []events.Event
	for _, e := range p.evs {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}
