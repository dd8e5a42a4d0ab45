package config

import "time"

type Config struct {
	Web     Web
	DB      DB
	Cors    Cors
	Session Session
	Stripe  Stripe
	Paypal  Paypal
	Oauth   Oauth
	Email   Email
	Kafka   Kafka
	Chatbot Chatbot
	Uploads Uploads
	Rate    Rate
}

type Web struct {
	Address         string        `conf:"default:0.0.0.0:8000"`
	ReadTimeout     time.Duration `conf:"default:5s"`
	WriteTimeout    time.Duration `conf:"default:10s"`
	IdleTimeout     time.Duration `conf:"default:120s"`
	ShutdownTimeout time.Duration `conf:"default:20s"`
}

type DB struct {
	User         string `conf:"default:postgres"`
	Password     string `conf:"default:postgres,mask"`
	Host         string `conf:"default:localhost:5432"`
	Name         string `conf:"default:learnhub"`
	MaxIdleConns int    `conf:"default:5"`
	MaxOpenConns int    `conf:"default:25"`
	DisableTLS   bool   `conf:"default:true"`
	Migrate      bool   `conf:"default:true"`
}

type Cors struct {
	Origin string `conf:"default:http://localhost:5173"`
}

type Session struct {
	Lifetime time.Duration `conf:"default:24h"`
	Secure   bool
}

// Stripe holds everything the checkout client needs. URL is only set when
// pointing the client at a fake API.
type Stripe struct {
	APISecret     string        `conf:"mask"`
	WebhookSecret string        `conf:"mask"`
	Timeout       time.Duration `conf:"default:10s"`
	Currency      string        `conf:"default:inr"`
	SuccessURL    string        `conf:"default:http://localhost:5173/course-progress"`
	CancelURL     string        `conf:"default:http://localhost:5173/course-detail"`
	URL           string
}

type Paypal struct {
	ClientID string
	Secret   string        `conf:"mask"`
	URL      string        `conf:"default:https://api-m.sandbox.paypal.com"`
	Currency string        `conf:"default:USD"`
	Timeout  time.Duration `conf:"default:10s"`
}

type Oauth struct {
	DiscoveryTimeout time.Duration `conf:"default:10s"`
	LoginRedirectURL string        `conf:"default:http://localhost:5173"`
	Google           OauthProvider
}

type OauthProvider struct {
	Client      string
	Secret      string `conf:"mask"`
	URL         string `conf:"default:https://accounts.google.com"`
	RedirectURL string `conf:"default:http://localhost:8000/auth/oauth-callback/google"`
}

type Email struct {
	SendgridKey string `conf:"mask"`
	FromAddress string `conf:"default:noreply@learnhub.local"`
	FromName    string `conf:"default:LearnHub"`
}

type Kafka struct {
	Brokers []string
	Topic   string `conf:"default:learnhub.events"`
}

type Chatbot struct {
	URL     string        `conf:"default:https://api.groq.com/openai/v1/chat/completions"`
	APIKey  string        `conf:"mask"`
	Model   string        `conf:"default:llama3-8b-8192"`
	Timeout time.Duration `conf:"default:10s"`
}

type Uploads struct {
	Dir     string `conf:"default:uploads"`
	MaxSize int64  `conf:"default:10485760"`
}

type Rate struct {
	Burst    int           `conf:"default:10"`
	Interval time.Duration `conf:"default:1s"`
	Expiry   time.Duration `conf:"default:10m"`
}
