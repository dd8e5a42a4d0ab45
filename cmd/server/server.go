package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/mail"
	"os"
	"os/signal"
	"syscall"

	"github.com/alexedwards/scs/v2"
	"github.com/ardanlabs/conf/v3"
	"github.com/irsalhamdi/learnhub/api"
	"github.com/irsalhamdi/learnhub/api/background"
	"github.com/irsalhamdi/learnhub/config"
	"github.com/irsalhamdi/learnhub/core/auth"
	"github.com/irsalhamdi/learnhub/core/chatbot"
	"github.com/irsalhamdi/learnhub/core/purchase"
	"github.com/irsalhamdi/learnhub/core/teacher"
	"github.com/irsalhamdi/learnhub/database"
	"github.com/irsalhamdi/learnhub/email"
	"github.com/irsalhamdi/learnhub/events"
	"github.com/irsalhamdi/learnhub/payment"
	"github.com/irsalhamdi/learnhub/rate"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	log := logrus.New()
	log.SetOutput(os.Stdout)

	if err := Run(log); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func Run(logger *logrus.Logger) error {
	logger.Infof("starting server")
	defer logger.Info("shutdown complete")

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	const prefix = "LEARNHUB"
	var cfg config.Config
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	lw := logger.Writer()
	defer lw.Close()
	errLog := log.New(lw, "", 0)

	db, err := database.Open(cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to open db connection: %w", err)
	}
	defer db.Close()

	if cfg.DB.Migrate {
		if err := database.Migrate(db); err != nil {
			return fmt.Errorf("failed to migrate the database: %w", err)
		}
	}

	sessionManager := scs.New()
	sessionManager.Lifetime = cfg.Session.Lifetime
	sessionManager.Cookie.Secure = cfg.Session.Secure
	sessionManager.Cookie.SameSite = http.SameSiteLaxMode

	var mailer email.Mailer = email.NewConsole(logger)
	if cfg.Email.SendgridKey != "" {
		from := mail.Address{Name: cfg.Email.FromName, Address: cfg.Email.FromAddress}
		mailer = email.NewSendgrid(cfg.Email.SendgridKey, from)
	}

	var pub events.Publisher = events.Nop{}
	if len(cfg.Kafka.Brokers) > 0 {
		k := events.NewKafka(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer k.Close()
		pub = k
	}

	bg := background.New(logger)

	strp, err := payment.NewStripe(cfg.Stripe, logger)
	if err != nil {
		return fmt.Errorf("failed to build the stripe client: %w", err)
	}

	var pp purchase.PaypalGateway
	if cfg.Paypal.ClientID != "" {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Paypal.Timeout)
		defer cancel()

		if pp, err = payment.NewPaypal(ctx, cfg.Paypal); err != nil {
			return fmt.Errorf("failed to build the paypal client: %w", err)
		}
	}

	var bot chatbot.Replier
	if cfg.Chatbot.APIKey != "" {
		bot = chatbot.NewClient(cfg.Chatbot)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Oauth.DiscoveryTimeout)
	defer cancel()
	google := cfg.Oauth.Google
	oauthProvs, err := auth.MakeProviders(ctx, []auth.ProviderConfig{
		{Name: "google", Client: google.Client, Secret: google.Secret, URL: google.URL, RedirectURL: google.RedirectURL},
	})
	if err != nil {
		return fmt.Errorf("failed to discover oauth providers: %w", err)
	}

	limiter := rate.NewLimiter(cfg.Rate.Burst, cfg.Rate.Expiry, rate.Every(cfg.Rate.Interval))
	defer limiter.Stop()

	mux := api.APIMux(api.APIConfig{
		CorsOrigin:       cfg.Cors.Origin,
		Log:              logger,
		DB:               db,
		Session:          sessionManager,
		Mailer:           mailer,
		Events:           pub,
		Background:       bg,
		Stripe:           strp,
		Paypal:           pp,
		Providers:        oauthProvs,
		LoginRedirectURL: cfg.Oauth.LoginRedirectURL,
		CourseURL:        cfg.Stripe.SuccessURL,
		Limiter:          limiter,
		Chatbot:          bot,
		Uploads:          teacher.Uploads{Dir: cfg.Uploads.Dir, MaxSize: cfg.Uploads.MaxSize},
	})

	api := http.Server{
		Handler:      mux,
		Addr:         cfg.Web.Address,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     errLog,
	}

	serverErrors := make(chan error, 1)

	go func() {
		logger.Infof("starting api router at %s", api.Addr)
		serverErrors <- api.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Infof("shutting down: signal %s", sig)

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		if err := api.Shutdown(ctx); err != nil {
			api.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}

		if err := bg.Shutdown(ctx); err != nil {
			return fmt.Errorf("could not complete all background tasks: %w", err)
		}
	}
	return nil
}
