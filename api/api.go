package api

import (
	"context"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/gorilla/mux"
	"github.com/irsalhamdi/learnhub/api/background"
	"github.com/irsalhamdi/learnhub/api/middleware"
	"github.com/irsalhamdi/learnhub/api/web"
	"github.com/irsalhamdi/learnhub/api/weberr"
	"github.com/irsalhamdi/learnhub/core/auth"
	"github.com/irsalhamdi/learnhub/core/chatbot"
	"github.com/irsalhamdi/learnhub/core/course"
	"github.com/irsalhamdi/learnhub/core/progress"
	"github.com/irsalhamdi/learnhub/core/purchase"
	"github.com/irsalhamdi/learnhub/core/teacher"
	"github.com/irsalhamdi/learnhub/core/user"
	"github.com/irsalhamdi/learnhub/database"
	"github.com/irsalhamdi/learnhub/email"
	"github.com/irsalhamdi/learnhub/events"
	"github.com/irsalhamdi/learnhub/rate"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

type APIConfig struct {
	CorsOrigin       string
	Log              logrus.FieldLogger
	DB               *sqlx.DB
	Session          *scs.SessionManager
	Mailer           email.Mailer
	Events           events.Publisher
	Background       *background.Background
	Stripe           purchase.StripeGateway
	Paypal           purchase.PaypalGateway
	Providers        map[string]auth.Provider
	LoginRedirectURL string
	CourseURL        string
	Limiter          *rate.Limiter
	Chatbot          chatbot.Replier
	Uploads          teacher.Uploads
}

type api struct {
	*mux.Router
	mw  []web.Middleware
	log logrus.FieldLogger
}

func APIMux(cfg APIConfig) http.Handler {
	a := &api{
		Router: mux.NewRouter(),
		log:    cfg.Log,
	}

	a.mw = append(a.mw, auth.LoadAndSave(cfg.Session))
	a.mw = append(a.mw, middleware.RequestID())
	a.mw = append(a.mw, middleware.Logger(cfg.Log))
	a.mw = append(a.mw, middleware.Errors(cfg.Log))
	a.mw = append(a.mw, middleware.Panics())
	a.mw = append(a.mw, auth.Identify(cfg.Session))

	if cfg.CorsOrigin != "" {
		a.mw = append(a.mw, middleware.Cors(cfg.CorsOrigin))

		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			w.WriteHeader(http.StatusNoContent)
			return nil
		}

		a.Handle(http.MethodOptions, "/{path:.*}", h)
	}

	authen := auth.Authenticate()
	instructor := auth.Instructor()
	limit := middleware.RateLimit(cfg.Limiter)

	notifier := &purchase.Notifier{
		DB:         cfg.DB,
		Mailer:     cfg.Mailer,
		Events:     cfg.Events,
		Background: cfg.Background,
		CourseURL:  cfg.CourseURL,
	}

	a.Handle(http.MethodGet, "/health", handleHealth(cfg.DB))

	a.Handle(http.MethodPost, "/auth/signup", auth.HandleSignup(cfg.DB, cfg.Session), limit)
	a.Handle(http.MethodPost, "/auth/login", auth.HandleLogin(cfg.DB, cfg.Session), limit)
	a.Handle(http.MethodPost, "/auth/logout", auth.HandleLogout(cfg.Session))
	a.Handle(http.MethodGet, "/auth/oauth-login/{provider}", auth.HandleOauthLogin(cfg.Session, cfg.Providers))
	a.Handle(http.MethodGet, "/auth/oauth-callback/{provider}", auth.HandleOauthCallback(cfg.DB, cfg.Session, cfg.Providers, cfg.LoginRedirectURL))

	a.Handle(http.MethodGet, "/users/current", user.HandleShowCurrent(cfg.DB), authen)
	a.Handle(http.MethodPut, "/users/current", user.HandleUpdateCurrent(cfg.DB), authen)
	a.Handle(http.MethodGet, "/users/{id}", user.HandleShow(cfg.DB), authen)

	a.Handle(http.MethodGet, "/courses/created", course.HandleListCreated(cfg.DB), instructor)
	a.Handle(http.MethodGet, "/courses/enrolled", course.HandleListEnrolled(cfg.DB), authen)
	a.Handle(http.MethodGet, "/courses/{course_id}/lectures", course.HandleListLectures(cfg.DB))
	a.Handle(http.MethodPost, "/courses/{course_id}/lectures", course.HandleCreateLecture(cfg.DB), instructor)
	a.Handle(http.MethodPatch, "/courses/{id}/publish", course.HandlePublish(cfg.DB), instructor)
	a.Handle(http.MethodGet, "/courses/{id}", course.HandleShow(cfg.DB))
	a.Handle(http.MethodPut, "/courses/{id}", course.HandleUpdate(cfg.DB), instructor)
	a.Handle(http.MethodGet, "/courses", course.HandleList(cfg.DB))
	a.Handle(http.MethodPost, "/courses", course.HandleCreate(cfg.DB), instructor)

	a.Handle(http.MethodGet, "/lectures/{id}", course.HandleShowLecture(cfg.DB))
	a.Handle(http.MethodPut, "/lectures/{id}", course.HandleUpdateLecture(cfg.DB), instructor)

	a.Handle(http.MethodPost, "/purchase/checkout/create-checkout-session", purchase.HandleStripeCheckout(cfg.DB, cfg.Stripe, cfg.Log), authen, limit)
	a.Handle(http.MethodPost, "/purchase/webhook", purchase.HandleStripeWebhook(cfg.DB, cfg.Stripe, notifier, cfg.Log))
	a.Handle(http.MethodGet, "/purchase/course/{course_id}/detail-with-status", purchase.HandleShowWithStatus(cfg.DB), authen)
	a.Handle(http.MethodGet, "/purchase/users/{user_id}", purchase.HandleListByUser(cfg.DB), authen)
	a.Handle(http.MethodGet, "/purchase", purchase.HandleListSales(cfg.DB), instructor)

	if cfg.Paypal != nil {
		a.Handle(http.MethodPost, "/purchase/paypal", purchase.HandlePaypalCheckout(cfg.DB, cfg.Paypal), authen, limit)
		a.Handle(http.MethodPost, "/purchase/paypal/{id}/capture", purchase.HandlePaypalCapture(cfg.DB, cfg.Paypal, notifier), authen)
	}

	a.Handle(http.MethodGet, "/progress/{course_id}", progress.HandleShow(cfg.DB), authen)
	a.Handle(http.MethodPost, "/progress/{course_id}/lectures/{lecture_id}/view", progress.HandleView(cfg.DB), authen)
	a.Handle(http.MethodPost, "/progress/{course_id}/complete", progress.HandleComplete(cfg.DB, cfg.Events, cfg.Background), authen)
	a.Handle(http.MethodPost, "/progress/{course_id}/incomplete", progress.HandleIncomplete(cfg.DB), authen)

	a.Handle(http.MethodPost, "/teachers/register", teacher.HandleRegister(cfg.DB, cfg.Uploads, cfg.Mailer, cfg.Background), limit)

	if cfg.Chatbot != nil {
		a.Handle(http.MethodPost, "/chatbot", chatbot.HandleChat(cfg.Chatbot), limit)
	}

	return a.Router
}

func (a *api) Handle(method string, path string, handler web.Handler, mw ...web.Middleware) {

	handler = web.WrapMiddleware(mw, handler)

	handler = web.WrapMiddleware(a.mw, handler)

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		if err := handler(ctx, w, r); err != nil {

			a.log.WithFields(logrus.Fields{
				"req_id":  middleware.ContextRequestID(ctx),
				"message": err,
			}).Error("ERROR")
		}
	})

	a.Router.Handle(path, h).Methods(method)
}

func handleHealth(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		if err := database.StatusCheck(ctx, db); err != nil {
			return weberr.NewError(err, "database not ready", http.StatusServiceUnavailable)
		}
		return web.Respond(ctx, w, map[string]string{"status": "ok"}, http.StatusOK)
	}
}
