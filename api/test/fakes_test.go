package test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/gorilla/mux"
	"github.com/irsalhamdi/learnhub/api/web"
	"github.com/plutov/paypal/v4"
	mock "github.com/stripe/stripe-mock/param"
)

// mockStripe answers checkout session creation the way Stripe does and
// remembers what each session was opened for.
type mockStripe struct {
	mu       sync.Mutex
	n        int
	sessions map[string]stripeSession
	expired  map[string]bool
	fail     bool
}

type stripeSession struct {
	CourseID string
	UserID   string
	Amount   int64
}

func (m *mockStripe) session(id string) stripeSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[id]
}

func (m *mockStripe) isExpired(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.expired[id]
}

func (m *mockStripe) setFail(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = fail
}

func (m *mockStripe) handle() http.Handler {
	checkout := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		defer m.mu.Unlock()

		if m.fail {
			web.Respond(context.Background(), w, map[string]any{"error": map[string]any{"type": "api_error"}}, http.StatusInternalServerError)
			return
		}

		params, err := mock.ParseParams(r)
		if err != nil {
			web.Respond(context.Background(), w, nil, http.StatusBadRequest)
			return
		}

		lines, _ := params["line_items"].(map[string]any)
		if len(lines) != 1 {
			web.Respond(context.Background(), w, nil, http.StatusBadRequest)
			return
		}
		it, _ := lines["0"].(map[string]any)
		if it["quantity"] != "1" {
			web.Respond(context.Background(), w, nil, http.StatusBadRequest)
			return
		}
		pd, _ := it["price_data"].(map[string]any)
		amount, err := strconv.ParseInt(fmt.Sprint(pd["unit_amount"]), 10, 64)
		if err != nil {
			web.Respond(context.Background(), w, nil, http.StatusBadRequest)
			return
		}

		md, _ := params["metadata"].(map[string]any)
		courseID, _ := md["courseId"].(string)
		userID, _ := md["userId"].(string)

		m.n++
		id := fmt.Sprintf("cs_test_%d", m.n)
		if m.sessions == nil {
			m.sessions = make(map[string]stripeSession)
		}
		m.sessions[id] = stripeSession{CourseID: courseID, UserID: userID, Amount: amount}

		web.Respond(context.Background(), w, map[string]any{
			"id":     id,
			"object": "checkout.session",
			"mode":   "payment",
			"url":    "https://checkout.stripe.test/pay/" + id,
		}, http.StatusOK)
	})

	expire := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		defer m.mu.Unlock()

		id := mux.Vars(r)["id"]
		if _, ok := m.sessions[id]; !ok {
			web.Respond(context.Background(), w, map[string]any{"error": map[string]any{"type": "invalid_request_error"}}, http.StatusNotFound)
			return
		}
		if m.expired == nil {
			m.expired = make(map[string]bool)
		}
		m.expired[id] = true

		web.Respond(context.Background(), w, map[string]any{
			"id":     id,
			"object": "checkout.session",
			"status": "expired",
		}, http.StatusOK)
	})

	r := mux.NewRouter()
	r.Handle("/v1/checkout/sessions", checkout).Methods(http.MethodPost)
	r.Handle("/v1/checkout/sessions/{id}/expire", expire).Methods(http.MethodPost)
	return r
}

type mockPaypal struct {
	mu       sync.Mutex
	n        int
	captured int
}

func (m *mockPaypal) captures() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.captured
}

func (m *mockPaypal) handle() http.Handler {
	token := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		web.Respond(context.Background(), w, map[string]any{
			"access_token": "paypal-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		}, http.StatusOK)
	})

	checkout := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var pu struct {
			Units []paypal.PurchaseUnitRequest `json:"purchase_units"`
		}
		if err := json.NewDecoder(r.Body).Decode(&pu); err != nil || len(pu.Units) != 1 {
			web.Respond(context.Background(), w, nil, http.StatusBadRequest)
			return
		}

		m.mu.Lock()
		m.n++
		id := fmt.Sprintf("PAYPAL-%d", m.n)
		m.mu.Unlock()

		web.Respond(context.Background(), w, map[string]any{
			"id":     id,
			"status": "CREATED",
			"links": []map[string]string{
				{"rel": "approve", "href": "https://paypal.test/checkoutnow?token=" + id},
			},
		}, http.StatusCreated)
	})

	capture := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		m.captured++
		m.mu.Unlock()

		web.Respond(context.Background(), w, map[string]any{
			"id":     mux.Vars(r)["id"],
			"status": "COMPLETED",
		}, http.StatusCreated)
	})

	r := mux.NewRouter()
	r.Handle("/v1/oauth2/token", token).Methods(http.MethodPost)
	r.Handle("/v2/checkout/orders", checkout).Methods(http.MethodPost)
	r.Handle("/v2/checkout/orders/{id}/capture", capture).Methods(http.MethodPost)
	return r
}
