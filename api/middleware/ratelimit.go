package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/irsalhamdi/learnhub/api/web"
	"github.com/irsalhamdi/learnhub/api/weberr"
	"github.com/irsalhamdi/learnhub/core/claims"
	"github.com/irsalhamdi/learnhub/rate"
)

var ErrTooManyRequests = errors.New("too many requests, slow down")

// RateLimit throttles callers, keyed by the authenticated user when there is
// one and by remote IP otherwise.
func RateLimit(lim *rate.Limiter) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			if !lim.Check(clientKey(ctx, r)) {
				return weberr.NewError(ErrTooManyRequests, ErrTooManyRequests.Error(), http.StatusTooManyRequests)
			}
			return handler(ctx, w, r)
		}
		return h
	}
	return m
}

func clientKey(ctx context.Context, r *http.Request) string {
	if clm, err := claims.Get(ctx); err == nil {
		return "user:" + clm.UserID
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
