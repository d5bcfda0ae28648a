package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type ctxKey struct{}

const maxRequestIDLen = 64

// RequestID берёт X-Request-ID клиента (если он вменяемой длины) или выдаёт uuid.
func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rid := r.Header.Get("X-Request-ID")
			if rid == "" || len(rid) > maxRequestIDLen {
				rid = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", rid)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, rid)))
		})
	}
}

func GetRequestID(r *http.Request) string {
	rid, _ := r.Context().Value(ctxKey{}).(string)
	return rid
}
