package api

import (
	"context"
	"io"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rentmyparking/internal/auth"
)

type Services struct {
	Auth          AuthAPI
	Search        SearchAPI
	Reservations  ReservationAPI
	Profiles      ProfileAPI
	Subscriptions Subscriber
	// Health reports whether the backing store is reachable.
	Health func(ctx context.Context) error
}

type RouterOptions struct {
	CORSOrigins []string
	// AccessLog receives combined-format access lines; nil disables them.
	AccessLog io.Writer
}

func NewRouter(s Services, tokens *auth.Tokens, opts RouterOptions) http.Handler {
	authHandler := NewAuthHandler(s.Auth)
	searchHandler := NewSearchHandler(s.Search)
	reservationHandler := NewReservationHandler(s.Reservations)
	profileHandler := NewProfileHandler(s.Profiles)
	subscriptionHandler := NewSubscriptionHandler(s.Subscriptions, opts.CORSOrigins)

	r := mux.NewRouter()
	r.Use(PrometheusMiddleware)

	r.HandleFunc("/healthz", healthHandler(s.Health)).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Public endpoints
	r.HandleFunc("/api/auth/login", authHandler.Login).Methods("POST")
	r.HandleFunc("/api/auth/register", authHandler.Register).Methods("POST")

	// Session endpoints (protected)
	api := r.PathPrefix("/api").Subrouter()
	api.Use(auth.Middleware(tokens))
	api.HandleFunc("/search", searchHandler.Search).Methods("POST")
	api.HandleFunc("/reservations", reservationHandler.Create).Methods("POST")
	api.HandleFunc("/reservations/pending", reservationHandler.Pending).Methods("GET")
	api.HandleFunc("/reservations/past", reservationHandler.Past).Methods("GET")
	api.HandleFunc("/reservations/{id}/accept", reservationHandler.Accept).Methods("POST")
	api.HandleFunc("/reservations/{id}/reject", reservationHandler.Reject).Methods("POST")
	api.HandleFunc("/profile", profileHandler.Get).Methods("GET")
	api.HandleFunc("/profile", profileHandler.Update).Methods("PUT")
	api.HandleFunc("/subscriptions/{kind}", subscriptionHandler.Stream).Methods("GET")

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	var h http.Handler = handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
	)(r)
	if opts.AccessLog != nil {
		h = handlers.CombinedLoggingHandler(opts.AccessLog, h)
	}
	return h
}

func healthHandler(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
