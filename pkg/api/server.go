// Package api exposes the catalog, cart and checkout over REST/JSON.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.opentelemetry.io/otel/trace"

	"coffeeshop/pkg/cart"
	"coffeeshop/pkg/catalog"
	"coffeeshop/pkg/logger"
	"coffeeshop/pkg/order"
	"coffeeshop/pkg/otel"
	"coffeeshop/pkg/session"
)

// Server holds the dependencies of the HTTP handlers.
type Server struct {
	Catalog  *catalog.Catalog
	Carts    *cart.Service
	Orders   *order.Service
	Sessions session.Registry
	Log      *logger.Logger
	Tracer   trace.Tracer

	SessionTTL     time.Duration
	SecureCookie   bool
	AllowedOrigins []string
}

// Handler builds the router with CORS, panic recovery and tracing applied.
func (s *Server) Handler() http.Handler {
	if s.Log == nil {
		s.Log = logger.Nop()
	}

	r := mux.NewRouter()
	r.Use(s.traceMiddleware)
	r.HandleFunc("/health", s.health).Methods(http.MethodGet)
	r.PathPrefix("/swagger/").Handler(httpSwagger.WrapHandler)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/products", s.listProducts).Methods(http.MethodGet)
	api.HandleFunc("/products/{id}", s.getProduct).Methods(http.MethodGet)
	api.HandleFunc("/categories", s.listCategories).Methods(http.MethodGet)

	withSession := session.Middleware(s.Sessions, s.SessionTTL, s.SecureCookie, s.Log)

	carts := api.PathPrefix("/cart").Subrouter()
	carts.Use(withSession)
	carts.HandleFunc("", s.getCart).Methods(http.MethodGet)
	carts.HandleFunc("", s.addToCart).Methods(http.MethodPost)
	carts.HandleFunc("/{itemId}", s.updateCartItem).Methods(http.MethodPut)
	carts.HandleFunc("/{itemId}", s.removeCartItem).Methods(http.MethodDelete)

	orders := api.PathPrefix("/orders").Subrouter()
	orders.Use(withSession)
	orders.HandleFunc("", s.createOrder).Methods(http.MethodPost)
	orders.HandleFunc("", s.listOrders).Methods(http.MethodGet)
	orders.HandleFunc("/{id}", s.getOrder).Methods(http.MethodGet)

	cors := handlers.CORS(
		handlers.AllowedOrigins(s.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
		handlers.AllowCredentials(),
	)
	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{s.Log}),
		handlers.PrintRecoveryStack(true),
	)
	return recovery(cors(r))
}

func (s *Server) traceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if s.Tracer != nil {
			ctx = otel.InjectTracing(ctx, s.Tracer)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// HealthResponse reports liveness.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// health reports that the service is up.
// @Summary Health check
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy", Timestamp: time.Now().UTC()})
}

type recoveryLogger struct {
	log *logger.Logger
}

func (l recoveryLogger) Println(v ...any) {
	l.log.Error(context.Background(), "panic serving request", "panic", fmt.Sprint(v...))
}
