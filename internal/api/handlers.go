// Package api serves the pricing operations over HTTP and streams computed
// results to WebSocket subscribers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/atmx/pricing-engine/internal/contract"
	"github.com/atmx/pricing-engine/internal/metrics"
	"github.com/atmx/pricing-engine/internal/model"
	"github.com/atmx/pricing-engine/internal/pricing"
)

// maxBodyBytes bounds request bodies; every request is a handful of numbers.
const maxBodyBytes = 1 << 16

// RouterOptions configure NewRouter.
type RouterOptions struct {
	// Hub serves GET /api/v1/ws when set.
	Hub *WSHub
	// Timeout bounds each pricing request; zero disables it.
	Timeout time.Duration
}

// NewRouter builds the HTTP handler for svc.
func NewRouter(svc *pricing.Service, opts RouterOptions) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(cors)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"pricing-engine"}`))
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if opts.Hub != nil {
			// WebSocket endpoint for computed results.
			r.Get("/ws", opts.Hub.HandleWS)
		}

		r.Group(func(r chi.Router) {
			if opts.Timeout > 0 {
				r.Use(middleware.Timeout(opts.Timeout))
			}
			r.Post("/black-scholes-european-option", handle(svc.European))
			r.Post("/implied-volatility", handle(svc.ImpliedVolatility))
			r.Post("/closed-form-geometric-asian-option", handle(svc.GeometricAsian))
			r.Post("/closed-form-geometric-basket-option", handle(svc.GeometricBasket))
			r.Post("/monte-carlo-arithmetic-asian-option", handle(svc.ArithmeticAsian))
			r.Post("/monte-carlo-arithmetic-mean-basket-option", handle(svc.ArithmeticBasket))
			r.Post("/quasi-monte-carlo-kiko-put-option", handle(svc.KIKOPut))
			r.Post("/binomial-tree-american-option", handle(svc.Lattice))
		})
	})
	return r
}

// cors allows cross-origin requests from any frontend.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handle adapts a pricing operation to an HTTP handler that decodes the JSON
// body into Req and encodes the response.
func handle[Req any](op func(context.Context, Req) (*contract.Response, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req Req
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
			writeError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}

		resp, err := op(r.Context(), req)
		if errors.Is(r.Context().Err(), context.DeadlineExceeded) {
			// middleware.Timeout answers 504 once the handler returns.
			return
		}
		if err != nil {
			status := statusFor(err)
			message := err.Error()
			if status == http.StatusInternalServerError {
				slog.Error("pricing request failed", "path", r.URL.Path, "err", err)
				message = "internal error"
			}
			writeError(w, message, status)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

// statusFor maps the pricing error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrDegenerate), errors.Is(err, model.ErrNotConverged):
		return http.StatusUnprocessableEntity
	case errors.Is(err, model.ErrResourceLimit):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
