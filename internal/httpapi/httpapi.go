// Package httpapi exposes the store back office and the sales registers over
// JSON HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"artlicor/backend/internal/cart"
	"artlicor/backend/internal/checkout"
	"artlicor/backend/internal/logging"
	"artlicor/backend/internal/money"
	"artlicor/backend/internal/sales"
	"artlicor/backend/internal/service"
	"artlicor/backend/internal/store"
)

const (
	basePath     = "/api/v1"
	maxBodyBytes = 1 << 20
)

type API struct {
	service       *service.Service
	allowedOrigin string
	logger        *zap.Logger
}

func New(svc *service.Service, logger *zap.Logger, allowedOrigin string) *API {
	return &API{
		service:       svc,
		allowedOrigin: allowedOrigin,
		logger:        logging.OrNop(logger).Named("http"),
	}
}

func (a *API) Handler() http.Handler {
	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(a.recoverer)
	router.Use(a.withHeaders)
	router.Use(a.requestLog)
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, errors.New("route not found"))
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeMethodNotAllowed(w)
	})

	router.Get("/healthz", a.handleHealth)

	router.Route(basePath, func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", a.handleListProducts)
			r.Post("/", a.handleCreateProduct)
			r.Get("/search", a.handleSearchProducts)
			r.Get("/{id}", a.handleGetProduct)
			r.Patch("/{id}", a.handleUpdateProduct)
			r.Delete("/{id}", a.handleDeleteProduct)
		})
		r.Route("/customers", func(r chi.Router) {
			r.Get("/", a.handleListCustomers)
			r.Post("/", a.handleCreateCustomer)
			r.Get("/{id}", a.handleGetCustomer)
			r.Patch("/{id}", a.handleUpdateCustomer)
			r.Delete("/{id}", a.handleDeleteCustomer)
		})
		r.Route("/payment-methods", func(r chi.Router) {
			r.Get("/", a.handleListPaymentMethods)
			r.Post("/", a.handleCreatePaymentMethod)
			r.Get("/{id}", a.handleGetPaymentMethod)
			r.Patch("/{id}", a.handleUpdatePaymentMethod)
			r.Delete("/{id}", a.handleDeletePaymentMethod)
		})

		r.Get("/stock-entries", a.handleListStockEntries)
		r.Post("/stock-entries", a.handleCreateStockEntry)
		r.Get("/settings", a.handleGetSettings)
		r.Put("/settings", a.handleUpdateSettings)
		r.Get("/dashboard", a.handleDashboard)

		r.Route("/reports", func(r chi.Router) {
			r.Get("/sales-by-product", a.handleSalesByProduct)
			r.Get("/sales-history", a.handleSalesHistory)
			r.Get("/stock-count", a.handleStockCount)
			r.Get("/inventory-totals", a.handleInventoryTotals)
		})
		r.Get("/sales/{id}/receipt", a.handleSaleReceipt)

		r.Route("/registers", func(r chi.Router) {
			r.Post("/", a.handleOpenRegister)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", a.handleGetRegister)
				r.Post("/items", a.handleAddRegisterItem)
				r.Patch("/items/{productID}", a.handleUpdateRegisterItem)
				r.Delete("/items/{productID}", a.handleRemoveRegisterItem)
				r.Post("/checkout", a.handleOpenCheckout)
				r.Post("/checkout/quote", a.handleQuoteCheckout)
				r.Delete("/checkout", a.handleCloseCheckout)
				r.Post("/confirm", a.handleConfirmSale)
				r.Post("/cancel", a.handleCancelRegister)
			})
		})
	})

	return router
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) withHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition")
		w.Header().Set("Vary", "Origin")

		if r.Method == http.MethodPost || r.Method == http.MethodPatch || r.Method == http.MethodPut {
			r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *API) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startedAt := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		a.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(startedAt)),
			zap.String("request_id", chimw.GetReqID(r.Context())))
	})
}

func (a *API) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				a.logger.Error("panic serving request",
					zap.Any("panic", rec),
					zap.String("path", r.URL.Path),
					zap.Stack("stack"))
				writeError(w, http.StatusInternalServerError, errors.New("panic"))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// fail maps a service error to its status and writes it.
func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		a.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", chimw.GetReqID(r.Context())),
			zap.Error(err))
	}

	// Commit reasons are fixed strings and safe to expose at any status.
	var commitErr *sales.CommitError
	if errors.As(err, &commitErr) {
		msg := commitErr.Error()
		if status >= http.StatusInternalServerError && commitErr.Reason != sales.ReasonTimeout {
			msg = "internal server error"
		}
		writeJSON(w, status, map[string]any{
			"error":  msg,
			"reason": commitErr.Reason,
		})
		return
	}
	writeError(w, status, err)
}

func statusFor(err error) int {
	var commitErr *sales.CommitError
	if errors.As(err, &commitErr) {
		switch commitErr.Reason {
		case sales.ReasonTimeout:
			return http.StatusGatewayTimeout
		case sales.ReasonInsufficientStock:
			return http.StatusConflict
		case sales.ReasonUnknownReference, sales.ReasonInvalidSale:
			return http.StatusUnprocessableEntity
		}
		return http.StatusBadGateway
	}

	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, sales.ErrRegisterNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrInvalidInput),
		errors.Is(err, money.ErrInvalidAmount),
		errors.Is(err, money.ErrInvalidQuantity),
		errors.Is(err, service.ErrInvalidDateRange),
		errors.Is(err, service.ErrUnsupportedFormat),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, cart.ErrInvalidPrice):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrReferenced),
		errors.Is(err, store.ErrInsufficientStock),
		errors.Is(err, sales.ErrCommitInFlight),
		errors.Is(err, sales.ErrInvalidState),
		errors.Is(err, sales.ErrConfirmationRequired):
		return http.StatusConflict
	case errors.Is(err, cart.ErrOutOfStock),
		errors.Is(err, cart.ErrNotInCart),
		errors.Is(err, sales.ErrEmptyCart),
		errors.Is(err, checkout.ErrMissingPaymentMethod),
		errors.Is(err, checkout.ErrInsufficientPayment),
		errors.Is(err, service.ErrUnknownReference):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

func parsePositiveLimit(raw string, fallback int, max int) int {
	limit := fallback
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		if parsed, err := strconv.Atoi(trimmed); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}

// format reads ?format=, defaulting to json.
func format(r *http.Request) string {
	value := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if value == "" {
		return "json"
	}
	return value
}

func writeFile(w http.ResponseWriter, file service.File) {
	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", "attachment; filename=\""+file.Name+"\"")
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(file.Body)
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

// writeError hides the detail of 5xx errors; 4xx messages are user facing.
func writeError(w http.ResponseWriter, status int, err error) {
	msg := err.Error()
	if status >= 500 {
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
