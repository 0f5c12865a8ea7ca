package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"artlicor/backend/internal/cart"
	"artlicor/backend/internal/checkout"
	"artlicor/backend/internal/sales"
	"artlicor/backend/internal/service"
	"artlicor/backend/internal/store"
)

func TestMiddlewareSetsSecurityHeaders(t *testing.T) {
	api := newTestAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()

	api.Handler().ServeHTTP(res, req)

	assert.Equal(t, "nosniff", res.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", res.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, res.Header().Get("Referrer-Policy"))
	assert.Equal(t, "*", res.Header().Get("Access-Control-Allow-Origin"))
}

func TestPreflightShortCircuits(t *testing.T) {
	api := newTestAPI(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/products", nil)
	res := httptest.NewRecorder()

	api.Handler().ServeHTTP(res, req)

	assert.Equal(t, http.StatusNoContent, res.Code)
	assert.Contains(t, res.Header().Get("Access-Control-Allow-Methods"), "DELETE")
}

func TestJSONBodyTooLargeRejected(t *testing.T) {
	api := newTestAPI(t)
	veryLong := strings.Repeat("a", maxBodyBytes+1024)
	body := fmt.Sprintf(`{"name":"%s"}`, veryLong)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/customers", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()

	api.Handler().ServeHTTP(res, req)

	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestMarkupIsStrippedFromNames(t *testing.T) {
	handler := newTestAPI(t).Handler()

	rec := do(t, handler, http.MethodPost, "/api/v1/customers", map[string]string{"name": `<script>alert(1)</script>João & Filhos`})

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode[struct {
		Customer struct {
			Code string `json:"code"`
			Name string `json:"name"`
		} `json:"customer"`
	}](t, rec)
	assert.Equal(t, "João & Filhos", body.Customer.Name)
	assert.Equal(t, "CLI004", body.Customer.Code)
}

func TestUnknownRouteAndMethod(t *testing.T) {
	handler := newTestAPI(t).Handler()

	assert.Equal(t, http.StatusNotFound, do(t, handler, http.MethodGet, "/api/v1/nothing", nil).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, handler, http.MethodPut, "/api/v1/products", nil).Code)
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{store.ErrNotFound, http.StatusNotFound},
		{sales.ErrRegisterNotFound, http.StatusNotFound},
		{fmt.Errorf("x: %w", store.ErrInvalidInput), http.StatusBadRequest},
		{service.ErrInvalidDateRange, http.StatusBadRequest},
		{cart.ErrInvalidPrice, http.StatusBadRequest},
		{store.ErrReferenced, http.StatusConflict},
		{sales.ErrCommitInFlight, http.StatusConflict},
		{sales.ErrConfirmationRequired, http.StatusConflict},
		{cart.ErrOutOfStock, http.StatusUnprocessableEntity},
		{checkout.ErrInsufficientPayment, http.StatusUnprocessableEntity},
		{service.ErrUnknownReference, http.StatusUnprocessableEntity},
		{&sales.CommitError{Reason: sales.ReasonTimeout}, http.StatusGatewayTimeout},
		{&sales.CommitError{Reason: sales.ReasonInsufficientStock, Err: store.ErrInsufficientStock}, http.StatusConflict},
		{&sales.CommitError{Reason: sales.ReasonPersistence, Err: errors.New("conn reset")}, http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(tc.err), tc.err.Error())
	}
}

func TestInternalErrorsAreHidden(t *testing.T) {
	api := newTestAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	res := httptest.NewRecorder()

	api.fail(res, req, errors.New("pq: relation products does not exist"))

	assert.Equal(t, http.StatusInternalServerError, res.Code)
	assert.NotContains(t, res.Body.String(), "relation")
}

func TestCommitFailureCarriesReason(t *testing.T) {
	api := newTestAPI(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/registers/x/confirm", nil)
	res := httptest.NewRecorder()

	api.fail(res, req, &sales.CommitError{Reason: sales.ReasonInsufficientStock, Err: store.ErrInsufficientStock})

	assert.Equal(t, http.StatusConflict, res.Code)
	assert.Contains(t, res.Body.String(), `"reason":"insufficient stock"`)
}

func TestParsePositiveLimit(t *testing.T) {
	assert.Equal(t, 50, parsePositiveLimit("", 50, 500))
	assert.Equal(t, 50, parsePositiveLimit("-3", 50, 500))
	assert.Equal(t, 20, parsePositiveLimit(" 20 ", 50, 500))
	assert.Equal(t, 500, parsePositiveLimit("9000", 50, 500))
}
