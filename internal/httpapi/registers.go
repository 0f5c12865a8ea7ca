package httpapi

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"artlicor/backend/internal/domain"
)

func (a *API) handleOpenRegister(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusCreated, map[string]any{"register": a.service.OpenRegister()})
}

func (a *API) handleGetRegister(w http.ResponseWriter, r *http.Request) {
	view, err := a.service.Register(chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"register": view})
}

func (a *API) handleAddRegisterItem(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	view, err := a.service.AddToRegister(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"register": view})
}

func (a *API) handleUpdateRegisterItem(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterItemUpdate
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	view, err := a.service.UpdateRegisterItem(chi.URLParam(r, "id"), chi.URLParam(r, "productID"), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"register": view})
}

func (a *API) handleRemoveRegisterItem(w http.ResponseWriter, r *http.Request) {
	view, err := a.service.RemoveFromRegister(chi.URLParam(r, "id"), chi.URLParam(r, "productID"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"register": view})
}

func (a *API) handleOpenCheckout(w http.ResponseWriter, r *http.Request) {
	view, err := a.service.OpenCheckout(chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"register": view})
}

func (a *API) handleCloseCheckout(w http.ResponseWriter, r *http.Request) {
	view, err := a.service.CloseCheckout(chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"register": view})
}

func (a *API) handleQuoteCheckout(w http.ResponseWriter, r *http.Request) {
	var req domain.CheckoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	quote, err := a.service.QuoteCheckout(chi.URLParam(r, "id"), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"quote": quote})
}

func (a *API) handleConfirmSale(w http.ResponseWriter, r *http.Request) {
	var req domain.CheckoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	outcome, err := a.service.ConfirmSale(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, outcome)
}

// handleCancelRegister accepts an empty body, which cancels only an empty cart.
func (a *API) handleCancelRegister(w http.ResponseWriter, r *http.Request) {
	var req domain.CancelRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	view, err := a.service.CancelRegister(chi.URLParam(r, "id"), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"register": view})
}
