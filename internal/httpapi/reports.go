package httpapi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"artlicor/backend/internal/service"
)

func (a *API) handleSalesByProduct(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	start, end, productID := query.Get("start"), query.Get("end"), query.Get("product_id")

	if f := format(r); f != "json" {
		file, err := a.service.SalesByProductFile(r.Context(), start, end, productID, f)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		writeFile(w, file)
		return
	}
	report, err := a.service.SalesByProduct(r.Context(), start, end, productID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (a *API) handleSalesHistory(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	start, end := query.Get("start"), query.Get("end")

	switch f := format(r); f {
	case "json":
		report, err := a.service.SalesHistory(r.Context(), start, end)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, report)
	case "pdf":
		file, err := a.service.SalesHistoryPDF(r.Context(), start, end)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		writeFile(w, file)
	default:
		a.fail(w, r, fmt.Errorf("%w: %q", service.ErrUnsupportedFormat, f))
	}
}

func (a *API) handleStockCount(w http.ResponseWriter, r *http.Request) {
	switch f := format(r); f {
	case "json":
		sheet, err := a.service.StockCount(r.Context())
		if err != nil {
			a.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, sheet)
	case "pdf":
		file, err := a.service.StockCountPDF(r.Context())
		if err != nil {
			a.fail(w, r, err)
			return
		}
		writeFile(w, file)
	default:
		a.fail(w, r, fmt.Errorf("%w: %q", service.ErrUnsupportedFormat, f))
	}
}

func (a *API) handleInventoryTotals(w http.ResponseWriter, r *http.Request) {
	totals, err := a.service.InventoryTotals(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

// handleSaleReceipt reprints a stored sale. escpos answers JSON with the
// printer bytes base64 encoded.
func (a *API) handleSaleReceipt(w http.ResponseWriter, r *http.Request) {
	saleID := chi.URLParam(r, "id")
	switch f := format(r); f {
	case "json":
		doc, err := a.service.SaleReceipt(r.Context(), saleID)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"receipt": doc})
	case "pdf":
		file, err := a.service.SaleReceiptPDF(r.Context(), saleID)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		writeFile(w, file)
	case "escpos":
		printable, err := a.service.SaleReceiptEscpos(r.Context(), saleID)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, printable)
	default:
		a.fail(w, r, fmt.Errorf("%w: %q", service.ErrUnsupportedFormat, f))
	}
}
