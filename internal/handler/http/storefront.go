package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/wholesale-storefront/internal/domain"
	"github.com/utafrali/wholesale-storefront/internal/repository"
	"github.com/utafrali/wholesale-storefront/internal/service"
	"github.com/utafrali/wholesale-storefront/internal/variation"
	"github.com/utafrali/wholesale-storefront/pkg/httputil"
	"github.com/utafrali/wholesale-storefront/pkg/validator"
)

// StorefrontHandler handles HTTP requests from the storefront UI shell.
type StorefrontHandler struct {
	service *service.StorefrontService
	logger  *slog.Logger
}

// NewStorefrontHandler creates a new storefront HTTP handler.
func NewStorefrontHandler(svc *service.StorefrontService, logger *slog.Logger) *StorefrontHandler {
	return &StorefrontHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// QuantityInput is the quantity as typed by the user. It accepts a JSON
// string, kept verbatim, or a JSON number.
type QuantityInput string

// UnmarshalJSON implements json.Unmarshaler.
func (q *QuantityInput) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*q = QuantityInput(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("quantity must be a string or a number")
	}
	*q = QuantityInput(n.String())
	return nil
}

// AddLineRequest is the JSON request body for adding a product to the cart.
type AddLineRequest struct {
	ProductID   int64         `json:"product_id" validate:"required,gt=0"`
	Quantity    QuantityInput `json:"quantity" validate:"required,max=32"`
	VariationID *int64        `json:"variation_id,omitempty" validate:"omitempty,gt=0"`
}

// SetQuantityRequest is the JSON request body for changing a line's quantity.
type SetQuantityRequest struct {
	Quantity QuantityInput `json:"quantity" validate:"required,max=32"`
}

// --- Response DTOs ---

// VariationPreview is the tier the typed quantity currently resolves to.
type VariationPreview struct {
	Variation *domain.Variation `json:"variation"`
	Label     string            `json:"label"`
}

// SubmissionState reports the order submitter's state.
type SubmissionState struct {
	State string `json:"state"`
}

// --- Catalog ---

// ListProducts handles GET /api/v1/products
func (h *StorefrontHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListProducts(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if products == nil {
		products = []domain.Product{}
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: products})
}

// ListVariations handles GET /api/v1/products/{productId}/variations
func (h *StorefrontHandler) ListVariations(w http.ResponseWriter, r *http.Request) {
	productID, ok := httputil.ParseID(w, "product id", chi.URLParam(r, "productId"))
	if !ok {
		return
	}

	vs, err := h.service.Variations(r.Context(), productID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if vs == nil {
		vs = []domain.Variation{}
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: vs})
}

// PreviewVariation handles GET /api/v1/products/{productId}/variations/resolve?quantity=
func (h *StorefrontHandler) PreviewVariation(w http.ResponseWriter, r *http.Request) {
	productID, ok := httputil.ParseID(w, "product id", chi.URLParam(r, "productId"))
	if !ok {
		return
	}

	v, err := h.service.PreviewVariation(r.Context(), productID, r.URL.Query().Get("quantity"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: VariationPreview{Variation: v, Label: variation.Label(v)},
	})
}

// --- Cart ---

// GetCart handles GET /api/v1/cart. It reloads the cart from storage, which
// is what the UI does whenever the cart screen regains focus.
func (h *StorefrontHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: h.service.Summary(r.Context())})
}

// AddLine handles POST /api/v1/cart/lines
func (h *StorefrontHandler) AddLine(w http.ResponseWriter, r *http.Request) {
	var req AddLineRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	if _, err := h.service.AddToCart(r.Context(), req.ProductID, string(req.Quantity), req.VariationID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: h.service.CurrentSummary()})
}

// SetQuantity handles PUT /api/v1/cart/lines/{productId}
func (h *StorefrontHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	productID, ok := httputil.ParseID(w, "product id", chi.URLParam(r, "productId"))
	if !ok {
		return
	}

	var req SetQuantityRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	if _, err := h.service.SetQuantity(r.Context(), productID, string(req.Quantity)); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: h.service.CurrentSummary()})
}

// RemoveLine handles DELETE /api/v1/cart/lines/{index}
func (h *StorefrontHandler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	index, ok := httputil.ParseInt(w, "line index", chi.URLParam(r, "index"))
	if !ok {
		return
	}

	if _, err := h.service.RemoveLine(r.Context(), index); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: h.service.CurrentSummary()})
}

// --- Orders ---

// PlaceOrder handles POST /api/v1/orders. The response carries the order as
// built locally, not the order service's echo.
func (h *StorefrontHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.PlaceOrder(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: order})
}

// OrderState handles GET /api/v1/orders/state
func (h *StorefrontHandler) OrderState(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: SubmissionState{State: h.service.SubmissionState()},
	})
}

// OrderHistory handles GET /api/v1/orders/history?tokenable_id=
func (h *StorefrontHandler) OrderHistory(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.OrderHistory(r.Context(), r.URL.Query().Get("tokenable_id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if orders == nil {
		orders = []domain.RemoteOrder{}
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: orders})
}

// --- Receipts ---

// ListReceipts handles GET /api/v1/receipts?limit=
func (h *StorefrontHandler) ListReceipts(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, ok := httputil.ParseInt(w, "limit", raw)
		if !ok {
			return
		}
		limit = n
	}

	receipts, err := h.service.Receipts(r.Context(), limit)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if receipts == nil {
		receipts = []repository.Receipt{}
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: receipts})
}

// GetReceipt handles GET /api/v1/receipts/{invoice}
func (h *StorefrontHandler) GetReceipt(w http.ResponseWriter, r *http.Request) {
	receipt, err := h.service.Receipt(r.Context(), chi.URLParam(r, "invoice"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: receipt})
}
