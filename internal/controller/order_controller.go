package controller

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/goldshop/checkout/internal/domain/order"
	"github.com/goldshop/checkout/internal/middleware"
	"github.com/goldshop/checkout/internal/service"
)

type refunder interface {
	Refund(ctx context.Context, orderID, operatorID uuid.UUID) service.RefundResult
}

// OrderController handles operator-facing order endpoints.
type OrderController struct {
	refunds   refunder
	orderRepo order.Repository
}

func NewOrderController(refunds refunder, orderRepo order.Repository) *OrderController {
	return &OrderController{refunds: refunds, orderRepo: orderRepo}
}

// Get handles GET /api/v1/orders/{id}
func (h *OrderController) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid order id", Code: "invalid_id"})
		return
	}

	o, err := h.orderRepo.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, FromOrder(o))
}

// GetByNumber handles GET /api/v1/orders/number/{number}
func (h *OrderController) GetByNumber(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")
	if number == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "missing order number", Code: "invalid_number"})
		return
	}

	o, err := h.orderRepo.GetByNumber(r.Context(), number)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, FromOrder(o))
}

// Refund handles POST /api/v1/orders/{id}/refund
// The refund result is the response body; its code doubles as the HTTP status.
func (h *OrderController) Refund(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid order id", Code: "invalid_id"})
		return
	}

	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "authentication required", Code: "auth_required"})
		return
	}
	operatorID, err := uuid.Parse(claims.UserID)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "invalid operator identity", Code: "auth_invalid"})
		return
	}

	result := h.refunds.Refund(r.Context(), id, operatorID)
	writeJSON(w, result.Code, result)
}
