package ingress

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"ordertx/internal/domain"
)

// Handler exposes Service over HTTP.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler constructs a Handler.
func NewHandler(s *Service, logger *zap.Logger) *Handler {
	return &Handler{service: s, logger: logger}
}

type submitOrderRequest struct {
	UserID uuid.UUID       `json:"userId"`
	Amount decimal.Decimal `json:"amount"`
}

type submitOrderResponse struct {
	OrderID uuid.UUID `json:"orderId"`
	State   string    `json:"state"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// CreateOrder implements POST /orders. There is no request-id dedup:
// repeated requests with identical bodies create distinct orders.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req submitOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.service.SubmitOrder(r.Context(), req.UserID, req.Amount)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to create order", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "Failed to create order")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(submitOrderResponse{OrderID: order.ID, State: string(order.Status)})
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: message})
}
