package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bitetrack/sales-engine/internal/core/domain"
	"github.com/bitetrack/sales-engine/internal/core/service"
)

type HTTPHandler struct {
	sales       *service.SaleService
	settlements *service.SettlementService
	writeOffs   *service.WriteOffService
}

func NewHTTPHandler(sales *service.SaleService, settlements *service.SettlementService, writeOffs *service.WriteOffService) *HTTPHandler {
	return &HTTPHandler{
		sales:       sales,
		settlements: settlements,
		writeOffs:   writeOffs,
	}
}

func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /sales", h.CreateSale)
	mux.HandleFunc("GET /sales/{id}", h.GetSale)
	mux.HandleFunc("PATCH /sales/{id}/payment", h.ApplyPayment)
	mux.HandleFunc("POST /inventory-drops", h.CreateWriteOff)
	mux.HandleFunc("GET /health", h.HealthCheck)
}

type saleItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type createSaleRequest struct {
	CustomerID string            `json:"customerId"`
	SellerID   string            `json:"sellerId"`
	Items      []saleItemRequest `json:"items"`
	AmountPaid decimal.Decimal   `json:"amountPaid"`
}

type saleItemResponse struct {
	ProductID   string          `json:"productId"`
	Quantity    int             `json:"quantity"`
	PriceAtSale decimal.Decimal `json:"priceAtSale"`
}

type saleResponse struct {
	ID          string             `json:"id"`
	CustomerID  string             `json:"customerId"`
	SellerID    string             `json:"sellerId"`
	Items       []saleItemResponse `json:"items"`
	TotalAmount decimal.Decimal    `json:"totalAmount"`
	AmountPaid  decimal.Decimal    `json:"amountPaid"`
	Settled     bool               `json:"settled"`
	CreatedAt   time.Time          `json:"createdAt"`
}

type paymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type writeOffRequest struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	Reason    string          `json:"reason"`
	Cost      decimal.Decimal `json:"cost"`
}

type writeOffResponse struct {
	ID        string          `json:"id"`
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	Reason    string          `json:"reason"`
	Cost      decimal.Decimal `json:"cost"`
	CreatedAt time.Time       `json:"createdAt"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *HTTPHandler) CreateSale(w http.ResponseWriter, r *http.Request) {
	var req createSaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	in := service.CreateSaleInput{
		RequestID:  r.Header.Get("Idempotency-Key"),
		CustomerID: req.CustomerID,
		SellerID:   req.SellerID,
		AmountPaid: req.AmountPaid,
	}
	for _, it := range req.Items {
		in.Items = append(in.Items, service.SaleItemInput{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
		})
	}

	sale, err := h.sales.CreateSale(r.Context(), in)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrNotFound):
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		case errors.Is(err, service.ErrDuplicateRequest), errors.Is(err, domain.ErrConflict):
			writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
		case errors.Is(err, domain.ErrInsufficientStock):
			writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
		case errors.Is(err, domain.ErrUnavailable):
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "store unavailable"})
		default:
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		}
		return
	}

	writeJSON(w, http.StatusCreated, toSaleResponse(sale))
}

func (h *HTTPHandler) GetSale(w http.ResponseWriter, r *http.Request) {
	sale, err := h.settlements.GetSale(r.Context(), r.PathValue("id"))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		case errors.Is(err, domain.ErrUnavailable):
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "store unavailable"})
		default:
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		}
		return
	}

	writeJSON(w, http.StatusOK, toSaleResponse(sale))
}

func (h *HTTPHandler) ApplyPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	sale, err := h.settlements.ApplyPayment(r.Context(), r.PathValue("id"), req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrValidation):
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		case errors.Is(err, domain.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		case errors.Is(err, domain.ErrConflict):
			writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
		case errors.Is(err, domain.ErrUnavailable):
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "store unavailable"})
		default:
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		}
		return
	}

	writeJSON(w, http.StatusOK, toSaleResponse(sale))
}

func (h *HTTPHandler) CreateWriteOff(w http.ResponseWriter, r *http.Request) {
	var req writeOffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	wo, err := h.writeOffs.WriteOff(r.Context(), service.WriteOffInput{
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		Reason:    domain.WriteOffReason(req.Reason),
		Cost:      req.Cost,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrValidation):
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		case errors.Is(err, domain.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		case errors.Is(err, domain.ErrInsufficientStock):
			writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
		case errors.Is(err, domain.ErrConflict):
			writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
		case errors.Is(err, domain.ErrUnavailable):
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "store unavailable"})
		default:
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		}
		return
	}

	writeJSON(w, http.StatusCreated, writeOffResponse{
		ID:        wo.ID,
		ProductID: wo.ProductID,
		Quantity:  wo.Quantity,
		Reason:    string(wo.Reason),
		Cost:      wo.Cost,
		CreatedAt: wo.CreatedAt,
	})
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func toSaleResponse(sale *domain.Sale) saleResponse {
	items := make([]saleItemResponse, len(sale.Items))
	for i, it := range sale.Items {
		items[i] = saleItemResponse{
			ProductID:   it.ProductID,
			Quantity:    it.Quantity,
			PriceAtSale: it.PriceAtSale,
		}
	}
	return saleResponse{
		ID:          sale.ID,
		CustomerID:  sale.CustomerID,
		SellerID:    sale.SellerID,
		Items:       items,
		TotalAmount: sale.TotalAmount,
		AmountPaid:  sale.AmountPaid,
		Settled:     sale.Settled(),
		CreatedAt:   sale.CreatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
