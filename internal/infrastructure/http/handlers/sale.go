package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ybolotov/flashsale-service/internal/application/use_cases"
	"github.com/ybolotov/flashsale-service/internal/infrastructure/http/response"
	"github.com/ybolotov/flashsale-service/internal/pkg/logger"
)

type SaleHandler struct {
	saleUseCase *use_cases.SaleUseCase
	log         *logger.Logger
}

func NewSaleHandler(saleUseCase *use_cases.SaleUseCase, log *logger.Logger) *SaleHandler {
	return &SaleHandler{
		saleUseCase: saleUseCase,
		log:         log,
	}
}

func (h *SaleHandler) HandleGetStatus(w http.ResponseWriter, r *http.Request) {
	saleID := chi.URLParam(r, "id")
	if saleID == "" {
		response.WriteValidationError(w, "Validation failed", map[string]string{
			"id": "Sale ID is required",
		})
		return
	}

	view, err := h.saleUseCase.GetSaleStatus(r.Context(), saleID)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}

	response.WriteSuccess(w, view)
}

// UserPurchaseResponse reports whether a user holds a purchase in a sale.
// HasPurchased is false when no marker exists; the purchase body is attached
// when the ledger row is available.
type UserPurchaseResponse struct {
	HasPurchased bool        `json:"hasPurchased"`
	Purchase     interface{} `json:"purchase,omitempty"`
}

func (h *SaleHandler) HandleGetUserPurchase(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	saleID := chi.URLParam(r, "flashSaleId")

	if userID == "" || saleID == "" {
		response.WriteValidationError(w, "Validation failed", map[string]string{
			"userId":      "User ID is required",
			"flashSaleId": "Sale ID is required",
		})
		return
	}

	purchase, err := h.saleUseCase.GetUserPurchase(r.Context(), saleID, userID)
	if err != nil {
		h.log.Error("Failed to get user purchase",
			"user_id", userID,
			"sale_id", saleID,
			"error", err.Error(),
		)
		response.WriteDomainError(w, err)
		return
	}

	if purchase == nil {
		response.WriteSuccess(w, UserPurchaseResponse{HasPurchased: false})
		return
	}

	response.WriteSuccess(w, UserPurchaseResponse{HasPurchased: true, Purchase: purchase})
}

func (h *SaleHandler) HandleGetPurchase(w http.ResponseWriter, r *http.Request) {
	purchaseID := chi.URLParam(r, "id")
	if purchaseID == "" {
		response.WriteValidationError(w, "Validation failed", map[string]string{
			"id": "Purchase ID is required",
		})
		return
	}

	purchase, err := h.saleUseCase.GetPurchase(r.Context(), purchaseID)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}

	response.WriteSuccess(w, purchase)
}

func (h *SaleHandler) HandleListSales(w http.ResponseWriter, r *http.Request) {
	views, err := h.saleUseCase.ListSales(r.Context())
	if err != nil {
		h.log.Error("Failed to list sales", "error", err.Error())
		response.WriteDomainError(w, err)
		return
	}

	response.WriteSuccess(w, views)
}

func (h *SaleHandler) HandleGetLatestActiveSale(w http.ResponseWriter, r *http.Request) {
	view, err := h.saleUseCase.GetLatestActiveSale(r.Context())
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}

	response.WriteSuccess(w, view)
}
