package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/ybolotov/flashsale-service/internal/application/use_cases"
	"github.com/ybolotov/flashsale-service/internal/infrastructure/http/response"
	"github.com/ybolotov/flashsale-service/internal/infrastructure/monitoring"
	"github.com/ybolotov/flashsale-service/internal/pkg/logger"
)

type AdminHandler struct {
	saleUseCase *use_cases.SaleUseCase
	validate    *validator.Validate
	log         *logger.Logger
}

func NewAdminHandler(saleUseCase *use_cases.SaleUseCase, log *logger.Logger) *AdminHandler {
	return &AdminHandler{
		saleUseCase: saleUseCase,
		validate:    validator.New(),
		log:         log,
	}
}

type CreateSaleRequest struct {
	ProductName string    `json:"productName" validate:"required"`
	TotalStock  int       `json:"totalStock" validate:"required,gt=0"`
	StartTime   time.Time `json:"startTime" validate:"required"`
	EndTime     time.Time `json:"endTime" validate:"required"`
}

func (h *AdminHandler) HandleCreateSale(w http.ResponseWriter, r *http.Request) {
	var req CreateSaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.WriteValidationError(w, "Invalid request body", nil)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		fields := make(map[string]string)
		for _, fieldErr := range err.(validator.ValidationErrors) {
			fields[fieldErr.Field()] = fieldErr.Tag()
		}
		response.WriteValidationError(w, "Validation failed", fields)
		return
	}

	created, err := h.saleUseCase.CreateSale(r.Context(), req.ProductName, req.TotalStock, req.StartTime, req.EndTime)
	if err != nil {
		h.log.Error("Failed to create sale",
			"product_name", req.ProductName,
			"error", err.Error(),
		)
		response.WriteDomainError(w, err)
		return
	}

	monitoring.SalesCreatedTotal.Inc()
	monitoring.UpdateRemainingStock(created.ID, created.TotalStock)

	h.log.Info("Sale created",
		"sale_id", created.ID,
		"product_name", created.ProductName,
		"total_stock", created.TotalStock,
	)

	response.WriteJSON(w, http.StatusCreated, created)
}

func (h *AdminHandler) HandleDeleteSale(w http.ResponseWriter, r *http.Request) {
	saleID := chi.URLParam(r, "id")
	if saleID == "" {
		response.WriteValidationError(w, "Validation failed", map[string]string{
			"id": "Sale ID is required",
		})
		return
	}

	if err := h.saleUseCase.DeleteSale(r.Context(), saleID); err != nil {
		response.WriteDomainError(w, err)
		return
	}

	monitoring.ForgetSale(saleID)
	h.log.Info("Sale deleted", "sale_id", saleID)
	response.WriteSuccess(w, map[string]bool{"deleted": true})
}

type SweepResponse struct {
	Swept int `json:"swept"`
}

func (h *AdminHandler) HandleSweepExpired(w http.ResponseWriter, r *http.Request) {
	swept, err := h.saleUseCase.SweepExpired(r.Context())
	if err != nil {
		h.log.Error("Sweep failed", "error", err.Error())
		response.WriteDomainError(w, err)
		return
	}

	for _, id := range swept {
		monitoring.ForgetSale(id)
		monitoring.SalesSweptTotal.Inc()
	}

	response.WriteSuccess(w, SweepResponse{Swept: len(swept)})
}
