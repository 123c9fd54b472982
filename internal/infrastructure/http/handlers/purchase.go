package handlers

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/ybolotov/flashsale-service/internal/application/use_cases"
	"github.com/ybolotov/flashsale-service/internal/domain/errors"
	"github.com/ybolotov/flashsale-service/internal/infrastructure/http/response"
	"github.com/ybolotov/flashsale-service/internal/infrastructure/monitoring"
	"github.com/ybolotov/flashsale-service/internal/pkg/logger"
)

type PurchaseHandler struct {
	reserveUseCase *use_cases.ReserveUseCase
	validate       *validator.Validate
	log            *logger.Logger
}

func NewPurchaseHandler(reserveUseCase *use_cases.ReserveUseCase, log *logger.Logger) *PurchaseHandler {
	return &PurchaseHandler{
		reserveUseCase: reserveUseCase,
		validate:       validator.New(),
		log:            log,
	}
}

type PurchaseRequest struct {
	UserID      string `json:"userId" validate:"required"`
	FlashSaleID string `json:"flashSaleId" validate:"required"`
}

func (h *PurchaseHandler) HandlePurchase(w http.ResponseWriter, r *http.Request) {
	var req PurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.WriteValidationError(w, "Invalid request body", nil)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		fields := make(map[string]string)
		for _, fieldErr := range err.(validator.ValidationErrors) {
			fields[fieldErr.Field()] = "is required"
		}
		h.log.Warn("Purchase validation failed",
			"user_id", req.UserID,
			"sale_id", req.FlashSaleID,
		)
		response.WriteValidationError(w, "userId and flashSaleId are required", fields)
		return
	}

	h.log.Info("Purchase request received",
		"user_id", req.UserID,
		"sale_id", req.FlashSaleID,
	)

	monitoring.RecordReservationAttempt()

	result, err := h.reserveUseCase.Reserve(r.Context(), req.FlashSaleID, req.UserID)
	if err != nil {
		monitoring.RecordReservationFailure(failureReason(err))
		if stderrors.Is(err, errors.ErrInvariantViolation) {
			monitoring.RecordInvariantViolation()
		}

		if errors.IsBusinessRejection(err) {
			statusCode, message := response.MapDomainError(err)
			response.WriteJSON(w, statusCode, response.PurchaseResponse{
				Success: false,
				Message: message,
			})
			return
		}

		h.log.Error("Purchase attempt failed",
			"user_id", req.UserID,
			"sale_id", req.FlashSaleID,
			"error", err.Error(),
		)
		response.WriteDomainError(w, err)
		return
	}

	monitoring.RecordReservationSuccess()
	monitoring.UpdateRemainingStock(req.FlashSaleID, result.RemainingStock)

	h.log.Info("Purchase completed",
		"user_id", req.UserID,
		"sale_id", req.FlashSaleID,
		"purchase_id", result.PurchaseID,
		"remaining_stock", result.RemainingStock,
	)

	remaining := result.RemainingStock
	response.WriteSuccess(w, response.PurchaseResponse{
		Success:        true,
		Message:        "Purchase successful",
		PurchaseID:     result.PurchaseID,
		RemainingStock: &remaining,
	})
}

// failureReason buckets reservation errors into the bounded label set of the
// failure counter.
func failureReason(err error) string {
	switch {
	case stderrors.Is(err, errors.ErrSaleNotFound):
		return "not_found"
	case stderrors.Is(err, errors.ErrSaleNotStarted):
		return "not_started"
	case stderrors.Is(err, errors.ErrSaleEnded):
		return "ended"
	case stderrors.Is(err, errors.ErrSaleSoldOut):
		return "sold_out"
	case stderrors.Is(err, errors.ErrAlreadyPurchased):
		return "already_purchased"
	case stderrors.Is(err, errors.ErrInvariantViolation):
		return "invariant_violation"
	default:
		return "store_fault"
	}
}
