package response

import (
	"errors"
	"net/http"

	domainErrors "github.com/ybolotov/flashsale-service/internal/domain/errors"
)

type ErrorMapping struct {
	HTTPStatus int
	Message    string
}

// errorMappings assigns transport codes per the error taxonomy: not-found is
// 404, business rejections are 400 with their message, everything else is an
// internal failure.
var errorMappings = map[error]ErrorMapping{
	domainErrors.ErrSaleNotFound: {
		HTTPStatus: http.StatusNotFound,
		Message:    "Flash sale not found",
	},
	domainErrors.ErrPurchaseNotFound: {
		HTTPStatus: http.StatusNotFound,
		Message:    "Purchase not found",
	},
	domainErrors.ErrSaleNotStarted: {
		HTTPStatus: http.StatusBadRequest,
		Message:    "Sale has not started yet",
	},
	domainErrors.ErrSaleEnded: {
		HTTPStatus: http.StatusBadRequest,
		Message:    "Sale has ended",
	},
	domainErrors.ErrSaleSoldOut: {
		HTTPStatus: http.StatusBadRequest,
		Message:    "Item is sold out",
	},
	domainErrors.ErrAlreadyPurchased: {
		HTTPStatus: http.StatusBadRequest,
		Message:    "You have already purchased this item",
	},
	domainErrors.ErrStoreUnavailable: {
		HTTPStatus: http.StatusInternalServerError,
		Message:    "Internal server error",
	},
	domainErrors.ErrInvariantViolation: {
		HTTPStatus: http.StatusInternalServerError,
		Message:    "Internal server error",
	},
}

func MapDomainError(err error) (int, string) {
	for domainErr, mapping := range errorMappings {
		if errors.Is(err, domainErr) {
			return mapping.HTTPStatus, mapping.Message
		}
	}

	return http.StatusInternalServerError, "Internal server error"
}

func WriteDomainError(w http.ResponseWriter, err error) {
	statusCode, message := MapDomainError(err)
	WriteError(w, statusCode, message)
}
