package response

import (
	"encoding/json"
	"net/http"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type ValidationErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// PurchaseResponse is the wire shape of a purchase attempt, success or
// business rejection alike.
type PurchaseResponse struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	PurchaseID     string `json:"purchaseId,omitempty"`
	RemainingStock *int   `json:"remainingStock,omitempty"`
}

func WriteJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func WriteSuccess(w http.ResponseWriter, payload interface{}) {
	WriteJSON(w, http.StatusOK, payload)
}

func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message})
}

func WriteValidationError(w http.ResponseWriter, message string, fields map[string]string) {
	WriteJSON(w, http.StatusBadRequest, ValidationErrorResponse{
		Error:  message,
		Fields: fields,
	})
}
