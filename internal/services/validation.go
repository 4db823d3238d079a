package services

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// ErrorResponse represents error response structure
type ErrorResponse struct {
	Error   string            `json:"error"`             // Error message
	Code    string            `json:"code,omitempty"`    // Machine-readable business error code
	Details map[string]string `json:"details,omitempty"` // Validation details
}

// ValidationHelper provides shared validation functionality
type ValidationHelper struct {
	validator *validator.Validate
}

// NewValidationHelper creates a new validation helper
func NewValidationHelper() *ValidationHelper {
	return &ValidationHelper{
		validator: validator.New(),
	}
}

// ValidateStruct validates a struct and returns validation errors
func (vh *ValidationHelper) ValidateStruct(s any) error {
	return vh.validator.Struct(s)
}

// SendErrorResponse sends a JSON error response
func SendErrorResponse(w http.ResponseWriter, message string, statusCode int, validationErr error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errorResp := ErrorResponse{Error: message}
	if validationErr != nil {
		errorResp.Details = make(map[string]string)
		for _, err := range validationErr.(validator.ValidationErrors) {
			errorResp.Details[err.Field()] = fmt.Sprintf("Field Validation Failed on '%s' tag", err.Tag())
		}
	}

	json.NewEncoder(w).Encode(errorResp)
}

// SendBusinessError maps a business error to its HTTP status and writes it
// with the machine-readable code. Non-business errors become opaque 500s.
func SendBusinessError(w http.ResponseWriter, err error) {
	bizErr, ok := AsBusinessError(err)
	if !ok {
		SendErrorResponse(w, "An Internal Error Occurred", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusForCode(bizErr.Code))
	json.NewEncoder(w).Encode(ErrorResponse{
		Error: bizErr.Message,
		Code:  string(bizErr.Code),
	})
}

func statusForCode(code ErrorCode) int {
	switch code {
	case CodeAccountNotFound, CodeResourceNotFound, CodeStatementNotFound,
		CodeTransactionNotFound, CodeItemNotFound:
		return http.StatusNotFound
	case CodeInvalidAmount, CodeNonceRequired, CodeInvalidType, CodeNothingDue:
		return http.StatusBadRequest
	case CodeOutOfCredit, CodeInsufficientFunds, CodePaymentTooHigh:
		return http.StatusPaymentRequired
	case CodeAlreadyPaid, CodeNoTurns:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}
