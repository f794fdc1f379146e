package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// Error codes used across the API. Status codes group coarsely; the code
// string tells clients which rule fired.
const (
	ErrCodeAuthenticationFailed = "authentication_failed"
	ErrCodeInactiveUser         = "inactive_user"
	ErrCodeForbidden            = "forbidden"
	ErrCodeNotFound             = "not_found"
	ErrCodeConflict             = "conflict"
	ErrCodeInvalidPermission    = "invalid_permission"
	ErrCodeDuplicateOverride    = "duplicate_override"
	ErrCodeValidationFailed     = "validation_failed"
	ErrCodeBadRequest           = "bad_request"
	ErrCodeInternal             = "internal_error"
)

// APIErrorDetail represents a single error in the standardized error response.
type APIErrorDetail struct {
	Code   string `json:"code"`
	Status string `json:"status"`
	Detail string `json:"detail"`
}

// APIErrorResponse represents the standardized error response body.
type APIErrorResponse struct {
	Errors []APIErrorDetail `json:"errors"`
}

// WriteAPIError writes a standardized error response with the given HTTP status, code, and detail.
func WriteAPIError(w http.ResponseWriter, httpStatus int, code string, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)

	resp := APIErrorResponse{
		Errors: []APIErrorDetail{
			{
				Code:   code,
				Status: strconv.Itoa(httpStatus),
				Detail: detail,
			},
		},
	}

	_ = json.NewEncoder(w).Encode(resp)
}
