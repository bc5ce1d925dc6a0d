// Package rest maps checkout operations onto the HTTP surface.
package rest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/bagisva/vpos-gateway/internal/domain"
)

type SuccessResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// WriteJSON writes a success envelope.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(SuccessResponse{
		Success: true,
		Data:    data,
	})
}

// WriteError maps domain errors to HTTP responses.
func WriteError(w http.ResponseWriter, err error, logger *slog.Logger) {
	statusCode, detail := buildErrorDetail(err)

	if statusCode >= http.StatusInternalServerError {
		logger.Error("request failed", "code", detail.Code, "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{
		Success: false,
		Error:   detail,
	})
}

func buildErrorDetail(err error) (int, ErrorDetail) {
	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		return http.StatusNotFound, ErrorDetail{Code: domain.ErrCodeOrderNotFound, Message: err.Error()}
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound, ErrorDetail{Code: domain.ErrCodeSessionNotFound, Message: err.Error()}
	case errors.Is(err, domain.ErrReplayDetected):
		return http.StatusConflict, ErrorDetail{Code: domain.ErrCodeReplayDetected, Message: err.Error()}
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict, ErrorDetail{Code: domain.ErrCodeInvalidTransition, Message: err.Error()}
	}

	var de *domain.DomainError
	if errors.As(err, &de) {
		detail := ErrorDetail{Code: de.Code, Message: de.Message, Field: de.Field}
		switch de.Code {
		case domain.ErrCodeValidation:
			return http.StatusBadRequest, detail
		case domain.ErrCodeSignature:
			return http.StatusInternalServerError, detail
		case domain.ErrCodeRouting:
			return http.StatusBadGateway, detail
		case domain.ErrCodeGatewayRejected:
			return http.StatusPaymentRequired, detail
		case domain.ErrCodeDuplicateOrder, domain.ErrCodeReplayDetected:
			return http.StatusConflict, detail
		default:
			return http.StatusInternalServerError, detail
		}
	}

	return http.StatusInternalServerError, ErrorDetail{
		Code:    "INTERNAL_ERROR",
		Message: "internal server error",
	}
}
