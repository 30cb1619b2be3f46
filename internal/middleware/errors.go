package middleware

import (
	"encoding/json"
	"net/http"
)

// Виды ошибок API, по которым клиент различает причину отказа.
const (
	KindUnauthenticated         = "Unauthenticated"
	KindInvalidCredential       = "InvalidCredential"
	KindForbidden               = "Forbidden"
	KindValidationFailed        = "ValidationFailed"
	KindDuplicateEmail          = "DuplicateEmail"
	KindInvalidCredentials      = "InvalidCredentials"
	KindInvalidGoogleToken      = "InvalidGoogleToken"
	KindUnknownEmail            = "UnknownEmail"
	KindInvalidResetCode        = "InvalidResetCode"
	KindProductNotFound         = "ProductNotFound"
	KindCartNotFound            = "CartNotFound"
	KindOrderNotFound           = "OrderNotFound"
	KindTokenNotFound           = "TokenNotFound"
	KindEmptyCart               = "EmptyCart"
	KindInvalidStatusTransition = "InvalidStatusTransition"
	KindRateLimited             = "RateLimited"
	KindUpstreamFailed          = "UpstreamFailed"
	KindNotFound                = "NotFound"
	KindMethodNotAllowed        = "MethodNotAllowed"
	KindInternal                = "Internal"
)

// ErrorResponse задаёт единый формат ответа об ошибке.
type ErrorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// WriteError записывает ошибку в формате ErrorResponse.
func WriteError(w http.ResponseWriter, status int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Kind: kind, Message: message})
}

// WriteInternalError записывает ответ о внутренней ошибке без подробностей.
// Подробности должны попадать только в лог.
func WriteInternalError(w http.ResponseWriter) {
	WriteError(w, http.StatusInternalServerError, KindInternal, "internal server error")
}
