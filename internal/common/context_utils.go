package common

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"coursepass/internal/models"
)

type contextKey string

const (
	UserIDKey contextKey = "user_id"
	WalletKey contextKey = "wallet_address"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details,omitempty"`
	} `json:"error"`
}

// CreateErrorResponse creates a standardized error response
func CreateErrorResponse(code string, message string, details map[string]string) *ErrorResponse {
	var resp ErrorResponse
	resp.Error.Code = code
	resp.Error.Message = message
	resp.Error.Details = details
	return &resp
}

// SendDomainError maps the engine's error taxonomy onto HTTP statuses. Every
// handler funnels service errors through here so the mapping lives in one
// place.
func SendDomainError(c echo.Context, err error) error {
	var (
		validationErr    *models.ValidationError
		authorizationErr *models.AuthorizationError
		notFoundErr      *models.NotFoundError
		paymentErr       *models.PaymentError
		onchainErr       *models.OnchainStateError
		concurrencyErr   *models.ConcurrencyError
		chainErr         *models.ChainError
	)
	switch {
	case errors.As(err, &validationErr):
		return c.JSON(http.StatusBadRequest, CreateErrorResponse("VALIDATION_ERROR", validationErr.Msg, nil))
	case errors.As(err, &authorizationErr):
		return c.JSON(http.StatusForbidden, CreateErrorResponse("FORBIDDEN", authorizationErr.Msg, nil))
	case errors.As(err, &notFoundErr):
		return c.JSON(http.StatusNotFound, CreateErrorResponse("NOT_FOUND", notFoundErr.Error(), nil))
	case errors.As(err, &paymentErr):
		return c.JSON(http.StatusPaymentRequired, CreateErrorResponse("PAYMENT_ERROR", paymentErr.Msg, nil))
	case errors.As(err, &onchainErr):
		details := map[string]string{}
		if onchainErr.AvailableAt != nil {
			details["available_at"] = fmt.Sprintf("%d", *onchainErr.AvailableAt)
		}
		return c.JSON(http.StatusConflict, CreateErrorResponse("ONCHAIN_STATE", onchainErr.Reason, details))
	case errors.As(err, &concurrencyErr):
		return c.JSON(http.StatusConflict, CreateErrorResponse("CONFLICT", concurrencyErr.Msg, nil))
	case errors.As(err, &chainErr):
		return c.JSON(http.StatusBadGateway, CreateErrorResponse("CHAIN_UNAVAILABLE", "blockchain RPC failed", nil))
	default:
		return c.JSON(http.StatusInternalServerError, CreateErrorResponse("SERVER_ERROR", err.Error(), nil))
	}
}

// SendClientError sends a client error response
func SendClientError(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, CreateErrorResponse("CLIENT_ERROR", message, nil))
}

// SendUnauthorizedError sends an unauthorized error response
func SendUnauthorizedError(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, CreateErrorResponse("UNAUTHORIZED", "Unauthorized access", nil))
}

var walletAddressPattern = regexp.MustCompile(`^0x[0-9a-f]{40}$`)

// NormalizeWalletAddress canonicalizes a wallet address: trimmed, lowercase,
// 0x-prefixed 40 hex characters. Case differences never distinguish wallets.
func NormalizeWalletAddress(address string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(address))
	if !walletAddressPattern.MatchString(normalized) {
		return "", &models.ValidationError{Msg: fmt.Sprintf("invalid wallet address: %q", address)}
	}
	return normalized, nil
}

// ValidateUUID validates UUID format
func ValidateUUID(idStr string, fieldName string) (uuid.UUID, error) {
	if strings.TrimSpace(idStr) == "" {
		return uuid.Nil, &models.ValidationError{Msg: fmt.Sprintf("%s is required", fieldName)}
	}
	id, err := uuid.Parse(strings.TrimSpace(idStr))
	if err != nil {
		return uuid.Nil, &models.ValidationError{Msg: fmt.Sprintf("%s is not a valid UUID", fieldName)}
	}
	return id, nil
}

// ValidateRequiredString validates required string fields
func ValidateRequiredString(value, fieldName string) error {
	if strings.TrimSpace(value) == "" {
		return &models.ValidationError{Msg: fmt.Sprintf("%s is required", fieldName)}
	}
	return nil
}

// GetUserIDFromContext extracts the authenticated user ID from the request context
func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(UserIDKey).(uuid.UUID)
	return userID, ok
}

// GetWalletFromContext extracts the connected wallet address from the request context
func GetWalletFromContext(ctx context.Context) (string, bool) {
	wallet, ok := ctx.Value(WalletKey).(string)
	return wallet, ok
}

// WithSession attaches the authenticated identity to the context.
func WithSession(ctx context.Context, userID uuid.UUID, wallet string) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, userID)
	return context.WithValue(ctx, WalletKey, wallet)
}
