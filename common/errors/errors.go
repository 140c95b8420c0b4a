package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Kind classifies an error independently of any transport.
type Kind string

const (
	KindValidation   Kind = "VALIDATION"
	KindNotFound     Kind = "NOT_FOUND"
	KindConflict     Kind = "CONFLICT"
	KindForbidden    Kind = "FORBIDDEN"
	KindGateway      Kind = "GATEWAY_ERROR"
	KindUnauthorized Kind = "UNAUTHORIZED"
	KindInternal     Kind = "INTERNAL"
)

// Machine-readable codes surfaced to API callers.
const (
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodeNotFound           = "NOT_FOUND"
	CodeEmptyCart          = "EMPTY_CART"
	CodeProductUnavailable = "PRODUCT_UNAVAILABLE"
	CodeInvalidQuantity    = "INVALID_QUANTITY"
	CodeInsufficientStock  = "INSUFFICIENT_STOCK"
	CodeCurrencyMismatch   = "CURRENCY_MISMATCH"
	CodeCheckoutInProgress = "CHECKOUT_IN_PROGRESS"
	CodeNotPayable         = "NOT_PAYABLE"
	CodePaymentInProgress  = "PAYMENT_IN_PROGRESS"
	CodeGatewayRejected    = "GATEWAY_REJECTED"
	CodeInvalidSignature   = "INVALID_SIGNATURE"
	CodeAmountMismatch     = "AMOUNT_MISMATCH"
	CodeInvalidTransition  = "INVALID_TRANSITION"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeInternal           = "INTERNAL_ERROR"
)

// Error represents an application error
type Error struct {
	Kind    Kind   `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on kind and code so sentinel values work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

// Status maps the error kind to an HTTP status code.
func (e *Error) Status() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict, KindGateway:
		return http.StatusConflict
	case KindForbidden:
		return http.StatusForbidden
	case KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// JSON returns the error as a JSON string
func (e *Error) JSON() string {
	b, _ := json.Marshal(gin.H{"error": e})
	return string(b)
}

// New creates a new Error
func New(kind Kind, code, message string, err error) *Error {
	return &Error{
		Kind:    kind,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func Validation(code, message string) *Error {
	return New(KindValidation, code, message, nil)
}

func NotFound(message string) *Error {
	return New(KindNotFound, CodeNotFound, message, nil)
}

func Conflict(code, message string) *Error {
	return New(KindConflict, code, message, nil)
}

func Forbidden(code, message string) *Error {
	return New(KindForbidden, code, message, nil)
}

func Gateway(code, message string, err error) *Error {
	return New(KindGateway, code, message, err)
}

func Internal(message string, err error) *Error {
	return New(KindInternal, CodeInternal, message, err)
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf returns the Kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	if appErr, ok := As(err); ok {
		return appErr.Kind
	}
	return KindInternal
}

// Common error types
var (
	ErrBadRequest   = Validation(CodeValidationFailed, "Bad request")
	ErrUnauthorized = New(KindUnauthorized, CodeUnauthorized, "Unauthorized", nil)
	ErrForbidden    = Forbidden("FORBIDDEN", "Forbidden")
	ErrNotFound     = NotFound("Not found")
	ErrInternal     = Internal("Internal server error", nil)
)

// Business logic error types
var (
	ErrEmptyCart         = Validation(CodeEmptyCart, "Cart is empty")
	ErrInvalidQuantity   = Validation(CodeInvalidQuantity, "Quantity must be between 1 and 20")
	ErrInsufficientStock = Conflict(CodeInsufficientStock, "Insufficient stock")
	ErrNotPayable        = Conflict(CodeNotPayable, "Order is not awaiting payment")
	ErrInvalidSignature  = Forbidden(CodeInvalidSignature, "Invalid signature")
	ErrAmountMismatch    = Conflict(CodeAmountMismatch, "Amount does not match payment")

	ErrCheckoutInProgress = Conflict(CodeCheckoutInProgress, "A checkout with this idempotency key is still in progress")
)

// ErrorMiddleware renders the last error attached to the gin context. Errors
// that are not *Error are logged by the caller and reported as a generic 500.
func ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		appErr, ok := As(err)
		if !ok || appErr.Kind == KindInternal {
			appErr = ErrInternal
		}

		c.AbortWithStatusJSON(appErr.Status(), gin.H{"error": appErr})
	}
}
