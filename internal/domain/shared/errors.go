package shared

import "errors"

// DomainError represents a domain-level error
type DomainError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is matches domain errors by code so that a contextual message
// does not break errors.Is against the sentinel values below.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// NewRetryableError creates a domain error the caller may retry
func NewRetryableError(code, message string) *DomainError {
	return &DomainError{
		Code:      code,
		Message:   message,
		Retryable: true,
	}
}

// Error codes
const (
	CodeNotFound             = "NOT_FOUND"
	CodeAlreadyExists        = "ALREADY_EXISTS"
	CodeInvalidInput         = "INVALID_INPUT"
	CodeInvalidState         = "INVALID_STATE"
	CodeIllegalTransition    = "ILLEGAL_TRANSITION"
	CodeNotAuthorized        = "NOT_AUTHORIZED"
	CodeInsufficientStock    = "INSUFFICIENT_STOCK"
	CodeInvalidQuantity      = "INVALID_QUANTITY"
	CodeOrderLocked          = "ORDER_LOCKED"
	CodeSerializationFailure = "SERIALIZATION_FAILURE"
	CodeOrderNotFound        = "ORDER_NOT_FOUND"
	CodeMovementNotFound     = "MOVEMENT_NOT_FOUND"
	CodeSessionNotFound      = "SESSION_NOT_FOUND"
	CodeRecordNotFound       = "RECORD_NOT_FOUND"
	CodeProductNotFound      = "PRODUCT_NOT_FOUND"
	CodeWarehouseNotFound    = "WAREHOUSE_NOT_FOUND"
	CodeWarehouseInactive    = "WAREHOUSE_INACTIVE"
	CodeIdempotencyKeyReused = "IDEMPOTENCY_KEY_REUSED"
)

// Common domain errors
var (
	ErrNotFound             = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists        = NewDomainError(CodeAlreadyExists, "Resource already exists")
	ErrInvalidInput         = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrInvalidState         = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrIllegalTransition    = NewDomainError(CodeIllegalTransition, "Target state is not reachable from the current state")
	ErrNotAuthorized        = NewDomainError(CodeNotAuthorized, "Actor lacks the role required for this operation")
	ErrInsufficientStock    = NewDomainError(CodeInsufficientStock, "Insufficient stock available")
	ErrInvalidQuantity      = NewDomainError(CodeInvalidQuantity, "Quantity must be at least 1 and amounts cannot be negative")
	ErrOrderLocked          = NewRetryableError(CodeOrderLocked, "Order is locked by a concurrent transition")
	ErrSerializationFailure = NewRetryableError(CodeSerializationFailure, "Transaction could not be serialized")
	ErrOrderNotFound        = NewDomainError(CodeOrderNotFound, "Order not found")
	ErrMovementNotFound     = NewDomainError(CodeMovementNotFound, "Inventory movement not found")
	ErrSessionNotFound      = NewDomainError(CodeSessionNotFound, "Count session not found")
	ErrRecordNotFound       = NewDomainError(CodeRecordNotFound, "Count record not found")
	ErrProductNotFound      = NewDomainError(CodeProductNotFound, "Product not found")
	ErrWarehouseNotFound    = NewDomainError(CodeWarehouseNotFound, "Warehouse not found")
	ErrWarehouseInactive    = NewDomainError(CodeWarehouseInactive, "Warehouse is not active")
	ErrIdempotencyKeyReused = NewDomainError(CodeIdempotencyKeyReused, "Idempotency key was used by a different actor or operation")
)

// IsRetryable reports whether err (or anything it wraps) is a retryable domain error
func IsRetryable(err error) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Retryable
	}
	return false
}

// ErrorCode returns the domain error code carried by err, or "INTERNAL"
func ErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return "INTERNAL"
}
