package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound        = NewDomainError("NOT_FOUND", "Resource not found")
	ErrInvalidInput    = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConnectivity    = NewDomainError("CONNECTIVITY", "Remote store unreachable")
	ErrSyncFailed      = NewDomainError("SYNC_FAILED", "Table sync failed")
	ErrSinkUnavailable = NewDomainError("SINK_UNAVAILABLE", "Print sink not ready")
	ErrEncoding        = NewDomainError("ENCODING", "Text not representable in target code page")
	ErrCascadeDelete   = NewDomainError("CASCADE_DELETE", "Cascade delete left rows behind")
	ErrInvalidState    = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
)
