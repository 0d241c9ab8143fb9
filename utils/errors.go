package utils

import (
	"fmt"
)

// AppError represents a custom application error with context
type AppError struct {
	Code    int                    // HTTP status code
	Key     string                 // Machine-readable error code sent to clients
	Message string                 // User-friendly message, Spanish
	Err     error                  // Underlying error
	Context map[string]interface{} // Additional context
}

// NewAppError creates a new AppError
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
		Context: make(map[string]interface{}),
	}
}

// NewCodedError creates an AppError identified by a client-facing code
func NewCodedError(code int, key, message string) *AppError {
	appErr := NewAppError(code, message, nil)
	appErr.Key = key
	return appErr
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the underlying error to errors.Is and errors.As
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches two coded errors by key, so a wrapped copy of a sentinel still
// compares equal to it.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok || t.Key == "" {
		return false
	}
	return t.Key == e.Key
}

// Wrap returns a copy of e carrying err as its cause. Sentinels are shared
// between requests and must not be mutated.
func (e *AppError) Wrap(err error) *AppError {
	cp := *e
	cp.Err = err
	cp.Context = make(map[string]interface{}, len(e.Context))
	for k, v := range e.Context {
		cp.Context[k] = v
	}
	return &cp
}

// WithContext adds context to a copy of the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	cp := e.Wrap(e.Err)
	cp.Context[key] = value
	return cp
}

// Common error constructors
func BadRequestError(message string, err error) *AppError {
	appErr := NewAppError(400, message, err)
	appErr.Key = "rest_invalid_param"
	return appErr
}

func InternalServerError(message string, err error) *AppError {
	appErr := NewAppError(500, message, err)
	appErr.Key = "internal_error"
	return appErr
}

// Error kinds returned by the service. Status codes follow the conventions of
// the API this service replaces: most validation failures are reported as 500.
var (
	ErrUserExists            = NewCodedError(500, "user_exists", "Ya existe un usuario con este email")
	ErrUserNotFound          = NewCodedError(500, "user_not_found", "No se encontró ningún usuario")
	ErrInvalidImageType      = NewCodedError(500, "invalid_image_type", "La imagen debe ser jpg, jpeg, gif o png")
	ErrInvalidImageData      = NewCodedError(500, "invalid_image", "No se pudo decodificar la imagen correctamente")
	ErrNoColorsProvided      = NewCodedError(500, "color_not_in_request", "No se encontró ningún color para agregar al usuario")
	ErrMissingOrInvalidIndex = NewCodedError(500, "missing_index", "No se encontró el index a eliminar o no es válido")
	ErrIndexNotFound         = NewCodedError(404, "index_not_found", "El index no existe")
	ErrEmailNotSent          = NewCodedError(500, "email_not_sent", "El Email no pudo ser enviado")
	ErrResetKey              = NewCodedError(500, "no_password_reset", "No se pudo generar la clave de restablecimiento")
	ErrInvalidAccount        = NewCodedError(500, "invalidcombo", "No existe ninguna cuenta con ese nombre de usuario o email")
	ErrMissingCredentials    = NewCodedError(500, "missing_credentials", "El email y la contraseña son obligatorios")
	ErrRecoverThrottled      = NewCodedError(429, "recover_throttled", "Ya se envió una nueva contraseña recientemente, inténtalo más tarde")
)
